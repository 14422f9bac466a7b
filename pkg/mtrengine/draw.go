package mtrengine

import (
	"image"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/sudorandom/mtr-history/pkg/mapdoc"
	"github.com/sudorandom/mtr-history/pkg/scene"
)

var ColorBackground = color.RGBA{248, 247, 242, 255}

// cornerSegments is how many chords approximate a quarter circle.
const cornerSegments = 6

func (e *Engine) Draw(screen *ebiten.Image) {
	screen.Fill(ColorBackground)
	view := e.view.Transform().Affine()

	for _, el := range e.scene.Backdrop {
		e.drawElement(screen, el, view)
	}
	for _, l := range e.scene.Lines {
		if el, ok := l.Element.(*scene.Element); ok {
			e.drawElement(screen, el, view)
		}
	}
	for _, s := range e.scene.Stations {
		if s == e.hovered {
			continue
		}
		if el, ok := s.Element.(*scene.Element); ok {
			e.drawElement(screen, el, view)
		}
	}
	// The hovered marker sits above its neighbours while it is enlarged.
	if e.hovered != nil {
		if el, ok := e.hovered.Element.(*scene.Element); ok {
			e.drawElement(screen, el, view)
		}
	}

	e.drawHUD(screen)

	if e.captureNext {
		e.captureNext = false
		e.captureFrame(screen, e.clock(), e.player.Current())
	}
}

func (e *Engine) drawElement(screen *ebiten.Image, el *scene.Element, view mapdoc.Affine) {
	alpha := el.Value(scene.Opacity)
	if alpha <= 0 {
		return
	}
	m := view.Mul(el.Transform())
	style := el.Style()
	width := float32(style.StrokeWidth * m.ScaleFactor())

	switch el.Kind() {
	case scene.KindCircle:
		cx, cy := m.Apply(el.Value(scene.X), el.Value(scene.Y))
		r := float32(el.Value(scene.R) * m.ScaleFactor())
		if style.HasFill {
			vector.DrawFilledCircle(screen, float32(cx), float32(cy), r, fade(style.Fill, alpha), true)
		}
		if style.HasStroke && width > 0 {
			vector.StrokeCircle(screen, float32(cx), float32(cy), r, width, fade(style.Stroke, alpha), true)
		}
	case scene.KindRect:
		g := el.Geometry()
		outline := mapdoc.TransformAll([]mapdoc.Polyline{roundedRect(g.X, g.Y, g.Width, g.Height, g.RX)}, m)
		if style.HasFill {
			e.fillLines(screen, outline, fade(style.Fill, alpha))
		}
		if style.HasStroke && width > 0 {
			e.strokeLines(screen, outline, width, fade(style.Stroke, alpha))
		}
	default:
		lines := el.Lines()
		if style.HasFill {
			e.fillLines(screen, mapdoc.TransformAll(lines, m), fade(style.Fill, alpha))
		}
		if style.HasStroke && width > 0 {
			if dash := el.DashArray(); len(dash) > 0 {
				lines = mapdoc.Dash(lines, dash, el.Value(scene.DashOffset))
			}
			e.strokeLines(screen, mapdoc.TransformAll(lines, m), width, fade(style.Stroke, alpha))
		}
	}
}

// fade scales the alpha of c by opacity.
func fade(c color.RGBA, opacity float64) color.RGBA {
	if opacity >= 1 {
		return c
	}
	if opacity < 0 {
		opacity = 0
	}
	return color.RGBA{uint8(float64(c.R) * opacity), uint8(float64(c.G) * opacity), uint8(float64(c.B) * opacity), uint8(float64(c.A) * opacity)}
}

// roundedRect outlines a rectangle whose corners are rounded by rx.
func roundedRect(x, y, w, h, rx float64) mapdoc.Polyline {
	rx = math.Min(rx, math.Min(w, h)/2)
	if rx <= 0 {
		return mapdoc.Polyline{{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h}, {X: x, Y: y}}
	}
	corners := []struct{ cx, cy, start float64 }{
		{x + w - rx, y + rx, -math.Pi / 2},
		{x + w - rx, y + h - rx, 0},
		{x + rx, y + h - rx, math.Pi / 2},
		{x + rx, y + rx, math.Pi},
	}
	var out mapdoc.Polyline
	for _, c := range corners {
		for i := 0; i <= cornerSegments; i++ {
			a := c.start + float64(i)/cornerSegments*math.Pi/2
			out = append(out, mapdoc.Point{X: c.cx + rx*math.Cos(a), Y: c.cy + rx*math.Sin(a)})
		}
	}
	return append(out, out[0])
}

func (e *Engine) white() *ebiten.Image {
	if e.whiteImage == nil {
		img := ebiten.NewImage(3, 3)
		img.Fill(color.White)
		e.whiteImage = img.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
	}
	return e.whiteImage
}

func buildPath(lines []mapdoc.Polyline) *vector.Path {
	var p vector.Path
	for _, pl := range lines {
		if len(pl) < 2 {
			continue
		}
		p.MoveTo(float32(pl[0].X), float32(pl[0].Y))
		for _, pt := range pl[1:] {
			p.LineTo(float32(pt.X), float32(pt.Y))
		}
	}
	return &p
}

func (e *Engine) strokeLines(screen *ebiten.Image, lines []mapdoc.Polyline, width float32, c color.RGBA) {
	p := buildPath(lines)
	vs, is := p.AppendVerticesAndIndicesForStroke(nil, nil, &vector.StrokeOptions{
		Width:    width,
		LineJoin: vector.LineJoinRound,
		LineCap:  vector.LineCapRound,
	})
	e.drawTriangles(screen, vs, is, c, ebiten.FillAll)
}

func (e *Engine) fillLines(screen *ebiten.Image, lines []mapdoc.Polyline, c color.RGBA) {
	p := buildPath(lines)
	vs, is := p.AppendVerticesAndIndicesForFilling(nil, nil)
	e.drawTriangles(screen, vs, is, c, ebiten.EvenOdd)
}

func (e *Engine) drawTriangles(screen *ebiten.Image, vs []ebiten.Vertex, is []uint16, c color.RGBA, rule ebiten.FillRule) {
	if len(is) == 0 {
		return
	}
	// Vertex colours are premultiplied, as color.RGBA already is.
	r, g, b, a := float32(c.R)/255, float32(c.G)/255, float32(c.B)/255, float32(c.A)/255
	for i := range vs {
		vs[i].SrcX, vs[i].SrcY = 1, 1
		vs[i].ColorR, vs[i].ColorG, vs[i].ColorB, vs[i].ColorA = r, g, b, a
	}
	screen.DrawTriangles(vs, is, e.white(), &ebiten.DrawTrianglesOptions{AntiAlias: true, FillRule: rule})
}
