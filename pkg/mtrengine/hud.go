package mtrengine

import (
	"image/color"
	"math"
	"strconv"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/sudorandom/mtr-history/pkg/mapdoc"
	"github.com/sudorandom/mtr-history/pkg/scene"
	"github.com/sudorandom/mtr-history/pkg/timeline"
)

var (
	ColorPanel  = color.RGBA{0, 0, 0, 160}
	ColorBorder = color.RGBA{36, 42, 53, 255}
	ColorAccent = color.RGBA{174, 34, 38, 255} // MTR red
	ColorKCR    = color.RGBA{0, 80, 160, 255}  // KCR blue
	ColorTrack  = color.RGBA{200, 200, 200, 255}
)

// tickEvery is the spacing of slider ticks, in years.
const tickEvery = 5

const dateLayout = "2006/01/02"

// hudLayout holds the screen rectangles of the controls.
type hudLayout struct {
	Scale    float64
	Margin   float64
	FontSize float64

	Play    mapdoc.Rect
	ZoomIn  mapdoc.Rect
	ZoomOut mapdoc.Rect
	Slider  mapdoc.Rect
}

func layoutHUD(w, h int) hudLayout {
	s := 1.0
	if w > 2000 {
		s = 2
	}
	margin, btn, gap := 24*s, 32*s, 12*s
	y := float64(h) - margin - btn
	l := hudLayout{Scale: s, Margin: margin, FontSize: 16 * s}
	l.Play = mapdoc.Rect{X: margin, Y: y, W: btn, H: btn}
	l.ZoomOut = mapdoc.Rect{X: float64(w) - margin - btn, Y: y, W: btn, H: btn}
	l.ZoomIn = mapdoc.Rect{X: l.ZoomOut.X - gap - btn, Y: y, W: btn, H: btn}
	sx := l.Play.X + btn + gap
	l.Slider = mapdoc.Rect{X: sx, Y: y, W: math.Max(0, l.ZoomIn.X-gap-sx), H: btn}
	return l
}

// sliderFraction maps a screen x onto the slider, clamped to [0, 1].
func (l hudLayout) sliderFraction(x float64) float64 {
	if l.Slider.W <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, (x-l.Slider.X)/l.Slider.W))
}

// operatorBadges lists the operator badges of a station at t. KCR stations
// gain the MTR badge from the merger onwards.
func operatorBadges(op timeline.Operator, t, merger time.Time) []string {
	var badges []string
	if op != timeline.OperatorMTR && t.Before(merger) {
		badges = append(badges, "KCR")
	}
	if op != timeline.OperatorKCR || !t.Before(merger) {
		badges = append(badges, "MTR")
	}
	return badges
}

func (e *Engine) drawHUD(screen *ebiten.Image) {
	l := layoutHUD(e.Width, e.Height)
	now := e.player.Current()
	e.drawTitle(screen, l, now)
	e.drawLegend(screen, l, now)
	e.drawControls(screen, l, now)
	e.drawTooltip(screen, l, now)
}

func (e *Engine) face(size float64) *text.GoTextFace {
	return &text.GoTextFace{Source: e.fontSource, Size: size}
}

func (e *Engine) drawText(screen *ebiten.Image, s string, size, x, y float64, c color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(c)
	text.Draw(screen, s, e.face(size), op)
}

// panel draws the boxed background with the accent bar on its left edge.
func panel(screen *ebiten.Image, x, y, w, h, accentH float64) {
	vector.DrawFilledRect(screen, float32(x), float32(y), float32(w), float32(h), ColorPanel, false)
	vector.StrokeRect(screen, float32(x), float32(y), float32(w), float32(h), 1, ColorBorder, false)
	vector.DrawFilledRect(screen, float32(x), float32(y), 4, float32(accentH), ColorAccent, false)
}

func (e *Engine) drawTitle(screen *ebiten.Image, l hudLayout, now time.Time) {
	title := "MTR NETWORK HISTORY"
	date := now.Format(dateLayout)
	titleSize, dateSize := l.FontSize*0.8, l.FontSize*2
	tw, _ := text.Measure(title, e.face(titleSize), 0)
	dw, _ := text.Measure(date, e.face(dateSize), 0)
	w := math.Max(tw, dw) + 30*l.Scale
	h := titleSize + dateSize + 30*l.Scale

	x, y := l.Margin, l.Margin
	panel(screen, x, y, w, h, titleSize+10*l.Scale)
	e.drawText(screen, title, titleSize, x+15*l.Scale, y+5*l.Scale, color.RGBA{255, 255, 255, 128})
	e.drawText(screen, date, dateSize, x+15*l.Scale, y+titleSize+15*l.Scale, color.White)
}

func (e *Engine) drawLegend(screen *ebiten.Image, l hudLayout, now time.Time) {
	entries := timeline.ActiveLegend(e.legend, now)
	if len(entries) == 0 {
		return
	}
	face := e.face(l.FontSize)
	swatch, spacing := 18*l.Scale, l.FontSize*1.6
	w := 0.0
	for _, ent := range entries {
		nw, _ := text.Measure(ent.Name, face, 0)
		w = math.Max(w, nw)
	}
	w += swatch + 45*l.Scale
	h := float64(len(entries))*spacing + 20*l.Scale

	x, y := float64(e.Width)-l.Margin-w, l.Margin
	panel(screen, x, y, w, h, l.FontSize+10*l.Scale)
	for i, ent := range entries {
		ty := y + 10*l.Scale + float64(i)*spacing
		c, ok := mapdoc.ParseColor(ent.Color)
		if !ok {
			c = ColorTrack
		}
		vector.DrawFilledRect(screen, float32(x+15*l.Scale), float32(ty+(spacing-swatch)/2), float32(swatch), float32(swatch), c, false)
		e.drawText(screen, ent.Name, l.FontSize, x+swatch+25*l.Scale, ty+(spacing-l.FontSize)/2, color.RGBA{255, 255, 255, 204})
	}
}

func (e *Engine) drawControls(screen *ebiten.Image, l hudLayout, now time.Time) {
	band := l.Margin / 2
	vector.DrawFilledRect(screen, 0, float32(l.Slider.Y-band), float32(e.Width), float32(l.Slider.H+2*band+l.Margin/2), ColorPanel, false)

	// Play/pause.
	p := l.Play
	vector.StrokeRect(screen, float32(p.X), float32(p.Y), float32(p.W), float32(p.H), 1, ColorBorder, false)
	if e.player.Playing() {
		bw := p.W / 6
		vector.DrawFilledRect(screen, float32(p.X+p.W/3-bw/2), float32(p.Y+p.H/4), float32(bw), float32(p.H/2), color.White, false)
		vector.DrawFilledRect(screen, float32(p.X+2*p.W/3-bw/2), float32(p.Y+p.H/4), float32(bw), float32(p.H/2), color.White, false)
	} else {
		tri := []mapdoc.Polyline{{
			{X: p.X + p.W*0.35, Y: p.Y + p.H*0.25},
			{X: p.X + p.W*0.75, Y: p.Y + p.H*0.5},
			{X: p.X + p.W*0.35, Y: p.Y + p.H*0.75},
		}}
		e.fillLines(screen, tri, color.RGBA{255, 255, 255, 255})
	}

	// Zoom buttons.
	for _, b := range []struct {
		r     mapdoc.Rect
		label string
	}{{l.ZoomIn, "+"}, {l.ZoomOut, "-"}} {
		vector.StrokeRect(screen, float32(b.r.X), float32(b.r.Y), float32(b.r.W), float32(b.r.H), 1, ColorBorder, false)
		size := l.FontSize * 1.4
		tw, th := text.Measure(b.label, e.face(size), 0)
		e.drawText(screen, b.label, size, b.r.X+(b.r.W-tw)/2, b.r.Y+(b.r.H-th)/2, color.White)
	}

	// Slider track, ticks and knob.
	s := l.Slider
	cy := s.Y + s.H/2
	vector.StrokeLine(screen, float32(s.X), float32(cy), float32(s.X+s.W), float32(cy), float32(2*l.Scale), ColorTrack, true)
	bounds := e.player.Bounds()
	ticks := bounds.YearTicks(tickEvery)
	labelled := len(ticks) > 0 && s.W/float64(len(ticks)) > 40*l.Scale
	tickSize := l.FontSize * 0.6
	for _, t := range ticks {
		tx := s.X + bounds.Fraction(t)*s.W
		vector.StrokeLine(screen, float32(tx), float32(cy-4*l.Scale), float32(tx), float32(cy+4*l.Scale), 1, ColorTrack, false)
		if labelled {
			label := strconv.Itoa(t.Year())
			tw, _ := text.Measure(label, e.face(tickSize), 0)
			e.drawText(screen, label, tickSize, tx-tw/2, cy+6*l.Scale, color.RGBA{255, 255, 255, 128})
		}
	}
	kx := s.X + bounds.Fraction(now)*s.W
	vector.DrawFilledCircle(screen, float32(kx), float32(cy), float32(7*l.Scale), ColorAccent, true)
	vector.StrokeCircle(screen, float32(kx), float32(cy), float32(7*l.Scale), 1.5, color.White, true)
}

func (e *Engine) drawTooltip(screen *ebiten.Image, l hudLayout, now time.Time) {
	state, ok := e.tooltip.Current()
	if !ok {
		return
	}
	name, op, ok := scene.LabelAt(state.Subject, now)
	if !ok {
		return
	}
	badges := operatorBadges(op, now, e.cfg.Timeline.KCRMerger)

	face := e.face(l.FontSize)
	badgeSize := l.FontSize * 0.7
	pad := 8 * l.Scale
	nw, nh := text.Measure(name, face, 0)
	w := nw + 2*pad
	badgeW := make([]float64, len(badges))
	for i, b := range badges {
		bw, _ := text.Measure(b, e.face(badgeSize), 0)
		badgeW[i] = bw + pad
		w += badgeW[i] + pad/2
	}
	h := nh + 2*pad

	x, y := state.X+14*l.Scale, state.Y+14*l.Scale
	if x+w > float64(e.Width) {
		x = state.X - w - 4*l.Scale
	}
	if y+h > l.Slider.Y-l.Margin/2 {
		y = state.Y - h - 4*l.Scale
	}
	vector.DrawFilledRect(screen, float32(x), float32(y), float32(w), float32(h), ColorPanel, false)
	vector.StrokeRect(screen, float32(x), float32(y), float32(w), float32(h), 1, ColorBorder, false)
	e.drawText(screen, name, l.FontSize, x+pad, y+pad, color.White)

	bx := x + pad + nw + pad/2
	for i, b := range badges {
		c := ColorAccent
		if b == "KCR" {
			c = ColorKCR
		}
		bh := badgeSize + pad/2
		by := y + (h-bh)/2
		vector.DrawFilledRect(screen, float32(bx), float32(by), float32(badgeW[i]), float32(bh), c, false)
		e.drawText(screen, b, badgeSize, bx+pad/2, by+pad/4, color.White)
		bx += badgeW[i] + pad/2
	}
}
