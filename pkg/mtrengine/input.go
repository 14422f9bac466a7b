package mtrengine

import (
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/sudorandom/mtr-history/pkg/viewport"
)

const (
	// panStep is how far one arrow key press moves the view, in pixels.
	panStep = 40.0
	// wheelZoomRate converts wheel notches into a power of two.
	wheelZoomRate = 0.2
	// hoverPad widens station hit targets, in map units.
	hoverPad = 1.0
)

func (e *Engine) handleInput(now time.Time) {
	e.handleKeys(now)
	l := layoutHUD(e.Width, e.Height)
	cx, cy := ebiten.CursorPosition()
	x, y := float64(cx), float64(cy)
	e.handleMouse(l, x, y, now)
	e.handleWheel(x, y)
	e.handleTouches(l, now)
	e.updateHover(l, x, y)
}

func (e *Engine) handleKeys(now time.Time) {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		e.player.Toggle()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) || inpututil.IsKeyJustPressed(ebiten.KeyKPAdd) {
		e.view.ZoomIn(now)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) || inpututil.IsKeyJustPressed(ebiten.KeyKPSubtract) {
		e.view.ZoomOut(now)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft) {
		e.view.PanBy(panStep, 0)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowRight) {
		e.view.PanBy(-panStep, 0)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) {
		e.view.PanBy(0, panStep)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) {
		e.view.PanBy(0, -panStep)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyComma) {
		e.player.Seek(e.player.Current().AddDate(0, -1, 0))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyPeriod) {
		e.player.Seek(e.player.Current().AddDate(0, 1, 0))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		e.captureNext = true
	}
}

// press handles a primary button or touch going down at (x, y) and reports
// which drag it starts.
func (e *Engine) press(l hudLayout, x, y float64, now time.Time) dragMode {
	switch {
	case l.Play.Contains(x, y):
		e.player.Toggle()
	case l.ZoomIn.Contains(x, y):
		e.view.ZoomIn(now)
	case l.ZoomOut.Contains(x, y):
		e.view.ZoomOut(now)
	case l.Slider.Contains(x, y):
		e.seekSlider(l, x)
		return dragSlider
	case y >= l.Slider.Y-l.Margin/2:
		// The control band swallows presses that miss every control.
	default:
		return dragPan
	}
	return dragNone
}

func (e *Engine) seekSlider(l hudLayout, x float64) {
	e.player.Seek(e.player.Bounds().AtFraction(l.sliderFraction(x)))
}

func (e *Engine) handleMouse(l hudLayout, x, y float64, now time.Time) {
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		e.drag = e.press(l, x, y, now)
		e.lastX, e.lastY = x, y
		return
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		e.drag = dragNone
		return
	}
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		return
	}
	switch e.drag {
	case dragSlider:
		e.seekSlider(l, x)
	case dragPan:
		if dx, dy := x-e.lastX, y-e.lastY; dx != 0 || dy != 0 {
			e.view.PanBy(dx, dy)
		}
	}
	e.lastX, e.lastY = x, y
}

func (e *Engine) handleWheel(x, y float64) {
	_, wy := ebiten.Wheel()
	if wy == 0 {
		return
	}
	e.view.ZoomAt(math.Pow(2, wy*wheelZoomRate), x, y)
}

func (e *Engine) handleTouches(l hudLayout, now time.Time) {
	e.touchIDs = ebiten.AppendTouchIDs(e.touchIDs[:0])
	touches := make([]viewport.Point, len(e.touchIDs))
	for i, id := range e.touchIDs {
		tx, ty := ebiten.TouchPosition(id)
		touches[i] = viewport.Point{X: float64(tx), Y: float64(ty)}
	}
	e.touchStep(l, touches, now)
}

// touchStep applies one frame of touch contacts. A finger left over from a
// pinch does nothing until every contact has lifted.
func (e *Engine) touchStep(l hudLayout, touches []viewport.Point, now time.Time) {
	switch len(touches) {
	case 2:
		e.lastTouch = nil
		e.touchDrag = dragNone
		e.pinched = true
		if !e.view.Pinching() {
			e.view.PinchStart(touches)
			return
		}
		if f, ok := e.view.PinchMove(touches); ok {
			mx, my := (touches[0].X+touches[1].X)/2, (touches[0].Y+touches[1].Y)/2
			e.view.ZoomAt(f, mx, my)
		}
	case 1:
		e.view.PinchEnd()
		if e.pinched {
			return
		}
		t := touches[0]
		if e.lastTouch == nil {
			e.touchDrag = e.press(l, t.X, t.Y, now)
		} else {
			switch e.touchDrag {
			case dragSlider:
				e.seekSlider(l, t.X)
			case dragPan:
				e.view.PanBy(t.X-e.lastTouch.X, t.Y-e.lastTouch.Y)
			}
		}
		e.lastTouch = &t
	default:
		e.view.PinchEnd()
		e.lastTouch = nil
		e.touchDrag = dragNone
		if len(touches) == 0 {
			e.pinched = false
		}
	}
}

func (e *Engine) updateHover(l hudLayout, x, y float64) {
	if e.drag == dragPan || y >= l.Slider.Y-l.Margin/2 {
		e.leaveHover()
		return
	}
	mx, my := e.view.Invert(x, y)
	if rec := e.scene.StationAt(mx, my, hoverPad); rec != nil {
		e.enterHover(rec, x, y)
		return
	}
	e.leaveHover()
}
