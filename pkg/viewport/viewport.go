// Package viewport implements pan and zoom over the map's zoom layer.
package viewport

import (
	"math"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/sudorandom/mtr-history/pkg/mapdoc"
)

// Transform maps document coordinates to screen pixels: screen = doc*K + (X, Y).
type Transform struct {
	K, X, Y float64
}

func (t Transform) Apply(x, y float64) (float64, float64) {
	return x*t.K + t.X, y*t.K + t.Y
}

func (t Transform) Invert(sx, sy float64) (float64, float64) {
	return (sx - t.X) / t.K, (sy - t.Y) / t.K
}

// Affine returns the transform as a matrix.
func (t Transform) Affine() mapdoc.Affine {
	return mapdoc.Affine{t.K, 0, 0, t.K, t.X, t.Y}
}

type Options struct {
	MaxZoom      float64
	ZoomStep     float64
	ZoomDuration time.Duration
}

var DefaultOptions = Options{MaxZoom: 4, ZoomStep: 1.3, ZoomDuration: 300 * time.Millisecond}

// Point is a screen position.
type Point struct {
	X, Y float64
}

type zoomAnim struct {
	fromK, toK float64
	// Document point under the viewport centre at both ends.
	from, to Point
	start    time.Time
	progress *gween.Tween
}

// Controller owns the zoom layer transform. It is not safe for concurrent
// use; the renderer goroutine drives it.
type Controller struct {
	content mapdoc.Rect
	vw, vh  float64
	opts    Options

	k0   float64
	t    Transform
	anim *zoomAnim

	pinchDist float64
}

// New fits content into a vw×vh viewport: a portrait viewport is covered
// completely, otherwise the width is fitted. The map is centred horizontally
// and aligned to the bottom edge.
func New(content mapdoc.Rect, vw, vh float64, opts Options) *Controller {
	if opts.MaxZoom < 1 {
		opts.MaxZoom = DefaultOptions.MaxZoom
	}
	if opts.ZoomStep <= 1 {
		opts.ZoomStep = DefaultOptions.ZoomStep
	}
	c := &Controller{content: content, opts: opts}
	c.fit(vw, vh)
	return c
}

func (c *Controller) fit(vw, vh float64) {
	c.vw, c.vh = vw, vh
	sw, sh := vw/c.content.W, vh/c.content.H
	k := sw
	if vw < vh {
		k = math.Max(sw, sh)
	}
	c.k0 = k
	c.anim = nil
	c.pinchDist = 0
	// The initial fit is not constrained, matching the first frame of the map.
	c.t = Transform{
		K: k,
		X: (vw-c.content.W*k)/2 - c.content.X*k,
		Y: vh - c.content.H*k - c.content.Y*k,
	}
}

// Resize re-fits the view to a new viewport size.
func (c *Controller) Resize(vw, vh float64) {
	if vw == c.vw && vh == c.vh {
		return
	}
	c.fit(vw, vh)
}

func (c *Controller) Transform() Transform { return c.t }
func (c *Controller) BaseScale() float64   { return c.k0 }
func (c *Controller) MaxScale() float64    { return c.k0 * c.opts.MaxZoom }
func (c *Controller) Animating() bool      { return c.anim != nil }

// Apply maps a document point to the screen.
func (c *Controller) Apply(x, y float64) (float64, float64) { return c.t.Apply(x, y) }

// Invert maps a screen point to the document.
func (c *Controller) Invert(sx, sy float64) (float64, float64) { return c.t.Invert(sx, sy) }

func (c *Controller) clampK(k float64) float64 {
	return math.Max(c.k0, math.Min(c.MaxScale(), k))
}

// constrain keeps the content covering the viewport where it can; on an axis
// where the content is smaller than the viewport it is centred.
func (c *Controller) constrain(t Transform) Transform {
	x0, y0 := c.content.X, c.content.Y
	x1, y1 := x0+c.content.W, y0+c.content.H
	ix0, iy0 := t.Invert(0, 0)
	ix1, iy1 := t.Invert(c.vw, c.vh)
	dx0, dx1 := ix0-x0, ix1-x1
	dy0, dy1 := iy0-y0, iy1-y1
	t.X += t.K * shift(dx0, dx1)
	t.Y += t.K * shift(dy0, dy1)
	return t
}

func shift(d0, d1 float64) float64 {
	if d1 > d0 {
		return (d0 + d1) / 2
	}
	if d0 < 0 {
		return d0
	}
	return math.Max(0, d1)
}

// scaleAbout returns the constrained transform scaled to k keeping the
// screen point (px, py) fixed.
func (c *Controller) scaleAbout(t Transform, k, px, py float64) Transform {
	dx, dy := t.Invert(px, py)
	k = c.clampK(k)
	return c.constrain(Transform{K: k, X: px - dx*k, Y: py - dy*k})
}

// PanBy moves the view by a screen delta.
func (c *Controller) PanBy(dx, dy float64) {
	c.anim = nil
	c.t = c.constrain(Transform{K: c.t.K, X: c.t.X + dx, Y: c.t.Y + dy})
}

// ZoomAt multiplies the scale by factor about a screen point.
func (c *Controller) ZoomAt(factor, px, py float64) {
	if factor <= 0 {
		return
	}
	c.anim = nil
	c.t = c.scaleAbout(c.t, c.t.K*factor, px, py)
}

// ZoomIn animates a zoom by one step about the viewport centre.
func (c *Controller) ZoomIn(now time.Time) { c.zoomBy(c.opts.ZoomStep, now) }

// ZoomOut animates a zoom out by one step about the viewport centre.
func (c *Controller) ZoomOut(now time.Time) { c.zoomBy(1/c.opts.ZoomStep, now) }

func (c *Controller) zoomBy(factor float64, now time.Time) {
	cx, cy := c.vw/2, c.vh/2
	// Chain onto a running animation's end state so repeated presses add up.
	base := c.t
	if c.anim != nil {
		base = c.animAt(1)
	}
	target := c.scaleAbout(base, base.K*factor, cx, cy)
	if c.opts.ZoomDuration <= 0 {
		c.anim = nil
		c.t = target
		return
	}
	fx, fy := c.t.Invert(cx, cy)
	tx, ty := target.Invert(cx, cy)
	c.anim = &zoomAnim{
		fromK:    c.t.K,
		toK:      target.K,
		from:     Point{fx, fy},
		to:       Point{tx, ty},
		start:    now,
		progress: gween.New(0, 1, float32(c.opts.ZoomDuration.Seconds()), ease.Linear),
	}
}

func (c *Controller) animAt(p float64) Transform {
	a := c.anim
	k := a.fromK + (a.toK-a.fromK)*p
	x := a.from.X + (a.to.X-a.from.X)*p
	y := a.from.Y + (a.to.Y-a.from.Y)*p
	return Transform{K: k, X: c.vw/2 - x*k, Y: c.vh/2 - y*k}
}

// Step advances a running zoom animation and reports whether one is still
// running.
func (c *Controller) Step(now time.Time) bool {
	if c.anim == nil {
		return false
	}
	p, done := c.anim.progress.Set(float32(now.Sub(c.anim.start).Seconds()))
	if done {
		c.t = c.animAt(1)
		c.anim = nil
		return false
	}
	c.t = c.animAt(float64(p))
	return true
}

func distance(a, b Point) float64 { return math.Hypot(b.X-a.X, b.Y-a.Y) }

// PinchStart records the distance between two contacts. Any other number of
// touches leaves the pinch idle.
func (c *Controller) PinchStart(touches []Point) {
	if len(touches) != 2 {
		return
	}
	c.pinchDist = distance(touches[0], touches[1])
}

// PinchMove returns the incremental zoom factor since the last move. The
// host applies it, usually through ZoomAt at the contacts' midpoint.
func (c *Controller) PinchMove(touches []Point) (float64, bool) {
	if len(touches) != 2 || c.pinchDist <= 0 {
		return 0, false
	}
	d := distance(touches[0], touches[1])
	if d <= 0 {
		return 0, false
	}
	factor := d / c.pinchDist
	c.pinchDist = d
	return factor, true
}

func (c *Controller) PinchEnd() { c.pinchDist = 0 }

// Pinching reports whether a two-contact gesture is in progress.
func (c *Controller) Pinching() bool { return c.pinchDist > 0 }
