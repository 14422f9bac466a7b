// Package scene turns the map document into animatable records and keeps
// their visibility in step with the current time.
package scene

import (
	"math"
	"time"

	"github.com/beevik/etree"
	"github.com/sudorandom/mtr-history/pkg/mapdoc"
)

// ElementHandle is the visual capability a record owns. Any backend that can
// set and animate these properties can drive the scene.
type ElementHandle interface {
	ID() string
	Length() float64
	SetOpacity(v float64)
	SetDashOffset(v float64)
	SetDashArray(pattern []float64)
	SetGeometry(g Geometry)
	TransitionTo(p Property, v float64, d time.Duration, ease Easing)
}

// Hoverable elements react to the pointer.
type Hoverable interface {
	HoverEnter()
	HoverLeave()
}

// Kind is the shape family of an element.
type Kind int

const (
	KindShape  Kind = iota // path-like, scaled on hover
	KindCircle             // r grows on hover
	KindRect               // grows about its centre on hover
)

// HoverGrowth is the size factor applied to markers on hover.
const HoverGrowth = 5.0 / 3.0

// ShapeHoverScale is the transform multiplier applied to plain shapes.
const ShapeHoverScale = 2.0

// Geometry is the animatable geometry of an element, in its local space.
type Geometry struct {
	R             float64
	X, Y          float64
	Width, Height float64
	RX            float64
	Scale         float64
}

// Element is the default ElementHandle backed by a node of the map document.
type Element struct {
	id    string
	node  *etree.Element
	kind  Kind
	style mapdoc.Style

	// parent maps local coordinates into zoom-layer space; own is the
	// element's transform attribute.
	parent, own mapdoc.Affine

	lines  []mapdoc.Polyline // local space, KindShape only
	length float64
	dash   []float64

	props    [numProperties]float64
	original Geometry

	anim          *Animator
	hoverDuration time.Duration
}

func newElement(node *etree.Element, kind Kind, parent, own mapdoc.Affine, anim *Animator, hover time.Duration) *Element {
	e := &Element{
		id:            node.SelectAttrValue("id", ""),
		node:          node,
		kind:          kind,
		style:         mapdoc.ResolveStyle(node),
		parent:        parent,
		own:           own,
		anim:          anim,
		hoverDuration: hover,
	}
	e.props[Opacity] = 1
	e.props[Scale] = 1
	return e
}

func (e *Element) ID() string                { return e.id }
func (e *Element) Node() *etree.Element      { return e.node }
func (e *Element) Kind() Kind                { return e.kind }
func (e *Element) Style() mapdoc.Style       { return e.style }
func (e *Element) Length() float64           { return e.length }
func (e *Element) DashArray() []float64      { return e.dash }
func (e *Element) Lines() []mapdoc.Polyline  { return e.lines }
func (e *Element) Value(p Property) float64  { return e.props[p] }
func (e *Element) Set(p Property, v float64) { e.props[p] = v }
func (e *Element) Original() Geometry        { return e.original }

func (e *Element) SetOpacity(v float64)    { e.anim.cancel(e, Opacity); e.props[Opacity] = v }
func (e *Element) SetDashOffset(v float64) { e.anim.cancel(e, DashOffset); e.props[DashOffset] = v }

func (e *Element) SetDashArray(pattern []float64) {
	e.dash = append(e.dash[:0], pattern...)
}

// Geometry returns the current (possibly mid-transition) geometry.
func (e *Element) Geometry() Geometry {
	return Geometry{
		R: e.props[R], X: e.props[X], Y: e.props[Y],
		Width: e.props[Width], Height: e.props[Height], RX: e.props[RX],
		Scale: e.props[Scale],
	}
}

func (e *Element) SetGeometry(g Geometry) {
	for p, v := range map[Property]float64{R: g.R, X: g.X, Y: g.Y, Width: g.Width, Height: g.Height, RX: g.RX, Scale: g.Scale} {
		e.anim.cancel(e, p)
		e.props[p] = v
	}
}

func (e *Element) TransitionTo(p Property, v float64, d time.Duration, ease Easing) {
	if e.anim == nil {
		e.props[p] = v
		return
	}
	e.anim.start(e, p, v, d, ease)
}

// Transform maps local coordinates into zoom-layer space, including the
// hover scale multiplier appended to the element's own transform.
func (e *Element) Transform() mapdoc.Affine {
	m := e.parent.Mul(e.own)
	if s := e.props[Scale]; s != 1 {
		m = m.Mul(mapdoc.Scale(s, s))
	}
	return m
}

// HoverEnter grows the element from its original geometry.
func (e *Element) HoverEnter() {
	g := e.original
	d := e.hoverDuration
	switch e.kind {
	case KindCircle:
		e.TransitionTo(R, g.R*HoverGrowth, d, Linear)
	case KindRect:
		w, h := g.Width*HoverGrowth, g.Height*HoverGrowth
		e.TransitionTo(X, g.X-(w-g.Width)/2, d, Linear)
		e.TransitionTo(Y, g.Y-(h-g.Height)/2, d, Linear)
		e.TransitionTo(Width, w, d, Linear)
		e.TransitionTo(Height, h, d, Linear)
		e.TransitionTo(RX, g.RX*HoverGrowth, d, Linear)
	default:
		e.TransitionTo(Scale, ShapeHoverScale, d, Linear)
	}
}

// HoverLeave returns to the literal original geometry.
func (e *Element) HoverLeave() {
	g := e.original
	d := e.hoverDuration
	switch e.kind {
	case KindCircle:
		e.TransitionTo(R, g.R, d, Linear)
	case KindRect:
		e.TransitionTo(X, g.X, d, Linear)
		e.TransitionTo(Y, g.Y, d, Linear)
		e.TransitionTo(Width, g.Width, d, Linear)
		e.TransitionTo(Height, g.Height, d, Linear)
		e.TransitionTo(RX, g.RX, d, Linear)
	default:
		e.TransitionTo(Scale, g.Scale, d, Linear)
	}
}

// Contains hit-tests a point in zoom-layer space against the element's
// current geometry. pad widens the target, in local units.
func (e *Element) Contains(x, y, pad float64) bool {
	inv, ok := e.Transform().Invert()
	if !ok {
		return false
	}
	lx, ly := inv.Apply(x, y)
	switch e.kind {
	case KindCircle:
		return math.Hypot(lx-e.props[X], ly-e.props[Y]) <= e.props[R]+pad
	case KindRect:
		r := mapdoc.Rect{X: e.props[X] - pad, Y: e.props[Y] - pad, W: e.props[Width] + 2*pad, H: e.props[Height] + 2*pad}
		return r.Contains(lx, ly)
	default:
		b := mapdoc.Bounds(e.lines)
		half := e.style.StrokeWidth/2 + pad
		r := mapdoc.Rect{X: b.X - half, Y: b.Y - half, W: b.W + 2*half, H: b.H + 2*half}
		return r.Contains(lx, ly)
	}
}
