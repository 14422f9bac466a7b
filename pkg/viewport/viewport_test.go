package viewport

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/sudorandom/mtr-history/pkg/mapdoc"
)

var content = mapdoc.Rect{W: 1000, H: 500}

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestBaseScale(t *testing.T) {
	tests := []struct {
		name   string
		vw, vh float64
		want   Transform
	}{
		{"landscape fits width", 800, 600, Transform{K: 0.8, X: 0, Y: 200}},
		{"portrait covers", 400, 800, Transform{K: 1.6, X: -600, Y: 0}},
		{"square fits width", 500, 500, Transform{K: 0.5, X: 0, Y: 250}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(content, tt.vw, tt.vh, DefaultOptions)
			if diff := cmp.Diff(tt.want, c.Transform(), approx); diff != "" {
				t.Errorf("Transform mismatch (-want +got):\n%s", diff)
			}
			if c.BaseScale() != tt.want.K {
				t.Errorf("Expected base scale %v, got %v", tt.want.K, c.BaseScale())
			}
		})
	}
}

func TestZoomBounds(t *testing.T) {
	opts := DefaultOptions
	opts.ZoomDuration = 0
	c := New(content, 400, 800, opts)
	now := time.Now()

	c.ZoomOut(now)
	if c.Transform().K != c.BaseScale() {
		t.Errorf("Expected zoom out to stop at the base scale, got %v", c.Transform().K)
	}
	for i := 0; i < 20; i++ {
		c.ZoomIn(now)
	}
	if got, want := c.Transform().K, c.BaseScale()*4; math.Abs(got-want) > 1e-9 {
		t.Errorf("Expected zoom in to stop at %v, got %v", want, got)
	}
	c.ZoomAt(0.01, 200, 400)
	if c.Transform().K != c.BaseScale() {
		t.Errorf("Expected wheel zoom to stop at the base scale, got %v", c.Transform().K)
	}
}

func TestZoomInAnimates(t *testing.T) {
	c := New(content, 400, 800, DefaultOptions)
	t0 := time.Now()
	c.ZoomIn(t0)
	if !c.Animating() {
		t.Fatal("Expected an animation")
	}
	if !c.Step(t0.Add(150 * time.Millisecond)) {
		t.Error("Expected the animation to still run halfway")
	}
	mid := c.Transform().K
	if mid <= 1.6 || mid >= 1.6*1.3 {
		t.Errorf("Expected a scale between the endpoints halfway, got %v", mid)
	}
	if c.Step(t0.Add(time.Second)) {
		t.Error("Expected the animation to finish")
	}
	if got := c.Transform().K; math.Abs(got-1.6*1.3) > 1e-9 {
		t.Errorf("Expected final scale %v, got %v", 1.6*1.3, got)
	}
	// The document point under the centre stays put.
	x, y := c.Invert(200, 400)
	if math.Abs(x-500) > 1e-6 || math.Abs(y-250) > 1e-6 {
		t.Errorf("Expected centre (500, 250), got (%v, %v)", x, y)
	}
}

func TestPanIsConstrained(t *testing.T) {
	c := New(content, 400, 800, DefaultOptions)
	c.PanBy(10000, 0)
	if got := c.Transform().X; got != 0 {
		t.Errorf("Expected left edge clamp at 0, got %v", got)
	}
	c.PanBy(-10000, 0)
	if got := c.Transform().X; math.Abs(got-(400-1600)) > 1e-9 {
		t.Errorf("Expected right edge clamp at -1200, got %v", got)
	}
	c.PanBy(0, 500)
	if got := c.Transform().Y; got != 0 {
		t.Errorf("Expected vertical clamp at 0, got %v", got)
	}
}

func TestSmallContentIsCentred(t *testing.T) {
	c := New(content, 800, 600, DefaultOptions)
	c.PanBy(0, 0)
	if got := c.Transform().Y; math.Abs(got-100) > 1e-9 {
		t.Errorf("Expected content centred at Y=100, got %v", got)
	}
}

func TestPinch(t *testing.T) {
	c := New(content, 400, 800, DefaultOptions)
	if _, ok := c.PinchMove([]Point{{0, 0}, {10, 0}}); ok {
		t.Error("Expected no factor before PinchStart")
	}
	c.PinchStart([]Point{{0, 0}, {100, 0}})
	f, ok := c.PinchMove([]Point{{0, 0}, {150, 0}})
	if !ok || f != 1.5 {
		t.Errorf("Expected factor 1.5, got %v/%v", f, ok)
	}
	f, ok = c.PinchMove([]Point{{0, 0}, {75, 0}})
	if !ok || f != 0.5 {
		t.Errorf("Expected factor 0.5 relative to the last move, got %v/%v", f, ok)
	}
	if _, ok := c.PinchMove([]Point{{0, 0}}); ok {
		t.Error("Expected a single touch not to pinch")
	}
	c.PinchEnd()
	if c.Pinching() {
		t.Error("Expected pinch to end")
	}
}

func TestApplyInvert(t *testing.T) {
	c := New(content, 800, 600, DefaultOptions)
	sx, sy := c.Apply(250, 125)
	x, y := c.Invert(sx, sy)
	if math.Abs(x-250) > 1e-9 || math.Abs(y-125) > 1e-9 {
		t.Errorf("Expected round trip to (250, 125), got (%v, %v)", x, y)
	}
	m := c.Transform().Affine()
	if ax, ay := m.Apply(250, 125); ax != sx || ay != sy {
		t.Errorf("Affine disagrees with Apply: (%v, %v) vs (%v, %v)", ax, ay, sx, sy)
	}
}

func TestResize(t *testing.T) {
	c := New(content, 800, 600, DefaultOptions)
	c.ZoomAt(2, 400, 300)
	c.Resize(400, 800)
	if diff := cmp.Diff(Transform{K: 1.6, X: -600, Y: 0}, c.Transform(), approx); diff != "" {
		t.Errorf("Transform after resize mismatch (-want +got):\n%s", diff)
	}
}
