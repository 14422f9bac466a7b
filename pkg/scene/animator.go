package scene

import (
	"sync"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Property is an animatable visual attribute of an element.
type Property int

const (
	Opacity Property = iota
	DashOffset
	R
	X
	Y
	Width
	Height
	RX
	Scale
	numProperties
)

var propertyNames = [...]string{"opacity", "dash-offset", "r", "x", "y", "width", "height", "rx", "scale"}

func (p Property) String() string {
	if p < 0 || p >= numProperties {
		return "unknown"
	}
	return propertyNames[p]
}

// Easing shapes a transition's progress.
type Easing = ease.TweenFunc

// Linear is constant-speed easing.
var Linear Easing = ease.Linear

// animatable is what the animator writes to.
type animatable interface {
	Value(Property) float64
	Set(Property, float64)
}

type tweenKey struct {
	target animatable
	prop   Property
}

// tween interpolates from -> to. progress runs 0 -> 1 over the duration
// and carries the easing; values stay float64 so endpoints land exactly.
type tween struct {
	from, to float64
	start    time.Time
	progress *gween.Tween
}

// Animator owns every in-flight transition. Starting a transition on a
// property that is already animating replaces it, continuing from the
// current value.
type Animator struct {
	now func() time.Time

	mu     sync.Mutex
	tweens map[tweenKey]*tween
}

// NewAnimator returns an animator reading time from now; nil means time.Now.
func NewAnimator(now func() time.Time) *Animator {
	if now == nil {
		now = time.Now
	}
	return &Animator{now: now, tweens: make(map[tweenKey]*tween)}
}

func (a *Animator) start(target animatable, prop Property, to float64, dur time.Duration, easing Easing) {
	if dur <= 0 {
		a.mu.Lock()
		delete(a.tweens, tweenKey{target, prop})
		a.mu.Unlock()
		target.Set(prop, to)
		return
	}
	if easing == nil {
		easing = Linear
	}
	a.mu.Lock()
	a.tweens[tweenKey{target, prop}] = &tween{
		from:     target.Value(prop),
		to:       to,
		start:    a.now(),
		progress: gween.New(0, 1, float32(dur.Seconds()), easing),
	}
	a.mu.Unlock()
}

// Step writes interpolated values for every transition and drops finished
// ones. It returns how many are still running.
func (a *Animator) Step(now time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	for key, tw := range a.tweens {
		p, done := tw.progress.Set(float32(now.Sub(tw.start).Seconds()))
		if done {
			key.target.Set(key.prop, tw.to)
			delete(a.tweens, key)
			continue
		}
		key.target.Set(key.prop, tw.from+(tw.to-tw.from)*float64(p))
	}
	return len(a.tweens)
}

// Active is the number of running transitions.
func (a *Animator) Active() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.tweens)
}

// Target returns the end value of a running transition.
func (a *Animator) Target(target animatable, prop Property) (float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	tw, ok := a.tweens[tweenKey{target, prop}]
	if !ok {
		return 0, false
	}
	return tw.to, true
}

// cancel drops a running transition so a direct write is not overridden.
func (a *Animator) cancel(target animatable, prop Property) {
	if a == nil {
		return
	}
	a.mu.Lock()
	delete(a.tweens, tweenKey{target, prop})
	a.mu.Unlock()
}
