package timeline

import (
	"math"
	"sync"
	"time"
)

// Bounds is the scrubbable time range.
type Bounds struct {
	Min, Max time.Time
}

// Clamp limits t to the bounds.
func (b Bounds) Clamp(t time.Time) time.Time {
	if t.Before(b.Min) {
		return b.Min
	}
	if t.After(b.Max) {
		return b.Max
	}
	return t
}

type PlayerOptions struct {
	// Interval between ticks while playing.
	Interval time.Duration
	// StepMonths is how far each tick advances.
	StepMonths int
}

// DefaultPlayerOptions advances one month every 40ms.
var DefaultPlayerOptions = PlayerOptions{Interval: 40 * time.Millisecond, StepMonths: 1}

// Player is the playback clock. Time only moves through Tick, Seek and
// Toggle; a background ticker drives Tick while playing.
type Player struct {
	bounds Bounds
	opts   PlayerOptions

	mu      sync.Mutex
	current time.Time
	playing bool
	stop    chan struct{}
	done    chan struct{}
}

func NewPlayer(bounds Bounds, opts PlayerOptions) *Player {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPlayerOptions.Interval
	}
	if opts.StepMonths <= 0 {
		opts.StepMonths = DefaultPlayerOptions.StepMonths
	}
	return &Player{bounds: bounds, opts: opts, current: bounds.Min}
}

func (p *Player) Bounds() Bounds { return p.bounds }

func (p *Player) Current() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Seek sets an absolute time, clamped to the bounds. Playback state is kept.
func (p *Player) Seek(t time.Time) {
	p.mu.Lock()
	p.current = p.bounds.Clamp(t)
	p.mu.Unlock()
}

// Tick advances the clock by one step. Reaching the max bound clamps to it
// exactly and pauses. It returns false once playback has stopped.
func (p *Player) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return false
	}
	next := p.current.AddDate(0, p.opts.StepMonths, 0)
	if !next.Before(p.bounds.Max) {
		p.current = p.bounds.Max
		p.playing = false
		return false
	}
	p.current = next
	return true
}

// Toggle flips between playing and paused. Resuming at or past the end
// rewinds to the min bound first.
func (p *Player) Toggle() {
	p.mu.Lock()
	if p.playing {
		p.mu.Unlock()
		p.Stop()
		return
	}
	if !p.current.Before(p.bounds.Max) {
		p.current = p.bounds.Min
	}
	p.playing = true
	p.mu.Unlock()
	p.startLoop()
}

// Stop pauses playback and waits for the ticker goroutine to exit, so no
// tick can advance time after it returns.
func (p *Player) Stop() {
	p.mu.Lock()
	p.playing = false
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
}

func (p *Player) startLoop() {
	// A loop left over from a playback that ended on its own is reaped first.
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}

	stop = make(chan struct{})
	done = make(chan struct{})
	p.mu.Lock()
	p.stop, p.done = stop, done
	p.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
			select {
			case <-stop:
				return
			default:
			}
			if !p.Tick() {
				return
			}
		}
	}()
}

// Fraction is the position of t within the bounds, clamped to [0, 1]. It
// is the inverse of AtFraction.
func (b Bounds) Fraction(t time.Time) float64 {
	span := b.Max.Sub(b.Min)
	if span <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, float64(t.Sub(b.Min))/float64(span)))
}

// AtFraction maps a slider position to a time within the bounds.
func (b Bounds) AtFraction(f float64) time.Time {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	span := b.Max.Sub(b.Min)
	return b.Min.Add(time.Duration(f * float64(span)))
}

// YearTicks returns Jan 1 of every year divisible by every that falls strictly
// inside the bounds' years, for slider tick marks.
func (b Bounds) YearTicks(every int) []time.Time {
	if every <= 0 {
		return nil
	}
	start := b.Min.Year()
	first := ((start + every - 1) / every) * every
	var ticks []time.Time
	for y := first; y < b.Max.Year(); y += every {
		ticks = append(ticks, time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC))
	}
	return ticks
}
