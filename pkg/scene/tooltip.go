package scene

import (
	"time"

	"github.com/sudorandom/mtr-history/pkg/timeline"
)

// LabelAt returns the display name of rec at t. A redundant record with no
// name of its own answers with its linked primary, including the operator.
func LabelAt(rec *StationRecord, t time.Time) (string, timeline.Operator, bool) {
	if rec == nil {
		return "", timeline.OperatorMTR, false
	}
	if name, ok := timeline.NameAt(rec.States, t); ok {
		return name, rec.Operator, true
	}
	if rec.Redundant && rec.Linked != nil {
		if name, ok := timeline.NameAt(rec.Linked.States, t); ok {
			return name, rec.Linked.Operator, true
		}
	}
	return "", rec.Operator, false
}

// TooltipState is the hovered station and the pointer position in screen
// pixels.
type TooltipState struct {
	X, Y    float64
	Subject *StationRecord
}

// TooltipTracker follows hover enter, move and leave events.
type TooltipTracker struct {
	state  TooltipState
	active bool
}

// Enter starts tracking rec. Entering a different station replaces the
// previous one.
func (tt *TooltipTracker) Enter(rec *StationRecord, x, y float64) {
	tt.state = TooltipState{X: x, Y: y, Subject: rec}
	tt.active = rec != nil
}

// Move updates the position; without an active tooltip it does nothing.
func (tt *TooltipTracker) Move(x, y float64) {
	if !tt.active {
		return
	}
	tt.state.X, tt.state.Y = x, y
}

func (tt *TooltipTracker) Leave() {
	tt.state = TooltipState{}
	tt.active = false
}

// Current returns the tooltip being shown, if any.
func (tt *TooltipTracker) Current() (TooltipState, bool) {
	return tt.state, tt.active
}
