package scene

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sudorandom/mtr-history/pkg/mapdoc"
	"github.com/sudorandom/mtr-history/pkg/timeline"
)

var maxDate = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type transition struct {
	Prop  Property
	Value float64
}

type fakeHandle struct {
	id          string
	length      float64
	dash        []float64
	transitions []transition
	enters      int
	leaves      int
}

func (f *fakeHandle) ID() string            { return f.id }
func (f *fakeHandle) Length() float64       { return f.length }
func (f *fakeHandle) SetOpacity(float64)    {}
func (f *fakeHandle) SetDashOffset(float64) {}
func (f *fakeHandle) SetGeometry(Geometry)  {}

func (f *fakeHandle) SetDashArray(p []float64) { f.dash = append([]float64(nil), p...) }

func (f *fakeHandle) TransitionTo(p Property, v float64, _ time.Duration, _ Easing) {
	f.transitions = append(f.transitions, transition{p, v})
}

func (f *fakeHandle) HoverEnter() { f.enters++ }
func (f *fakeHandle) HoverLeave() { f.leaves++ }

func mustStates(t *testing.T, label string) []timeline.NamedState {
	t.Helper()
	states, err := timeline.ParseLabel(label, maxDate)
	if err != nil {
		t.Fatalf("ParseLabel(%q): %v", label, err)
	}
	return states
}

func TestReconcileIsIdempotent(t *testing.T) {
	line := &fakeHandle{id: "l1", length: 120}
	station := &fakeHandle{id: "s1"}
	lines := []*LineRecord{{Element: line, DateRange: mustStates(t, "a=1980-1990")[0].DateRange}}
	stations := []*StationRecord{{Element: station, States: mustStates(t, "a=1980-1985,b=1987-1990")}}

	now := date(1982, 6, 1)
	if n := Reconcile(now, lines, stations, time.Millisecond, nil); n != 2 {
		t.Errorf("Expected 2 changes, got %d", n)
	}
	if n := Reconcile(now, lines, stations, time.Millisecond, nil); n != 0 {
		t.Errorf("Expected no changes on repeat, got %d", n)
	}
	if diff := cmp.Diff([]transition{{DashOffset, 0}}, line.transitions); diff != "" {
		t.Errorf("Line transitions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]transition{{Opacity, 1}}, station.transitions); diff != "" {
		t.Errorf("Station transitions mismatch (-want +got):\n%s", diff)
	}

	// Gap between the two states hides the station only.
	if n := Reconcile(date(1986, 1, 1), lines, stations, time.Millisecond, nil); n != 1 {
		t.Errorf("Expected 1 change in the gap, got %d", n)
	}
	Reconcile(date(1995, 1, 1), lines, stations, time.Millisecond, nil)
	want := []transition{{DashOffset, 0}, {DashOffset, 120}}
	if diff := cmp.Diff(want, line.transitions); diff != "" {
		t.Errorf("Line transitions mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileBoundsAreInclusive(t *testing.T) {
	rng := mustStates(t, "a=1980_01_01-1990_01_01")[0].DateRange
	tests := []struct {
		at   time.Time
		want bool
	}{
		{date(1979, 12, 31), false},
		{date(1980, 1, 1), true},
		{date(1990, 1, 1), true},
		{date(1990, 1, 2), false},
	}
	for _, tt := range tests {
		rec := &LineRecord{Element: &fakeHandle{length: 1}, DateRange: rng}
		Reconcile(tt.at, []*LineRecord{rec}, nil, 0, nil)
		if rec.Visible() != tt.want {
			t.Errorf("At %s expected visible=%v, got %v", tt.at.Format("2006-01-02"), tt.want, rec.Visible())
		}
	}
}

func TestSharedSectionDash(t *testing.T) {
	h := &fakeHandle{id: "shared", length: 80}
	rec := &LineRecord{Element: h, DateRange: mustStates(t, "a=1998")[0].DateRange, Shared: true}
	lines := []*LineRecord{rec}

	Reconcile(date(2000, 1, 1), lines, nil, 0, []float64{6, 6})
	if diff := cmp.Diff([]float64{6, 6}, h.dash); diff != "" {
		t.Errorf("Visible dash mismatch (-want +got):\n%s", diff)
	}
	Reconcile(date(1990, 1, 1), lines, nil, 0, []float64{6, 6})
	if diff := cmp.Diff([]float64{80}, h.dash); diff != "" {
		t.Errorf("Hidden dash mismatch (-want +got):\n%s", diff)
	}
}

func TestRedundantHoverDrivesLinked(t *testing.T) {
	primary := &fakeHandle{id: "p"}
	glyph := &fakeHandle{id: "g"}
	p := &StationRecord{Element: primary}
	g := &StationRecord{Element: glyph, Redundant: true, Linked: p}

	g.HoverEnter()
	g.HoverLeave()
	p.HoverEnter()
	if primary.enters != 2 || primary.leaves != 1 {
		t.Errorf("Expected primary enters=2 leaves=1, got %d/%d", primary.enters, primary.leaves)
	}
	if glyph.enters != 1 || glyph.leaves != 1 {
		t.Errorf("Expected glyph enters=1 leaves=1, got %d/%d", glyph.enters, glyph.leaves)
	}
}

func TestHittable(t *testing.T) {
	shown := &StationRecord{visible: true}
	hidden := &StationRecord{}
	tests := []struct {
		name string
		rec  *StationRecord
		want bool
	}{
		{"visible", shown, true},
		{"hidden", hidden, false},
		{"redundant with visible primary", &StationRecord{Redundant: true, Linked: shown}, true},
		{"redundant with hidden primary", &StationRecord{Redundant: true, Linked: hidden}, false},
		{"redundant without primary", &StationRecord{Redundant: true}, false},
		{"linked but not redundant", &StationRecord{Linked: shown}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Hittable(); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestLabelAtDelegatesForRedundant(t *testing.T) {
	p := &StationRecord{
		Element:  &fakeHandle{},
		States:   mustStates(t, "kowloon_tong=1982_12_16"),
		Operator: timeline.OperatorJoint,
	}
	g := &StationRecord{Element: &fakeHandle{}, Redundant: true, Linked: p, States: mustStates(t, "x=1970-1971")}

	name, op, ok := LabelAt(g, date(2000, 1, 1))
	if !ok || name != "Kowloon Tong" || op != timeline.OperatorJoint {
		t.Errorf("Expected Kowloon Tong/MTR+KCR, got %q/%v/%v", name, op, ok)
	}
	if _, _, ok := LabelAt(g, date(1975, 1, 1)); ok {
		t.Error("Expected no label before either record existed")
	}
	name, _, ok = LabelAt(g, date(1970, 6, 1))
	if !ok || name != "X" {
		t.Errorf("Expected own name to win, got %q/%v", name, ok)
	}

	// Only redundant records delegate.
	plain := &StationRecord{Element: &fakeHandle{}, Linked: p}
	if _, _, ok := LabelAt(plain, date(2000, 1, 1)); ok {
		t.Error("Expected a non-redundant record not to delegate")
	}
}

func TestTooltipTracker(t *testing.T) {
	var tt TooltipTracker
	tt.Move(1, 1)
	if _, ok := tt.Current(); ok {
		t.Fatal("Expected no tooltip before Enter")
	}
	rec := &StationRecord{Element: &fakeHandle{}}
	tt.Enter(rec, 10, 20)
	tt.Move(15, 25)
	st, ok := tt.Current()
	if !ok || st.Subject != rec || st.X != 15 || st.Y != 25 {
		t.Errorf("Unexpected tooltip %+v ok=%v", st, ok)
	}
	tt.Leave()
	if _, ok := tt.Current(); ok {
		t.Error("Expected tooltip cleared after Leave")
	}
}

func TestAnimatorLastWriteWins(t *testing.T) {
	t0 := date(2000, 1, 1)
	now := t0
	anim := NewAnimator(func() time.Time { return now })
	doc := mustDoc(t)
	sc, err := Build(doc, testOptions(), anim)
	if err != nil {
		t.Fatal(err)
	}
	el := sc.Stations[0].Element.(*Element)

	el.TransitionTo(Opacity, 1, 100*time.Millisecond, Linear)
	anim.Step(t0.Add(50 * time.Millisecond))
	if got := el.Value(Opacity); math.Abs(got-0.5) > 1e-6 {
		t.Fatalf("Expected opacity 0.5 halfway, got %v", got)
	}

	now = t0.Add(50 * time.Millisecond)
	el.TransitionTo(Opacity, 0, 100*time.Millisecond, Linear)
	if to, ok := anim.Target(el, Opacity); !ok || to != 0 {
		t.Errorf("Expected the new transition to replace the old, got %v/%v", to, ok)
	}
	anim.Step(now.Add(50 * time.Millisecond))
	if got := el.Value(Opacity); math.Abs(got-0.25) > 1e-6 {
		t.Errorf("Expected reversal from the current value, got %v", got)
	}
	if n := anim.Step(now.Add(time.Second)); n != 0 {
		t.Errorf("Expected no running transitions, got %d", n)
	}
	if el.Value(Opacity) != 0 {
		t.Errorf("Expected final opacity 0, got %v", el.Value(Opacity))
	}
}

func TestElementSetCancelsTransition(t *testing.T) {
	anim := NewAnimator(nil)
	sc, err := Build(mustDoc(t), testOptions(), anim)
	if err != nil {
		t.Fatal(err)
	}
	el := sc.Stations[0].Element.(*Element)
	el.TransitionTo(Opacity, 1, time.Hour, Linear)
	el.SetOpacity(0.3)
	if anim.Active() != 0 {
		t.Errorf("Expected SetOpacity to cancel the transition, %d running", anim.Active())
	}
	if el.Value(Opacity) != 0.3 {
		t.Errorf("Expected opacity 0.3, got %v", el.Value(Opacity))
	}
}

func TestPropertyString(t *testing.T) {
	if DashOffset.String() != "dash-offset" || Property(42).String() != "unknown" {
		t.Errorf("Unexpected names %q %q", DashOffset, Property(42))
	}
}

var _ ElementHandle = (*Element)(nil)
var _ Hoverable = (*Element)(nil)
var _ ElementHandle = (*fakeHandle)(nil)

func mustDoc(t *testing.T) *mapdoc.Document {
	t.Helper()
	doc, err := mapdoc.Parse([]byte(sceneSVG))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}
