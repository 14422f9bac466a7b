package scene

import (
	"fmt"
	"log"
	"time"

	"github.com/beevik/etree"
	"github.com/sudorandom/mtr-history/pkg/mapdoc"
	"github.com/sudorandom/mtr-history/pkg/timeline"
)

// Options names the structural pieces of the map asset and the animation
// timings.
type Options struct {
	LinesLayer          string
	StationsLayer       string
	ZoomRoot            string
	LabelAttr           string
	StationTemplate     string
	InterchangeTemplate string
	SharedSectionID     string
	SharedDash          []float64

	// OpenEnd resolves labels without an end date.
	OpenEnd       time.Time
	FadeDuration  time.Duration
	HoverDuration time.Duration
}

// DefaultOptions matches the layout of the bundled map.
func DefaultOptions() Options {
	return Options{
		LinesLayer:          "layer4",
		StationsLayer:       "layer3",
		ZoomRoot:            "zoom-layer",
		LabelAttr:           "inkscape:label",
		StationTemplate:     "station",
		InterchangeTemplate: "interchange",
		SharedSectionID:     "airportexpress_shared_section",
		SharedDash:          []float64{6, 6},
		OpenEnd:             time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		FadeDuration:        500 * time.Millisecond,
		HoverDuration:       300 * time.Millisecond,
	}
}

// LineRecord is one drawn line segment and the interval it existed.
type LineRecord struct {
	Element   ElementHandle
	DateRange timeline.DateInterval
	// Shared marks the segment run by two services; it is drawn dashed.
	Shared bool

	visible bool
}

// Visible reports the last reconciled state.
func (l *LineRecord) Visible() bool { return l.visible }

// StationRecord is one station marker and its naming history.
type StationRecord struct {
	Element   ElementHandle
	States    []timeline.NamedState
	Redundant bool
	// Linked is the primary record of a redundant marker.
	Linked   *StationRecord
	Operator timeline.Operator

	visible bool
}

// Visible reports the last reconciled state.
func (s *StationRecord) Visible() bool { return s.visible }

// Hittable reports whether the pointer can reach the marker: it is visible,
// or it is a hidden redundant glyph whose primary is visible.
func (s *StationRecord) Hittable() bool {
	return s.visible || (s.Redundant && s.Linked != nil && s.Linked.visible)
}

// HoverEnter grows the marker and, for a redundant glyph, its primary.
func (s *StationRecord) HoverEnter() {
	if h, ok := s.Element.(Hoverable); ok {
		h.HoverEnter()
	}
	if s.Redundant && s.Linked != nil {
		if h, ok := s.Linked.Element.(Hoverable); ok {
			h.HoverEnter()
		}
	}
}

// HoverLeave restores the marker and, for a redundant glyph, its primary.
func (s *StationRecord) HoverLeave() {
	if h, ok := s.Element.(Hoverable); ok {
		h.HoverLeave()
	}
	if s.Redundant && s.Linked != nil {
		if h, ok := s.Linked.Element.(Hoverable); ok {
			h.HoverLeave()
		}
	}
}

// Reconcile flips lines and stations whose visibility at t differs from their
// last reconciled state and returns how many records changed. Calling it
// again with the same t issues nothing.
func Reconcile(t time.Time, lines []*LineRecord, stations []*StationRecord, fade time.Duration, sharedDash []float64) int {
	changed := 0
	for _, l := range lines {
		want := l.DateRange.Contains(t)
		if want == l.visible {
			continue
		}
		l.visible = want
		changed++
		if want {
			l.Element.TransitionTo(DashOffset, 0, fade, Linear)
			if l.Shared {
				l.Element.SetDashArray(sharedDash)
			}
			continue
		}
		length := l.Element.Length()
		l.Element.TransitionTo(DashOffset, length, fade, Linear)
		if l.Shared {
			l.Element.SetDashArray([]float64{length})
		}
	}
	for _, s := range stations {
		want := timeline.ActiveAt(s.States, t)
		if want == s.visible {
			continue
		}
		s.visible = want
		changed++
		if want {
			s.Element.TransitionTo(Opacity, 1, fade, Linear)
		} else {
			s.Element.TransitionTo(Opacity, 0, fade, Linear)
		}
	}
	return changed
}

// Scene holds every record built from one map document.
type Scene struct {
	Doc      *mapdoc.Document
	ZoomRoot *etree.Element
	Lines    []*LineRecord
	Stations []*StationRecord
	// Backdrop is the static artwork of the zoom layer outside both layers.
	Backdrop []*Element

	opts Options
}

// Build adapts the lines and stations layers of doc. Every record starts
// hidden: lines fully dash-offset, stations transparent.
func Build(doc *mapdoc.Document, opts Options, anim *Animator) (*Scene, error) {
	zoom, err := doc.ElementByID(opts.ZoomRoot)
	if err != nil {
		return nil, fmt.Errorf("zoom root: %w", err)
	}
	linesLayer, err := doc.ElementByID(opts.LinesLayer)
	if err != nil {
		return nil, fmt.Errorf("lines layer: %w", err)
	}
	stationsLayer, err := doc.ElementByID(opts.StationsLayer)
	if err != nil {
		return nil, fmt.Errorf("stations layer: %w", err)
	}

	adapt := AdaptOptions{
		StationTemplate:     opts.StationTemplate,
		InterchangeTemplate: opts.InterchangeTemplate,
		ZoomRoot:            zoom,
		HoverDuration:       opts.HoverDuration,
		Animator:            anim,
	}
	s := &Scene{Doc: doc, ZoomRoot: zoom, opts: opts}

	for _, node := range mapdoc.Elements(linesLayer, "path") {
		id := node.SelectAttrValue("id", "")
		states, err := timeline.ParseLabel(node.SelectAttrValue(opts.LabelAttr, ""), opts.OpenEnd)
		if err != nil {
			return nil, fmt.Errorf("line #%s: %w", id, err)
		}
		el, err := Adapt(doc, node, adapt)
		if err != nil {
			return nil, fmt.Errorf("line #%s: %w", id, err)
		}
		length := el.Length()
		el.SetDashArray([]float64{length})
		el.SetDashOffset(length)
		s.Lines = append(s.Lines, &LineRecord{
			Element:   el,
			DateRange: states[0].DateRange,
			Shared:    id == opts.SharedSectionID,
		})
	}

	for _, node := range mapdoc.Elements(stationsLayer, "use", "path") {
		id := node.SelectAttrValue("id", "")
		label, err := timeline.ParseStationLabel(node.SelectAttrValue(opts.LabelAttr, ""), opts.OpenEnd)
		if err != nil {
			return nil, fmt.Errorf("station #%s: %w", id, err)
		}
		el, err := Adapt(doc, node, adapt)
		if err != nil {
			return nil, fmt.Errorf("station #%s: %w", id, err)
		}
		el.SetOpacity(0)
		rec := &StationRecord{
			Element:   el,
			States:    label.States,
			Redundant: label.Redundant,
			Operator:  label.Operator,
		}
		if rec.Redundant {
			if n := len(s.Stations); n > 0 {
				rec.Linked = s.Stations[n-1]
			} else {
				log.Printf("[MAP] Redundant station #%s has no preceding station", id)
			}
		}
		s.Stations = append(s.Stations, rec)
	}

	for _, node := range mapdoc.Elements(zoom, "path", "polygon", "polyline", "line", "rect", "circle") {
		if below(node, linesLayer) || below(node, stationsLayer) || inDefs(node, zoom) {
			continue
		}
		el, err := Adapt(doc, node, AdaptOptions{ZoomRoot: zoom})
		if err != nil {
			log.Printf("[MAP] Skipping backdrop element: %v", err)
			continue
		}
		s.Backdrop = append(s.Backdrop, el)
	}
	return s, nil
}

func below(node, ancestor *etree.Element) bool {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p == ancestor {
			return true
		}
	}
	return false
}

// inDefs reports whether node is template content under a <defs> below stop.
func inDefs(node, stop *etree.Element) bool {
	for p := node.Parent(); p != nil && p != stop; p = p.Parent() {
		if p.Tag == "defs" {
			return true
		}
	}
	return false
}

// Reconcile brings every record in line with t.
func (s *Scene) Reconcile(t time.Time) int {
	return Reconcile(t, s.Lines, s.Stations, s.opts.FadeDuration, s.opts.SharedDash)
}

// hitTester is implemented by handles that support pointer hit testing.
type hitTester interface {
	Contains(x, y, pad float64) bool
}

// StationAt returns the topmost hittable station under (x, y) in zoom-layer
// coordinates.
func (s *Scene) StationAt(x, y, pad float64) *StationRecord {
	for i := len(s.Stations) - 1; i >= 0; i-- {
		rec := s.Stations[i]
		if !rec.Hittable() {
			continue
		}
		if h, ok := rec.Element.(hitTester); ok && h.Contains(x, y, pad) {
			return rec
		}
	}
	return nil
}
