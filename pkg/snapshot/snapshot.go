// Package snapshot exports the network that exists at a date as GeoJSON.
// Coordinates are zoom-layer document units, not longitude and latitude.
package snapshot

import (
	"fmt"
	"time"

	geojson "github.com/paulmach/go.geojson"

	"github.com/sudorandom/mtr-history/pkg/mapdoc"
	"github.com/sudorandom/mtr-history/pkg/scene"
)

// Export reconciles sc at t and collects every visible line and station.
// Lines become LineStrings, or MultiLineStrings when they have several
// subpaths; stations become Points at their marker centre.
func Export(sc *scene.Scene, t time.Time) (*geojson.FeatureCollection, error) {
	sc.Reconcile(t)
	fc := geojson.NewFeatureCollection()

	for _, l := range sc.Lines {
		if !l.Visible() {
			continue
		}
		el, ok := l.Element.(*scene.Element)
		if !ok {
			return nil, fmt.Errorf("line #%s: unsupported element handle", l.Element.ID())
		}
		lines := mapdoc.TransformAll(el.Lines(), el.Transform())
		var f *geojson.Feature
		if len(lines) == 1 {
			f = geojson.NewLineStringFeature(coords(lines[0]))
		} else {
			multi := make([][][]float64, len(lines))
			for i, pl := range lines {
				multi[i] = coords(pl)
			}
			f = geojson.NewMultiLineStringFeature(multi...)
		}
		f.SetProperty("kind", "line")
		f.SetProperty("id", el.ID())
		if st := el.Style(); st.HasStroke {
			f.SetProperty("color", fmt.Sprintf("#%02x%02x%02x", st.Stroke.R, st.Stroke.G, st.Stroke.B))
		}
		f.SetProperty("opened", l.DateRange.Appear.Format(time.DateOnly))
		f.SetProperty("shared", l.Shared)
		fc.AddFeature(f)
	}

	for _, s := range sc.Stations {
		if !s.Visible() {
			continue
		}
		el, ok := s.Element.(*scene.Element)
		if !ok {
			return nil, fmt.Errorf("station #%s: unsupported element handle", s.Element.ID())
		}
		name, op, ok := scene.LabelAt(s, t)
		if !ok {
			continue
		}
		x, y := centre(el)
		f := geojson.NewPointFeature([]float64{x, y})
		f.SetProperty("kind", "station")
		f.SetProperty("id", el.ID())
		f.SetProperty("name", name)
		f.SetProperty("operator", op.String())
		f.SetProperty("redundant", s.Redundant)
		fc.AddFeature(f)
	}
	return fc, nil
}

func coords(pl mapdoc.Polyline) [][]float64 {
	out := make([][]float64, len(pl))
	for i, p := range pl {
		out[i] = []float64{p.X, p.Y}
	}
	return out
}

// centre is the marker centre in zoom-layer space.
func centre(el *scene.Element) (float64, float64) {
	g := el.Original()
	m := el.Transform()
	switch el.Kind() {
	case scene.KindCircle:
		return m.Apply(g.X, g.Y)
	case scene.KindRect:
		return m.Apply(g.X+g.Width/2, g.Y+g.Height/2)
	default:
		b := mapdoc.Bounds(el.Lines())
		return m.Apply(b.X+b.W/2, b.Y+b.H/2)
	}
}
