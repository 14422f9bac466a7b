package snapshot

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sudorandom/mtr-history/pkg/mapdoc"
	"github.com/sudorandom/mtr-history/pkg/scene"
)

const snapshotSVG = `<?xml version="1.0"?>
<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink"
     xmlns:inkscape="http://www.inkscape.org/namespaces/inkscape" viewBox="0 0 200 200">
  <g id="zoom-layer" transform="scale(2)">
    <g id="layer4" style="fill:none;stroke:#0075c2;stroke-width:4">
      <path id="island" inkscape:label="island_line=1985_05_31" d="M0,100 L100,100"/>
      <path id="split" inkscape:label="split=2000" d="M0,0 L10,0 M20,0 L30,0"/>
    </g>
    <g id="layer3">
      <use id="central" xlink:href="#station" x="10" y="20" inkscape:label="chater=1980-1985_05_31,central=1985_05_31"/>
      <use id="kowloon_tong" xlink:href="#interchange" x="40" y="50" inkscape:label="^kowloon_tong=1982"/>
    </g>
  </g>
</svg>`

func buildScene(t *testing.T) *scene.Scene {
	t.Helper()
	doc, err := mapdoc.Parse([]byte(snapshotSVG))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sc, err := scene.Build(doc, scene.DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return sc
}

func TestExport(t *testing.T) {
	sc := buildScene(t)
	fc, err := Export(sc, time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(fc.Features) != 3 {
		t.Fatalf("Expected 1 line and 2 stations, got %d features", len(fc.Features))
	}

	line := fc.Features[0]
	if !line.Geometry.IsLineString() {
		t.Fatalf("Expected a LineString, got %s", line.Geometry.Type)
	}
	if diff := cmp.Diff([][]float64{{0, 100}, {100, 100}}, line.Geometry.LineString); diff != "" {
		t.Errorf("Line coordinates mismatch (-want +got):\n%s", diff)
	}
	if line.Properties["color"] != "#0075c2" || line.Properties["opened"] != "1985-05-31" {
		t.Errorf("Unexpected line properties %v", line.Properties)
	}

	tests := []struct {
		feature  int
		point    []float64
		name     string
		operator string
	}{
		{1, []float64{10, 20}, "Central", "MTR"},
		{2, []float64{40, 50}, "Kowloon Tong", "KCR"},
	}
	for _, tt := range tests {
		f := fc.Features[tt.feature]
		if !f.Geometry.IsPoint() {
			t.Errorf("Expected feature %d to be a Point, got %s", tt.feature, f.Geometry.Type)
			continue
		}
		if diff := cmp.Diff(tt.point, f.Geometry.Point); diff != "" {
			t.Errorf("%s position mismatch (-want +got):\n%s", tt.name, diff)
		}
		if f.Properties["name"] != tt.name || f.Properties["operator"] != tt.operator {
			t.Errorf("Expected %s (%s), got %v", tt.name, tt.operator, f.Properties)
		}
	}
}

func TestExportMultiLine(t *testing.T) {
	sc := buildScene(t)
	fc, err := Export(sc, time.Date(2005, time.January, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	split := fc.Features[1]
	if !split.Geometry.IsMultiLineString() {
		t.Fatalf("Expected a MultiLineString, got %s", split.Geometry.Type)
	}
	want := [][][]float64{{{0, 0}, {10, 0}}, {{20, 0}, {30, 0}}}
	if diff := cmp.Diff(want, split.Geometry.MultiLineString); diff != "" {
		t.Errorf("Subpaths mismatch (-want +got):\n%s", diff)
	}
}

func TestExportBeforeOpening(t *testing.T) {
	fc, err := Export(buildScene(t), time.Date(1975, time.January, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(fc.Features) != 0 {
		t.Errorf("Expected an empty network in 1975, got %d features", len(fc.Features))
	}
}
