package sources

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sudorandom/mtr-history/pkg/timeline"
	"github.com/sudorandom/mtr-history/pkg/utils"
)

var maxDate = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

const feed = `{"lines":[
  {"color":"#e2231a","label":"tsuen_wan_line=1982_05_10"},
  {"color":"#00ab4e","label":"modified_initial_system=1979_10_01-1982_05_10,kwun_tong_line=1982_05_10"}
]}`

func TestLoadLegend(t *testing.T) {
	entries, err := LoadLegend(strings.NewReader(feed), maxDate)
	if err != nil {
		t.Fatalf("LoadLegend: %v", err)
	}
	got := timeline.ActiveLegend(entries, time.Date(1980, time.June, 1, 0, 0, 0, 0, time.UTC))
	want := []timeline.ActiveLegendEntry{{Color: "#00ab4e", Name: "Modified Initial System"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Legend in 1980 mismatch (-want +got):\n%s", diff)
	}
	got = timeline.ActiveLegend(entries, time.Date(1990, time.June, 1, 0, 0, 0, 0, time.UTC))
	want = []timeline.ActiveLegendEntry{
		{Color: "#e2231a", Name: "Tsuen Wan Line"},
		{Color: "#00ab4e", Name: "Kwun Tong Line"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Legend in 1990 mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadLegendErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"json", `{"lines":`},
		{"color", `{"lines":[{"color":"nope","label":"a=1980"}]}`},
		{"label", `{"lines":[{"color":"#fff","label":"a"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadLegend(strings.NewReader(tt.body), maxDate); err == nil {
				t.Error("Expected an error")
			}
		})
	}
	_, err := LoadLegend(strings.NewReader(`{"lines":[{"color":"#fff","label":"a=1990-1980"}]}`), maxDate)
	if !errors.Is(err, timeline.ErrMalformedLabel) {
		t.Errorf("Expected ErrMalformedLabel, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	read := func(location string, fallback []byte, cache *utils.AssetCache) string {
		t.Helper()
		rc, err := Open(ctx, location, fallback, cache, "[TEST]")
		if err != nil {
			t.Fatalf("Open(%q): %v", location, err)
		}
		defer rc.Close()
		body, err := io.ReadAll(rc)
		if err != nil {
			t.Fatal(err)
		}
		return string(body)
	}

	if got := read("", []byte("bundled"), nil); got != "bundled" {
		t.Errorf("Expected fallback, got %q", got)
	}

	path := filepath.Join(t.TempDir(), "lines.json")
	if err := os.WriteFile(path, []byte("local"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := read(path, nil, nil); got != "local" {
		t.Errorf("Expected local file, got %q", got)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("remote"))
	}))
	defer srv.Close()
	cache, err := utils.OpenAssetCache("")
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()
	if got := read(srv.URL+"/lines.json", nil, cache); got != "remote" {
		t.Errorf("Expected remote body, got %q", got)
	}
	if _, ok, _ := cache.Get(srv.URL + "/lines.json"); !ok {
		t.Error("Expected the remote body to be cached")
	}
}
