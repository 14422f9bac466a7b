// Package sources loads the map asset and the legend feed from local files,
// URLs or the bundled copies.
package sources

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sudorandom/mtr-history/pkg/mapdoc"
	"github.com/sudorandom/mtr-history/pkg/timeline"
)

type legendFeed struct {
	Lines []struct {
		Color string `json:"color"`
		Label string `json:"label"`
	} `json:"lines"`
}

// LoadLegend decodes a legend feed of the form
// {"lines":[{"color":"#e2231a","label":"tsuen_wan_line=1982_05_10"}]}.
// Entries keep feed order.
func LoadLegend(r io.Reader, openEnd time.Time) ([]timeline.LegendEntry, error) {
	var feed legendFeed
	if err := json.NewDecoder(r).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode legend: %w", err)
	}
	entries := make([]timeline.LegendEntry, 0, len(feed.Lines))
	for i, line := range feed.Lines {
		if _, ok := mapdoc.ParseColor(line.Color); !ok {
			return nil, fmt.Errorf("legend entry %d: bad color %q", i, line.Color)
		}
		states, err := timeline.ParseLabel(line.Label, openEnd)
		if err != nil {
			return nil, fmt.Errorf("legend entry %d: %w", i, err)
		}
		entries = append(entries, timeline.LegendEntry{Color: line.Color, States: states})
	}
	return entries, nil
}
