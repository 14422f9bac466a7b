package timeline

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// ActiveAt reports whether any state's interval contains t.
func ActiveAt(states []NamedState, t time.Time) bool {
	for _, s := range states {
		if s.DateRange.Contains(t) {
			return true
		}
	}
	return false
}

// NameAt returns the display name of the first state containing t.
func NameAt(states []NamedState, t time.Time) (string, bool) {
	for _, s := range states {
		if s.DateRange.Contains(t) {
			return DisplayName(s.Name), true
		}
	}
	return "", false
}

// DisplayName turns "kennedy_town" into "Kennedy Town".
func DisplayName(raw string) string {
	words := strings.Split(raw, "_")
	out := words[:0]
	for _, w := range words {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		out = append(out, string(unicode.ToUpper(r))+w[size:])
	}
	return strings.Join(out, " ")
}

// LegendEntry is one line of the colour key.
type LegendEntry struct {
	Color  string
	States []NamedState
}

// ActiveLegendEntry is a legend entry resolved at a point in time.
type ActiveLegendEntry struct {
	Color string
	Name  string
}

// ActiveLegend returns the entries that have a name at t, in feed order.
func ActiveLegend(entries []LegendEntry, t time.Time) []ActiveLegendEntry {
	var active []ActiveLegendEntry
	for _, e := range entries {
		if name, ok := NameAt(e.States, t); ok {
			active = append(active, ActiveLegendEntry{Color: e.Color, Name: name})
		}
	}
	return active
}
