// Package timeline holds the temporal model of the map: label parsing, name
// resolution and the playback clock.
package timeline

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedLabel is wrapped by every error returned from ParseLabel.
var ErrMalformedLabel = errors.New("malformed temporal label")

// DateInterval is a closed interval; Removed is the configured max date when
// the label left the end open.
type DateInterval struct {
	Appear  time.Time
	Removed time.Time
}

// Contains reports whether appear <= t <= removed.
func (d DateInterval) Contains(t time.Time) bool {
	return !t.Before(d.Appear) && !t.After(d.Removed)
}

// NamedState is one historical name of an entity.
type NamedState struct {
	Name      string
	DateRange DateInterval
}

// LabelError describes why a label could not be parsed.
type LabelError struct {
	Label  string
	Part   string
	Reason string
}

func (e *LabelError) Error() string {
	return fmt.Sprintf("%s %q (part %q): %s", ErrMalformedLabel, e.Label, e.Part, e.Reason)
}

func (e *LabelError) Unwrap() error { return ErrMalformedLabel }

var dateLayouts = []string{"2006-01-02", "2006-01", "2006"}

func parseDate(raw string) (time.Time, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), "_", "-")
	for _, layout := range dateLayouts {
		if len(s) != len(layout) {
			continue
		}
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

// ParseLabel decodes "name=start-end,name=start" into states, in written
// order. Dates use '_' instead of '-'; a missing end resolves to openEnd.
func ParseLabel(label string, openEnd time.Time) ([]NamedState, error) {
	if strings.TrimSpace(label) == "" {
		return nil, &LabelError{Label: label, Reason: "empty label"}
	}
	parts := strings.Split(label, ",")
	states := make([]NamedState, 0, len(parts))
	for _, part := range parts {
		name, rawInterval, ok := strings.Cut(part, "=")
		if !ok {
			return nil, &LabelError{Label: label, Part: part, Reason: "missing '='"}
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, &LabelError{Label: label, Part: part, Reason: "empty name"}
		}
		bounds := strings.Split(rawInterval, "-")
		if len(bounds) > 2 {
			return nil, &LabelError{Label: label, Part: part, Reason: "too many '-' separators"}
		}
		appear, err := parseDate(bounds[0])
		if err != nil {
			return nil, &LabelError{Label: label, Part: part, Reason: err.Error()}
		}
		removed := openEnd
		if len(bounds) == 2 && strings.TrimSpace(bounds[1]) != "" {
			if removed, err = parseDate(bounds[1]); err != nil {
				return nil, &LabelError{Label: label, Part: part, Reason: err.Error()}
			}
		}
		if appear.After(removed) {
			return nil, &LabelError{Label: label, Part: part, Reason: "appear date is after removed date"}
		}
		states = append(states, NamedState{
			Name:      name,
			DateRange: DateInterval{Appear: appear, Removed: removed},
		})
	}
	return states, nil
}

func formatDate(t time.Time) string {
	return strings.ReplaceAll(t.UTC().Format("2006-01-02"), "-", "_")
}

// FormatLabel is the inverse of ParseLabel. Ends equal to openEnd are omitted.
func FormatLabel(states []NamedState, openEnd time.Time) string {
	var sb strings.Builder
	for i, s := range states {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(s.Name)
		sb.WriteByte('=')
		sb.WriteString(formatDate(s.DateRange.Appear))
		if !s.DateRange.Removed.Equal(openEnd) {
			sb.WriteByte('-')
			sb.WriteString(formatDate(s.DateRange.Removed))
		}
	}
	return sb.String()
}

// Operator is the railway that ran a station, decoded from the optional
// label prefix. It only affects tooltip badges.
type Operator int

const (
	OperatorMTR   Operator = iota // no prefix
	OperatorKCR                   // '^'
	OperatorJoint                 // '!'
)

func (o Operator) String() string {
	switch o {
	case OperatorKCR:
		return "KCR"
	case OperatorJoint:
		return "MTR+KCR"
	default:
		return "MTR"
	}
}

// StationLabel is a parsed station annotation.
type StationLabel struct {
	Operator  Operator
	Redundant bool
	States    []NamedState
}

// ParseStationLabel strips the operator prefix ('^' or '!') and the
// redundancy marker ('*'), in that order, then parses the remainder.
func ParseStationLabel(label string, openEnd time.Time) (StationLabel, error) {
	var sl StationLabel
	rest := label
	switch {
	case strings.HasPrefix(rest, "^"):
		sl.Operator = OperatorKCR
		rest = rest[1:]
	case strings.HasPrefix(rest, "!"):
		sl.Operator = OperatorJoint
		rest = rest[1:]
	}
	if strings.HasPrefix(rest, "*") {
		sl.Redundant = true
		rest = rest[1:]
	}
	states, err := ParseLabel(rest, openEnd)
	if err != nil {
		return sl, err
	}
	sl.States = states
	return sl, nil
}
