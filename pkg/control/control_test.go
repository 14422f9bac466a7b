package control

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    Command
		wantErr bool
	}{
		{"seek", `{"type":"seek","time":486345600000}`, Command{Type: CommandSeek, Time: 486345600000}, false},
		{"toggle", `{"type":"toggle"}`, Command{Type: CommandToggle}, false},
		{"zoom in", `{"type":"zoom","direction":"in"}`, Command{Type: CommandZoom, Direction: ZoomIn}, false},
		{"zoom out", `{"type":"zoom","direction":"out"}`, Command{Type: CommandZoom, Direction: ZoomOut}, false},
		{"bad direction", `{"type":"zoom","direction":"up"}`, Command{}, true},
		{"unknown type", `{"type":"rewind"}`, Command{}, true},
		{"not json", `seek`, Command{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.message))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCommand) {
					t.Errorf("Expected ErrInvalidCommand, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Command mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		want    Command
		wantErr bool
	}{
		{"toggle", Command{Type: CommandToggle}, false},
		{"  zoom in ", Command{Type: CommandZoom, Direction: ZoomIn}, false},
		{"zoom out", Command{Type: CommandZoom, Direction: ZoomOut}, false},
		{"seek 1985-05-31", Seek(time.Date(1985, time.May, 31, 0, 0, 0, 0, time.UTC)), false},
		{"", Command{}, true},
		{"toggle now", Command{}, true},
		{"zoom", Command{}, true},
		{"zoom sideways", Command{}, true},
		{"seek 31/05/1985", Command{}, true},
		{"play", Command{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCommand) {
					t.Errorf("Expected ErrInvalidCommand, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLine: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Command mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSeekAt(t *testing.T) {
	at := time.Date(2007, time.December, 2, 0, 0, 0, 0, time.UTC)
	if got := Seek(at).At(); !got.Equal(at) {
		t.Errorf("Expected %v, got %v", at, got)
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	var conns []*websocket.Conn
	for range 2 {
		c, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("Dial failed: %v", err)
		}
		defer c.Close()
		conns = append(conns, c)
	}

	deadline := time.Now().Add(5 * time.Second)
	for hub.Clients() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected 2 viewers, got %d", hub.Clients())
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Broadcast(Command{Type: CommandZoom, Direction: ZoomIn})
	for i, c := range conns {
		_ = c.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := c.ReadMessage()
		if err != nil {
			t.Fatalf("Viewer %d read failed: %v", i, err)
		}
		got, err := Decode(msg)
		if err != nil {
			t.Fatalf("Viewer %d got an invalid message %s: %v", i, msg, err)
		}
		if want := (Command{Type: CommandZoom, Direction: ZoomIn}); got != want {
			t.Errorf("Viewer %d: expected %+v, got %+v", i, want, got)
		}
	}

	_ = conns[0].Close()
	for hub.Clients() > 1 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected the closed viewer to unregister, got %d", hub.Clients())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type recorder []Command

func (r *recorder) Broadcast(cmd Command) { *r = append(*r, cmd) }

func TestSweep(t *testing.T) {
	from := time.Date(1979, time.October, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(1980, time.October, 1, 0, 0, 0, 0, time.UTC)

	var got recorder
	n, err := Sweep(context.Background(), &got, from, to, 4, rate.NewLimiter(rate.Inf, 1))
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	want := recorder{
		Seek(from),
		Seek(time.Date(1980, time.February, 1, 0, 0, 0, 0, time.UTC)),
		Seek(time.Date(1980, time.June, 1, 0, 0, 0, 0, time.UTC)),
		Seek(to),
	}
	if n != len(want) {
		t.Errorf("Expected %d seeks, got %d", len(want), n)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Seeks mismatch (-want +got):\n%s", diff)
	}
}

func TestSweepErrors(t *testing.T) {
	from := time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)
	var got recorder
	if _, err := Sweep(context.Background(), &got, from, from, 0, rate.NewLimiter(rate.Inf, 1)); err == nil {
		t.Error("Expected an error for a zero step")
	}
	if _, err := Sweep(context.Background(), &got, from, from.AddDate(-1, 0, 0), 1, rate.NewLimiter(rate.Inf, 1)); err == nil {
		t.Error("Expected an error for a backwards sweep")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := Sweep(ctx, &got, from, from.AddDate(1, 0, 0), 1, rate.NewLimiter(1, 1))
	if err == nil {
		t.Error("Expected a cancelled sweep to fail")
	}
	if n != 0 || len(got) != 0 {
		t.Errorf("Expected no seeks after cancel, got %d", n)
	}
}
