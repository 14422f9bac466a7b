// Package control defines the remote control protocol and a websocket hub
// that broadcasts commands to connected viewers.
package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	CommandSeek   = "seek"
	CommandToggle = "toggle"
	CommandZoom   = "zoom"

	ZoomIn  = "in"
	ZoomOut = "out"
)

var ErrInvalidCommand = errors.New("invalid remote command")

// Command is one message of the protocol:
//
//	{"type":"seek","time":<epoch ms>}
//	{"type":"toggle"}
//	{"type":"zoom","direction":"in"|"out"}
type Command struct {
	Type      string `json:"type"`
	Time      int64  `json:"time,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// Seek moves the clock to t.
func Seek(t time.Time) Command {
	return Command{Type: CommandSeek, Time: t.UnixMilli()}
}

// At is the seek target.
func (c Command) At() time.Time { return time.UnixMilli(c.Time).UTC() }

func (c Command) Validate() error {
	switch c.Type {
	case CommandSeek, CommandToggle:
		return nil
	case CommandZoom:
		if c.Direction != ZoomIn && c.Direction != ZoomOut {
			return fmt.Errorf("%w: zoom direction %q", ErrInvalidCommand, c.Direction)
		}
		return nil
	default:
		return fmt.Errorf("%w: type %q", ErrInvalidCommand, c.Type)
	}
}

// Decode parses and validates one message.
func Decode(message []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		return cmd, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	return cmd, cmd.Validate()
}

// ParseLine reads the console form of a command: "toggle", "zoom in",
// "zoom out" or "seek YYYY-MM-DD".
func ParseLine(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty line", ErrInvalidCommand)
	}
	switch fields[0] {
	case CommandToggle:
		if len(fields) != 1 {
			break
		}
		return Command{Type: CommandToggle}, nil
	case CommandZoom:
		if len(fields) != 2 {
			break
		}
		cmd := Command{Type: CommandZoom, Direction: fields[1]}
		return cmd, cmd.Validate()
	case CommandSeek:
		if len(fields) != 2 {
			break
		}
		t, err := time.ParseInLocation(time.DateOnly, fields[1], time.UTC)
		if err != nil {
			return Command{}, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
		return Seek(t), nil
	}
	return Command{}, fmt.Errorf("%w: %q", ErrInvalidCommand, line)
}
