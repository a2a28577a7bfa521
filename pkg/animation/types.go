// Package animation turns elapsed time into joint pose updates.
//
// An Animation is advanced one frame at a time by whoever owns the clock
// (see pkg/player). It never reads the wall clock itself, so the same dt
// sequence always yields the same frames.
package animation

import (
	"fmt"

	"github.com/teslashibe/go-puppet/pkg/pose"
)

// Animation produces one frame per call.
type Animation interface {
	// Name returns the animation identifier (for logging).
	Name() string

	// ComputeFrame advances the animation by dt time units and returns the
	// resulting frame.
	ComputeFrame(dt float64) Frame
}

// Mode is the head gesture a NodShake frame belongs to.
type Mode int

const (
	// ModeShake turns the head side to side.
	ModeShake Mode = iota
	// ModeNod tips the head up and down.
	ModeNod
)

// String returns "nod" or "shake".
func (m Mode) String() string {
	switch m {
	case ModeNod:
		return "nod"
	case ModeShake:
		return "shake"
	default:
		return "unknown"
	}
}

// MarshalText lets Mode appear as a string in JSON.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses "nod" or "shake".
func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "nod":
		*m = ModeNod
	case "shake":
		*m = ModeShake
	default:
		return fmt.Errorf("animation: unknown mode %q", text)
	}
	return nil
}

// Frame is one computed pose.
type Frame struct {
	Angles pose.Euler  `json:"angles"`
	Mode   Mode        `json:"mode"`
	Update pose.Update `json:"update"`
}
