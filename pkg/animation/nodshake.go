package animation

import (
	"errors"
	"fmt"
	"math"

	"github.com/teslashibe/go-puppet/pkg/oscillator"
	"github.com/teslashibe/go-puppet/pkg/pose"
)

// Default NodShake settings (time units are seconds when driven by pkg/player).
const (
	DefaultPulsePeriod       = 16.0
	DefaultOscillationPeriod = 2.0
	DefaultAmplitude         = math.Pi / 6
	DefaultJoint             = "mHead"
)

// ErrInvalidConfig is returned by NewNodShake for unusable settings.
var ErrInvalidConfig = errors.New("animation: invalid config")

// Config configures a NodShake animation.
type Config struct {
	PulsePeriod       float64 // Time for one full nod+shake cycle
	OscillationPeriod float64 // Time for one swing within a gesture
	Amplitude         float64 // Peak rotation in radians
	Joint             string  // Joint receiving the rotation
}

// DefaultConfig returns the standard head nod/shake settings.
func DefaultConfig() Config {
	return Config{
		PulsePeriod:       DefaultPulsePeriod,
		OscillationPeriod: DefaultOscillationPeriod,
		Amplitude:         DefaultAmplitude,
		Joint:             DefaultJoint,
	}
}

// NodShake alternately nods and shakes a head joint.
//
// A slow pulse oscillator picks the gesture by its sign and also scales the
// swing, so each gesture fades in and out through zero instead of switching
// abruptly. A faster rotation oscillator supplies the swing itself.
type NodShake struct {
	pulsor    *oscillator.Oscillator
	rotator   *oscillator.Oscillator
	amplitude float64
	joint     string
}

// NewNodShake creates the animation with both oscillators at phase 0.
func NewNodShake(cfg Config) (*NodShake, error) {
	if cfg.Joint == "" {
		return nil, fmt.Errorf("%w: empty joint name", ErrInvalidConfig)
	}
	if math.IsNaN(cfg.Amplitude) || math.IsInf(cfg.Amplitude, 0) {
		return nil, fmt.Errorf("%w: amplitude %v", ErrInvalidConfig, cfg.Amplitude)
	}

	pulsor, err := oscillator.NewWithPeriod(cfg.PulsePeriod, 0)
	if err != nil {
		return nil, fmt.Errorf("pulse oscillator: %w", err)
	}
	rotator, err := oscillator.NewWithPeriod(cfg.OscillationPeriod, 0)
	if err != nil {
		return nil, fmt.Errorf("rotation oscillator: %w", err)
	}

	return &NodShake{
		pulsor:    pulsor,
		rotator:   rotator,
		amplitude: cfg.Amplitude,
		joint:     cfg.Joint,
	}, nil
}

// Name returns "nod_shake".
func (n *NodShake) Name() string {
	return "nod_shake"
}

// Joint returns the joint the animation drives.
func (n *NodShake) Joint() string {
	return n.joint
}

// ComputeFrame advances both oscillators by dt and builds the frame.
// A pulse of exactly zero counts as shake.
func (n *NodShake) ComputeFrame(dt float64) Frame {
	n.pulsor.Advance(dt)
	n.rotator.Advance(dt)

	ps := n.pulsor.Sin()
	swing := n.amplitude * ps * n.rotator.Sin()

	var angles pose.Euler
	mode := ModeShake
	if ps > 0 {
		mode = ModeNod
		angles.Nod = swing
	} else {
		angles.Turn = swing
	}

	return Frame{
		Angles: angles,
		Mode:   mode,
		Update: pose.LocalRotationUpdate(n.joint, angles.Encode()),
	}
}
