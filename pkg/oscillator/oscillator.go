// Package oscillator provides a phase-continuous simple harmonic oscillator.
//
// An Oscillator keeps an internal phase-time t which is advanced by elapsed
// time and kept within one period of zero. Wrapping only touches the
// bookkeeping value; Sin, Cos and Theta modulo 2π are unaffected by it.
package oscillator

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrZeroFrequency is returned when an oscillator is built with frequency 0.
	ErrZeroFrequency = errors.New("oscillator: frequency must be non-zero")
	// ErrInvalidFrequency is returned for frequencies whose wave speed or
	// period is not finite: NaN, infinite, or too close to zero or too large
	// to invert.
	ErrInvalidFrequency = errors.New("oscillator: frequency must be finite")
	// ErrInvalidPhase is returned for a NaN or infinite initial phase.
	ErrInvalidPhase = errors.New("oscillator: phase must be finite")
)

// Oscillator is a simple harmonic motion generator.
type Oscillator struct {
	waveSpeed float64 // radians per unit time, always >= 0
	period    float64 // wrap modulus for t
	t         float64
}

// New creates an oscillator. The sign of frequency is ignored. phase is the
// initial angle in radians.
func New(frequency, phase float64) (*Oscillator, error) {
	if !finite(frequency) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidFrequency, frequency)
	}
	frequency = math.Abs(frequency)
	if frequency == 0 {
		return nil, ErrZeroFrequency
	}

	o := &Oscillator{
		waveSpeed: 2 * math.Pi * frequency,
		period:    1 / frequency,
	}
	if !finite(o.waveSpeed) || o.waveSpeed == 0 || !finite(o.period) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidFrequency, frequency)
	}

	o.t = phase / o.waveSpeed
	if !finite(phase) || !finite(o.t) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidPhase, phase)
	}
	o.wrap()
	return o, nil
}

// NewWithPeriod creates an oscillator completing one cycle every period
// time units.
func NewWithPeriod(period, phase float64) (*Oscillator, error) {
	if period == 0 {
		return nil, ErrZeroFrequency
	}
	return New(1/period, phase)
}

// Advance moves the oscillator forward by dt. Negative dt runs it backwards.
// NaN and infinite dt, and steps that would overflow t, are ignored so the
// phase stays finite.
func (o *Oscillator) Advance(dt float64) {
	t := o.t + dt
	if !finite(t) {
		return
	}
	o.t = t
	o.wrap()
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// wrap pulls t back into (-period, period). The integer factor truncates
// toward zero, so negative t stays negative.
func (o *Oscillator) wrap() {
	if o.t > o.period || o.t < -o.period {
		o.t -= math.Trunc(o.t/o.period) * o.period
	}
}

// Sin returns sin(theta).
func (o *Oscillator) Sin() float64 {
	return math.Sin(o.t * o.waveSpeed)
}

// Cos returns cos(theta).
func (o *Oscillator) Cos() float64 {
	return math.Cos(o.t * o.waveSpeed)
}

// Theta returns the current angle in radians. It lies within one full turn
// of zero.
func (o *Oscillator) Theta() float64 {
	return o.t * o.waveSpeed
}

// Frequency returns the (non-negative) frequency in cycles per unit time.
func (o *Oscillator) Frequency() float64 {
	return o.waveSpeed / (2 * math.Pi)
}

// Period returns the time for one full cycle.
func (o *Oscillator) Period() float64 {
	return o.period
}

// WaveSpeed returns the angular frequency in radians per unit time.
func (o *Oscillator) WaveSpeed() float64 {
	return o.waveSpeed
}

// Phase returns the raw phase-time accumulator.
func (o *Oscillator) Phase() float64 {
	return o.t
}
