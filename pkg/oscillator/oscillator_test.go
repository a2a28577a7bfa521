package oscillator

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

// angleEquals compares two angles modulo 2π.
func angleEquals(a, b float64) bool {
	return math.Abs(math.Remainder(a-b, 2*math.Pi)) < floatTolerance
}

func mustNew(t *testing.T, frequency, phase float64) *Oscillator {
	t.Helper()
	o, err := New(frequency, phase)
	if err != nil {
		t.Fatalf("New(%v, %v) error = %v", frequency, phase, err)
	}
	return o
}

func TestNew_Derived(t *testing.T) {
	tests := []struct {
		name      string
		frequency float64
		wantSpeed float64
		wantPer   float64
	}{
		{"one hertz", 1, 2 * math.Pi, 1},
		{"sixteenth", 1.0 / 16, math.Pi / 8, 16},
		{"negative is mirrored", -0.5, math.Pi, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := mustNew(t, tt.frequency, 0)
			if !floatEquals(o.WaveSpeed(), tt.wantSpeed) {
				t.Errorf("WaveSpeed() = %v, want %v", o.WaveSpeed(), tt.wantSpeed)
			}
			if !floatEquals(o.Period(), tt.wantPer) {
				t.Errorf("Period() = %v, want %v", o.Period(), tt.wantPer)
			}
			if o.WaveSpeed() < 0 {
				t.Errorf("WaveSpeed() = %v, must be non-negative", o.WaveSpeed())
			}
			if !floatEquals(o.Frequency(), math.Abs(tt.frequency)) {
				t.Errorf("Frequency() = %v, want %v", o.Frequency(), math.Abs(tt.frequency))
			}
		})
	}
}

func TestNew_RejectsBadFrequency(t *testing.T) {
	tests := []struct {
		name      string
		frequency float64
		want      error
	}{
		{"zero", 0, ErrZeroFrequency},
		{"negative zero", math.Copysign(0, -1), ErrZeroFrequency},
		{"nan", math.NaN(), ErrInvalidFrequency},
		{"inf", math.Inf(1), ErrInvalidFrequency},
		{"minus inf", math.Inf(-1), ErrInvalidFrequency},
		{"subnormal period overflows", 1e-310, ErrInvalidFrequency},
		{"wave speed overflows", math.MaxFloat64, ErrInvalidFrequency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := New(tt.frequency, 0)
			if !errors.Is(err, tt.want) {
				t.Fatalf("New(%v) error = %v, want %v", tt.frequency, err, tt.want)
			}
			if o != nil {
				t.Errorf("New(%v) returned non-nil oscillator on error", tt.frequency)
			}
		})
	}
}

func TestNew_RejectsBadPhase(t *testing.T) {
	tests := []struct {
		name      string
		frequency float64
		phase     float64
	}{
		{"nan", 1, math.NaN()},
		{"inf", 1, math.Inf(1)},
		{"minus inf", 1, math.Inf(-1)},
		{"phase time overflows", 1e-300, math.MaxFloat64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := New(tt.frequency, tt.phase)
			if !errors.Is(err, ErrInvalidPhase) {
				t.Fatalf("New(%v, %v) error = %v, want ErrInvalidPhase", tt.frequency, tt.phase, err)
			}
			if o != nil {
				t.Errorf("New(%v, %v) returned non-nil oscillator on error", tt.frequency, tt.phase)
			}
		})
	}
}

func TestNewWithPeriod(t *testing.T) {
	o, err := NewWithPeriod(2, 0)
	if err != nil {
		t.Fatalf("NewWithPeriod() error = %v", err)
	}
	if !floatEquals(o.Period(), 2) {
		t.Errorf("Period() = %v, want 2", o.Period())
	}

	if _, err := NewWithPeriod(0, 0); !errors.Is(err, ErrZeroFrequency) {
		t.Errorf("NewWithPeriod(0) error = %v, want ErrZeroFrequency", err)
	}
	if _, err := NewWithPeriod(math.Inf(1), 0); !errors.Is(err, ErrZeroFrequency) {
		t.Errorf("NewWithPeriod(+Inf) error = %v, want ErrZeroFrequency", err)
	}
}

func TestQuarterPeriod(t *testing.T) {
	o := mustNew(t, 1.0/16, 0)
	o.Advance(4.0)

	if !floatEquals(o.Sin(), 1.0) {
		t.Errorf("Sin() = %v, want 1", o.Sin())
	}
	if !floatEquals(o.Cos(), 0.0) {
		t.Errorf("Cos() = %v, want 0", o.Cos())
	}
	if !floatEquals(o.Theta(), math.Pi/2) {
		t.Errorf("Theta() = %v, want π/2", o.Theta())
	}
}

func TestQueriesBeforeAdvance(t *testing.T) {
	o := mustNew(t, 0.5, 0)
	if o.Sin() != 0 || o.Cos() != 1 || o.Theta() != 0 {
		t.Errorf("fresh oscillator: sin=%v cos=%v theta=%v, want 0 1 0", o.Sin(), o.Cos(), o.Theta())
	}

	// Queries have no side effects.
	for i := 0; i < 3; i++ {
		_ = o.Sin()
		_ = o.Cos()
	}
	if o.Phase() != 0 {
		t.Errorf("Phase() = %v after queries, want 0", o.Phase())
	}
}

func TestInitialPhase(t *testing.T) {
	o := mustNew(t, 1, math.Pi/2)
	if !floatEquals(o.Sin(), 1) {
		t.Errorf("Sin() = %v, want 1 for phase π/2", o.Sin())
	}

	// 3π at 1 Hz is 1.5 time units, wrapped to 0.5.
	o = mustNew(t, 1, 3*math.Pi)
	if !floatEquals(o.Phase(), 0.5) {
		t.Errorf("Phase() = %v, want 0.5", o.Phase())
	}
	if !floatEquals(o.Cos(), -1) {
		t.Errorf("Cos() = %v, want -1", o.Cos())
	}
}

func TestWrap_TruncatesTowardZero(t *testing.T) {
	tests := []struct {
		name string
		dt   float64
		want float64
	}{
		{"positive overflow", 2.5, 0.5},
		{"negative overflow keeps sign", -2.5, -0.5},
		{"inside range untouched", 0.75, 0.75},
		{"negative inside range untouched", -0.75, -0.75},
		{"boundary left alone", 1.0, 1.0},
		{"negative boundary left alone", -1.0, -1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := mustNew(t, 1, 0)
			o.Advance(tt.dt)
			if !floatEquals(o.Phase(), tt.want) {
				t.Errorf("Advance(%v): Phase() = %v, want %v", tt.dt, o.Phase(), tt.want)
			}
		})
	}
}

func TestWrap_StaysWithinPeriod(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	o := mustNew(t, 0.3, 0)

	for i := 0; i < 10000; i++ {
		o.Advance((rng.Float64() - 0.3) * 20)
		if math.Abs(o.Phase()) > o.Period()+floatTolerance {
			t.Fatalf("step %d: Phase() = %v outside ±%v", i, o.Phase(), o.Period())
		}
	}
}

func TestWrap_PreservesWaveform(t *testing.T) {
	o := mustNew(t, 1, 0)
	o.Advance(0.999)
	before := o.Theta()

	// Crosses the period boundary and wraps.
	o.Advance(0.002)
	after := o.Theta()

	if !angleEquals(after-before, 2*math.Pi*0.002) {
		t.Errorf("theta jumped across wrap: before=%v after=%v", before, after)
	}
	if !floatEquals(o.Sin(), math.Sin(2*math.Pi*1.001)) {
		t.Errorf("Sin() = %v, want %v", o.Sin(), math.Sin(2*math.Pi*1.001))
	}
}

func TestAdvance_SplitInvariance(t *testing.T) {
	splits := [][]float64{
		{37.3},
		{10, 10, 10, 7.3},
		{0.1, 0.2, 30, 7},
		{50, -12.7},
		{-5, 42.3},
		{0, 0, 37.3, 0},
	}

	ref := mustNew(t, 1.0/16, 0.4)
	ref.Advance(37.3)

	for _, steps := range splits {
		o := mustNew(t, 1.0/16, 0.4)
		for _, dt := range steps {
			o.Advance(dt)
		}
		if !floatEquals(o.Sin(), ref.Sin()) {
			t.Errorf("steps %v: Sin() = %v, want %v", steps, o.Sin(), ref.Sin())
		}
		if !floatEquals(o.Cos(), ref.Cos()) {
			t.Errorf("steps %v: Cos() = %v, want %v", steps, o.Cos(), ref.Cos())
		}
		if !angleEquals(o.Theta(), ref.Theta()) {
			t.Errorf("steps %v: Theta() = %v, want %v (mod 2π)", steps, o.Theta(), ref.Theta())
		}
	}
}

func TestAdvance_ManySmallSteps(t *testing.T) {
	// 10000 frames of 0.1 matches one jump of 1000 within accumulated rounding.
	a := mustNew(t, 0.5, 0)
	b := mustNew(t, 0.5, 0)
	for i := 0; i < 10000; i++ {
		a.Advance(0.1)
	}
	b.Advance(1000)

	if math.Abs(a.Sin()-b.Sin()) > 1e-6 {
		t.Errorf("Sin() drifted: stepped=%v jumped=%v", a.Sin(), b.Sin())
	}
}

func TestOutputsBounded(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for _, f := range []float64{0.01, 1.0 / 16, 0.5, 3, 250} {
		o := mustNew(t, f, rng.Float64()*10)
		for i := 0; i < 2000; i++ {
			o.Advance(rng.NormFloat64() * 5)
			if s := o.Sin(); s < -1 || s > 1 {
				t.Fatalf("f=%v: Sin() = %v out of range", f, s)
			}
			if c := o.Cos(); c < -1 || c > 1 {
				t.Fatalf("f=%v: Cos() = %v out of range", f, c)
			}
			if math.Abs(o.Theta()) > 2*math.Pi+floatTolerance {
				t.Fatalf("f=%v: Theta() = %v exceeds one turn", f, o.Theta())
			}
		}
	}
}

func TestAdvance_IgnoresNonFinite(t *testing.T) {
	o := mustNew(t, 1, 0)
	o.Advance(0.25)

	for _, dt := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		o.Advance(dt)
		if !floatEquals(o.Phase(), 0.25) {
			t.Fatalf("Advance(%v) changed phase to %v", dt, o.Phase())
		}
	}
	if !floatEquals(o.Sin(), 1) {
		t.Errorf("Sin() = %v, want 1", o.Sin())
	}
}
