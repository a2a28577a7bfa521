package pose

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const floatTolerance = 1e-9

func TestEncode_Identity(t *testing.T) {
	assert.Equal(t, Packed{0, 0, 0}, Encode(0, 0, 0))
}

func TestEncode_SingleAxis(t *testing.T) {
	a := math.Pi / 6
	s := math.Sin(a / 2)

	tests := []struct {
		name            string
		tilt, nod, turn float64
		want            Packed
	}{
		{"tilt about x", a, 0, 0, Packed{s, 0, 0}},
		{"nod about y", 0, a, 0, Packed{0, s, 0}},
		{"turn about z", 0, 0, a, Packed{0, 0, s}},
		{"negative nod", 0, -a, 0, Packed{0, -s, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(tt.tilt, tt.nod, tt.turn)
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], floatTolerance, "component %d", i)
			}
		})
	}
}

func TestEncode_ScalarNonNegative(t *testing.T) {
	// A turn past π flips the quaternion; packing must keep w >= 0.
	p := Encode(0, 0, 1.5*math.Pi)
	q := p.Quat()
	assert.GreaterOrEqual(t, q.Real, 0.0)
	assert.InDelta(t, -math.Sin(math.Pi/4), p[2], floatTolerance)
}

func TestEncode_Deterministic(t *testing.T) {
	a := Encode(0.1, -0.2, 0.3)
	b := Encode(0.1, -0.2, 0.3)
	assert.Equal(t, a, b)
}

func TestPacked_RoundTrip(t *testing.T) {
	tests := []Euler{
		{},
		{Tilt: 0.2},
		{Nod: -0.4},
		{Turn: 0.5},
		{Tilt: 0.1, Nod: 0.3, Turn: -0.7},
		{Tilt: -1.0, Nod: 0.9, Turn: 2.5},
	}

	for _, e := range tests {
		got := e.Encode().Euler()
		assert.InDelta(t, e.Tilt, got.Tilt, 1e-9, "tilt for %+v", e)
		assert.InDelta(t, e.Nod, got.Nod, 1e-9, "nod for %+v", e)
		assert.InDelta(t, e.Turn, got.Turn, 1e-9, "turn for %+v", e)
	}
}

func TestPacked_UnitLength(t *testing.T) {
	p := Encode(0.4, -0.3, 1.1)
	n := p[0]*p[0] + p[1]*p[1] + p[2]*p[2]
	assert.Less(t, n, 1.0)

	q := p.Quat()
	assert.InDelta(t, 1.0, q.Real*q.Real+n, floatTolerance)
}

func TestUpdate_SetGet(t *testing.T) {
	u := Update{}
	u.Set("mHead", LocalRotation, Packed{0.1, 0, 0})
	u.Set("mHead", Position, Packed{0, 0, 1})
	u.Set("mNeck", LocalRotation, Packed{0, 0.2, 0})

	assert.Equal(t, 2, u.Joints())

	got, ok := u.Get("mHead", Position)
	require.True(t, ok)
	assert.Equal(t, Packed{0, 0, 1}, got)

	_, ok = u.Get("mWristLeft", LocalRotation)
	assert.False(t, ok)
}

func TestUpdate_JSONShape(t *testing.T) {
	u := LocalRotationUpdate("mHead", Packed{0.25, -0.5, 0})

	data, err := json.Marshal(u)
	require.NoError(t, err)

	var decoded map[string]map[string][]float64
	require.NoError(t, json.Unmarshal(data, &decoded))

	want := map[string]map[string][]float64{
		"mHead": {"local_rot": {0.25, -0.5, 0}},
	}
	if diff := cmp.Diff(want, decoded, cmpopts.EquateApprox(0, floatTolerance)); diff != "" {
		t.Errorf("update JSON mismatch (-want +got):\n%s", diff)
	}
}
