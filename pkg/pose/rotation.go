package pose

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Euler is an avatar joint orientation in radians.
//
// The head frame used by the host:
//
//	tilt: rotation about X (ear to shoulder)
//	nod:  rotation about Y (chin down / up)
//	turn: rotation about Z (look left / right)
type Euler struct {
	Tilt float64 `json:"tilt"`
	Nod  float64 `json:"nod"`
	Turn float64 `json:"turn"`
}

// Packed is a unit quaternion with its scalar part dropped. The scalar is
// always non-negative so it can be recovered from x, y and z.
type Packed [3]float64

// Encode converts Euler angles to a packed rotation. Rotations are applied
// in ZYX order (turn, then nod, then tilt), matching the host's
// quaternion-from-Euler convention.
func Encode(tilt, nod, turn float64) Packed {
	qx := quat.Number{Real: math.Cos(tilt / 2), Imag: math.Sin(tilt / 2)}
	qy := quat.Number{Real: math.Cos(nod / 2), Jmag: math.Sin(nod / 2)}
	qz := quat.Number{Real: math.Cos(turn / 2), Kmag: math.Sin(turn / 2)}

	return Pack(quat.Mul(quat.Mul(qz, qy), qx))
}

// Encode packs e.
func (e Euler) Encode() Packed {
	return Encode(e.Tilt, e.Nod, e.Turn)
}

// Pack normalizes q and drops its scalar part. q and -q are the same
// rotation; the one with a non-negative scalar is kept.
func Pack(q quat.Number) Packed {
	if n := quat.Abs(q); n > 0 {
		q = quat.Scale(1/n, q)
	}
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return Packed{q.Imag, q.Jmag, q.Kmag}
}

// Quat restores the unit quaternion held by p.
func (p Packed) Quat() quat.Number {
	w := 1 - p[0]*p[0] - p[1]*p[1] - p[2]*p[2]
	if w < 0 {
		w = 0
	}
	return quat.Number{Real: math.Sqrt(w), Imag: p[0], Jmag: p[1], Kmag: p[2]}
}

// Euler converts p back to tilt, nod and turn.
func (p Packed) Euler() Euler {
	q := p.Quat()
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	sinNod := 2 * (w*y - z*x)
	if sinNod > 1 {
		sinNod = 1
	} else if sinNod < -1 {
		sinNod = -1
	}

	return Euler{
		Tilt: math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y)),
		Nod:  math.Asin(sinNod),
		Turn: math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z)),
	}
}
