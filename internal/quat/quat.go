// Package quat provides the quaternion math used to rotate sensor-frame
// vectors into a stable world frame and to measure angular displacement
// between orientations. All functions are pure and allocation-free.
package quat

import (
	"math"

	"github.com/liftlab-data/rom.engine/internal/units"
)

// NormToleranceSquared is the squared-norm floor below which a quaternion is
// treated as degenerate and replaced by the identity rather than normalized.
const NormToleranceSquared = 1e-12

// Quat is a unit quaternion in (w, x, y, z) order.
type Quat struct {
	W, X, Y, Z float64
}

// Identity returns the identity rotation.
func Identity() Quat {
	return Quat{W: 1}
}

// Conjugate returns the quaternion's conjugate. For unit quaternions this is
// the inverse rotation.
func (q Quat) Conjugate() Quat {
	return Quat{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

// NormSquared returns the squared norm of q.
func (q Quat) NormSquared() float64 {
	return q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z
}

// Normalized returns q scaled to unit length. A near-zero quaternion
// degrades to the identity instead of producing NaNs.
func (q Quat) Normalized() Quat {
	n2 := q.NormSquared()
	if n2 < NormToleranceSquared {
		return Identity()
	}
	s := 1.0 / math.Sqrt(n2)
	return Quat{W: q.W * s, X: q.X * s, Y: q.Y * s, Z: q.Z * s}
}

// Dot returns the four-component dot product of two quaternions.
func Dot(a, b Quat) float64 {
	return a.W*b.W + a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

// Multiply returns the Hamilton product a*b.
func Multiply(a, b Quat) Quat {
	return Quat{
		W: a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z,
		X: a.W*b.X + a.X*b.W + a.Y*b.Z - a.Z*b.Y,
		Y: a.W*b.Y - a.X*b.Z + a.Y*b.W + a.Z*b.X,
		Z: a.W*b.Z + a.X*b.Y - a.Y*b.X + a.Z*b.W,
	}
}

// Euler holds roll/pitch/yaw in degrees.
type Euler struct {
	Roll, Pitch, Yaw float64
}

// ToEuler extracts roll/pitch/yaw (degrees) from q. The pitch asin argument
// is clamped to [-1, 1] so gimbal-lock orientations yield ±90° rather than NaN.
func (q Quat) ToEuler() Euler {
	sinr := 2 * (q.W*q.X + q.Y*q.Z)
	cosr := 1 - 2*(q.X*q.X+q.Y*q.Y)
	roll := math.Atan2(sinr, cosr)

	sinp := 2 * (q.W*q.Y - q.Z*q.X)
	sinp = clamp(sinp, -1, 1)
	pitch := math.Asin(sinp)

	siny := 2 * (q.W*q.Z + q.X*q.Y)
	cosy := 1 - 2*(q.Y*q.Y+q.Z*q.Z)
	yaw := math.Atan2(siny, cosy)

	return Euler{Roll: units.RadToDeg(roll), Pitch: units.RadToDeg(pitch), Yaw: units.RadToDeg(yaw)}
}

// AngleBetween returns the rotation angle in degrees separating two unit
// quaternions. The result is symmetric, hemisphere-insensitive, and always
// in [0, 180]. acos is ill-conditioned near dot=1, so near-identical
// orientations snap to exactly zero instead of reporting rounding noise.
func AngleBetween(a, b Quat) float64 {
	d := math.Abs(Dot(a, b))
	if d >= 1-1e-12 {
		return 0
	}
	return units.RadToDeg(2 * math.Acos(d))
}

// RotateVector rotates the sensor-frame vector v into the world frame using
// the sandwich product q·v·q⁻¹.
func RotateVector(vx, vy, vz float64, q Quat) (float64, float64, float64) {
	v := Quat{W: 0, X: vx, Y: vy, Z: vz}
	r := Multiply(Multiply(q, v), q.Conjugate())
	return r.X, r.Y, r.Z
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
