// Package spatial provides the small vector and quaternion toolkit used by
// the kinematic model and the IK solver.
package spatial

import "math"

// Vec3 is a 3-component vector (position, axis, rotation vector).
type Vec3 [3]float64

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

// Cross returns the cross product v x o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Quat is a scalar-first unit quaternion (W, X, Y, Z).
type Quat struct {
	W, X, Y, Z float64
}

// QuatIdentity returns the identity rotation.
func QuatIdentity() Quat {
	return Quat{W: 1}
}

// Mul returns the Hamilton product q * o (o applied first).
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
	}
}

// Conj returns the conjugate (inverse for unit quaternions).
func (q Quat) Conj() Quat {
	return Quat{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

// Normalize returns q scaled to unit length. A degenerate zero quaternion
// normalizes to identity.
func (q Quat) Normalize() Quat {
	n := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if n == 0 {
		return QuatIdentity()
	}
	return Quat{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}

// RotateVec rotates v by q.
func (q Quat) RotateVec(v Vec3) Vec3 {
	// v' = v + 2*u x (u x v + w*v), u = (X,Y,Z)
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).Add(v.Scale(q.W))
	return v.Add(u.Cross(t).Scale(2))
}

// FromAxisAngle builds the rotation of angle radians about axis. The axis
// need not be normalized; a zero axis yields identity.
func FromAxisAngle(axis Vec3, angle float64) Quat {
	n := axis.Norm()
	if n == 0 || angle == 0 {
		return QuatIdentity()
	}
	s := math.Sin(angle/2) / n
	return Quat{
		W: math.Cos(angle / 2),
		X: axis[0] * s,
		Y: axis[1] * s,
		Z: axis[2] * s,
	}
}

// ToAxisAngle extracts the rotation vector (axis * angle) of q under the
// shortest-arc convention: q and -q map to the same rotation vector, with
// angle in [0, pi].
func (q Quat) ToAxisAngle() Vec3 {
	if q.W < 0 {
		q = Quat{W: -q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
	}
	sin := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if sin < 1e-12 {
		return Vec3{}
	}
	w := q.W
	if w > 1 {
		w = 1
	}
	angle := 2 * math.Atan2(sin, w)
	return Vec3{q.X, q.Y, q.Z}.Scale(angle / sin)
}

// FromEulerXYZ composes a rotation from intrinsic XYZ Euler angles
// (roll about x, then pitch about the rotated y, then yaw about the
// rotated z).
func FromEulerXYZ(e Vec3) Quat {
	qx := FromAxisAngle(Vec3{1, 0, 0}, e[0])
	qy := FromAxisAngle(Vec3{0, 1, 0}, e[1])
	qz := FromAxisAngle(Vec3{0, 0, 1}, e[2])
	return qx.Mul(qy).Mul(qz)
}

// Clamp bounds x into [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
