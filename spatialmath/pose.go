// Package spatialmath defines the spatial mathematical operations underlying the
// teleoperation relay: rigid body poses as rotation quaternion plus translation,
// with composition and inversion.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// If two quaternions differ by less than this amount per component, we consider
// them the same for the purpose of pose comparison.
const defaultEpsilon = 1e-8

// Pose represents a rigid transformation in 3D space: a rotation followed by a
// translation. The zero value is not a valid Pose; use NewZeroPose instead,
// since the rotation quaternion must be a unit quaternion, not all zeroes.
// Poses are immutable value types and cheap to copy.
type Pose struct {
	rotation    quat.Number
	translation r3.Vector
}

// NewZeroPose returns a pose with no rotation and no translation.
func NewZeroPose() Pose {
	return Pose{rotation: quat.Number{Real: 1}}
}

// NewPose returns a pose with the given translation and rotation. The rotation
// quaternion is normalized.
func NewPose(translation r3.Vector, rotation quat.Number) Pose {
	return Pose{rotation: Normalize(rotation), translation: translation}
}

// NewPoseFromPoint returns a pose with the given translation and no rotation.
func NewPoseFromPoint(translation r3.Vector) Pose {
	return Pose{rotation: quat.Number{Real: 1}, translation: translation}
}

// NewPoseFromOrientation returns a pure-rotation pose.
func NewPoseFromOrientation(rotation quat.Number) Pose {
	return Pose{rotation: Normalize(rotation)}
}

// NewRotationAroundZ returns a pure rotation of theta radians about the
// positive z axis.
func NewRotationAroundZ(theta float64) Pose {
	return Pose{rotation: quat.Number{Real: math.Cos(theta / 2), Kmag: math.Sin(theta / 2)}}
}

// Point returns the translation component of the pose.
func (p Pose) Point() r3.Vector {
	return p.translation
}

// Rotation returns the rotation component of the pose as a unit quaternion.
func (p Pose) Rotation() quat.Number {
	return p.rotation
}

// Orientation returns a pure-rotation pose carrying only the rotation of p.
func (p Pose) Orientation() Pose {
	return Pose{rotation: p.rotation}
}

// Compose returns the pose equivalent to applying b first, then a. That is,
// for a point x, Compose(a, b) maps x to a(b(x)).
func Compose(a, b Pose) Pose {
	return Pose{
		rotation:    Normalize(quat.Mul(a.rotation, b.rotation)),
		translation: a.translation.Add(RotateVector(a.rotation, b.translation)),
	}
}

// Invert returns the pose that undoes p: Compose(p, Invert(p)) is the zero pose.
func Invert(p Pose) Pose {
	inv := quat.Conj(p.rotation)
	return Pose{
		rotation:    inv,
		translation: RotateVector(inv, p.translation).Mul(-1),
	}
}

// RotateVector rotates the vector v by the unit quaternion q.
func RotateVector(q quat.Number, v r3.Vector) r3.Vector {
	vq := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	rotated := quat.Mul(quat.Mul(q, vq), quat.Conj(q))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}
}

// Normalize scales q to a unit quaternion. A zero quaternion normalizes to the
// identity rotation rather than NaN.
func Normalize(q quat.Number) quat.Number {
	norm := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if norm == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/norm, q)
}

// QuaternionAlmostEqual returns whether two quaternions represent the same
// rotation, to within tol per component. q and -q are the same rotation.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	if quatComponentsAlmostEqual(a, b, tol) {
		return true
	}
	return quatComponentsAlmostEqual(a, quat.Scale(-1, b), tol)
}

func quatComponentsAlmostEqual(a, b quat.Number, tol float64) bool {
	return math.Abs(a.Real-b.Real) < tol &&
		math.Abs(a.Imag-b.Imag) < tol &&
		math.Abs(a.Jmag-b.Jmag) < tol &&
		math.Abs(a.Kmag-b.Kmag) < tol
}

// R3VectorAlmostEqual returns whether each component of a and b is within tol.
func R3VectorAlmostEqual(a, b r3.Vector, tol float64) bool {
	return math.Abs(a.X-b.X) < tol && math.Abs(a.Y-b.Y) < tol && math.Abs(a.Z-b.Z) < tol
}

// PoseAlmostEqual returns whether two poses are the same to within a small
// default tolerance.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, defaultEpsilon)
}

// PoseAlmostEqualEps is PoseAlmostEqual with a caller-chosen tolerance.
func PoseAlmostEqualEps(a, b Pose, tol float64) bool {
	return QuaternionAlmostEqual(a.rotation, b.rotation, tol) &&
		R3VectorAlmostEqual(a.translation, b.translation, tol)
}
