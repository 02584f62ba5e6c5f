package referenceframe

import (
	"fmt"

	"go.viam.com/teleop/spatialmath"
)

// RigidTransform is a pose labeled with the pair of frames it relates. A
// transform with From A and To B maps coordinates expressed in frame A into
// frame B. Immutable value type; cheap to copy.
type RigidTransform struct {
	pose spatialmath.Pose
	from Frame
	to   Frame
}

// NewRigidTransform returns a transform from frame `from` to frame `to` with
// the given pose payload.
func NewRigidTransform(from, to Frame, pose spatialmath.Pose) RigidTransform {
	return RigidTransform{pose: pose, from: from, to: to}
}

// NewZeroRigidTransform returns an identity transform between the given frames.
func NewZeroRigidTransform(from, to Frame) RigidTransform {
	return RigidTransform{pose: spatialmath.NewZeroPose(), from: from, to: to}
}

// Pose returns the numeric payload of the transform.
func (t RigidTransform) Pose() spatialmath.Pose {
	return t.pose
}

// From returns the frame the transform maps from.
func (t RigidTransform) From() Frame {
	return t.from
}

// To returns the frame the transform maps to.
func (t RigidTransform) To() Frame {
	return t.to
}

// Orientation returns a pure-rotation copy of the transform between the given
// frames.
func (t RigidTransform) Orientation(from, to Frame) RigidTransform {
	return RigidTransform{pose: t.pose.Orientation(), from: from, to: to}
}

// AsFrames reinterprets the transform under new frame labels without altering
// the numeric payload. Used when a transform computed for one relation is
// reused for a structurally identical one.
func (t RigidTransform) AsFrames(from, to Frame) RigidTransform {
	return RigidTransform{pose: t.pose, from: from, to: to}
}

func (t RigidTransform) String() string {
	return fmt.Sprintf("%s->%s", t.from, t.to)
}

// Compose chains aToB with bToC to produce a transform from aToB.From to
// bToC.To. The inner frame labels must match structurally or a
// FrameMismatchError is returned.
func Compose(aToB, bToC RigidTransform) (RigidTransform, error) {
	if aToB.to != bToC.from {
		return RigidTransform{}, NewFrameMismatchError(aToB.to, bToC.from)
	}
	return RigidTransform{
		pose: spatialmath.Compose(bToC.pose, aToB.pose),
		from: aToB.from,
		to:   bToC.to,
	}, nil
}

// Invert returns the transform mapping in the opposite direction, with the
// frame labels swapped.
func Invert(t RigidTransform) RigidTransform {
	return RigidTransform{
		pose: spatialmath.Invert(t.pose),
		from: t.to,
		to:   t.from,
	}
}

// AlmostEqual returns whether two transforms relate the same frames with the
// same pose, to within a small numeric tolerance.
func AlmostEqual(a, b RigidTransform) bool {
	return a.from == b.from && a.to == b.to && spatialmath.PoseAlmostEqual(a.pose, b.pose)
}
