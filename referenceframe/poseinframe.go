package referenceframe

import "go.viam.com/teleop/spatialmath"

// PoseInFrame is a data structure that packages a pose with the frame in which
// it was observed. It is what the relay publishes downstream: the robot target
// pose observed in the world frame.
type PoseInFrame struct {
	frame Frame
	pose  spatialmath.Pose
}

// NewPoseInFrame generates a new PoseInFrame.
func NewPoseInFrame(frame Frame, pose spatialmath.Pose) PoseInFrame {
	return PoseInFrame{frame: frame, pose: pose}
}

// Frame returns the frame in which the pose was observed.
func (pF PoseInFrame) Frame() Frame {
	return pF.frame
}

// Pose returns the pose that was observed.
func (pF PoseInFrame) Pose() spatialmath.Pose {
	return pF.pose
}

// AlmostEqual returns whether the other PoseInFrame is in the same frame with
// approximately the same pose.
func (pF PoseInFrame) AlmostEqual(other PoseInFrame) bool {
	return pF.frame == other.frame && spatialmath.PoseAlmostEqual(pF.pose, other.pose)
}
