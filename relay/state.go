package relay

import (
	"math"

	"go.viam.com/teleop/referenceframe"
	"go.viam.com/teleop/spatialmath"
)

// Frame shorthands for the fixed (non clutch-scoped) frames of the chain.
var (
	worldFrame             = referenceframe.NewFrame(referenceframe.World)
	mastersZeroFrame       = referenceframe.NewFrame(referenceframe.MastersZero)
	mastersZeroRefFrame    = referenceframe.NewFrame(referenceframe.MastersZeroRef)
	mastersCurrentFrame    = referenceframe.NewFrame(referenceframe.MastersCurrent)
	mastersCurrentRefFrame = referenceframe.NewFrame(referenceframe.MastersCurrentRef)
	mastersInitFrame       = referenceframe.NewFrame(referenceframe.MastersInit)
	yumiInitFrame          = referenceframe.NewFrame(referenceframe.YumiInit)
	yumiInitRefFrame       = referenceframe.NewFrame(referenceframe.YumiInitRef)
	yumiCurrentFrame       = referenceframe.NewFrame(referenceframe.YumiCurrent)
	yumiCurrentRefFrame    = referenceframe.NewFrame(referenceframe.YumiCurrentRef)
)

// Fixed cross-system calibration rotations between the masters workspace and
// the YuMi workspace. Constants of the installation: the masters x axis maps
// to the YuMi -y axis and vice versa, z is shared.
var (
	calibYumiCurrentRefToMastersCurrent = referenceframe.NewRigidTransform(
		yumiCurrentRefFrame, mastersCurrentFrame, spatialmath.NewRotationAroundZ(math.Pi/2))
	calibMastersInitToYumiInitRef = referenceframe.NewRigidTransform(
		mastersInitFrame, yumiInitRefFrame, spatialmath.NewRotationAroundZ(-math.Pi/2))
)

// relayState is the complete baseline state of one arm's relay. It is owned
// exclusively by the pose-forward path; reset and clutch events never mutate
// it in place, they enqueue update records applied by the owner (see relay.go).
type relayState struct {
	hasZeroed     bool
	clutchEngaged bool
	clutchEpoch   int

	// masters-side baselines
	clutchUpToMastersZero referenceframe.RigidTransform
	clutchUpToWorld       referenceframe.RigidTransform
	clutchDownToWorld     referenceframe.RigidTransform
	mastersZeroToZeroRef  referenceframe.RigidTransform
	currentRefToCurrent   referenceframe.RigidTransform

	// robot-side baselines
	yumiInitToWorld         referenceframe.RigidTransform
	initRefToYumiInit       referenceframe.RigidTransform
	yumiCurrentToCurrentRef referenceframe.RigidTransform
}

// applyReset computes the replacement baseline state for a zero/reset event.
// masterToWorld is the last master pose known at request time; robotPose is
// the robot's current pose in the world frame. Every prior baseline field is
// superseded; the clutch epoch and engagement survive, as does the last
// clutch-down snapshot so a clutch held across a reset still releases cleanly.
func applyReset(
	s relayState,
	masterToWorld referenceframe.RigidTransform,
	robotPose spatialmath.Pose,
) relayState {
	up := referenceframe.NewClutchFrame(referenceframe.ClutchUp, s.clutchEpoch)

	next := relayState{
		clutchEngaged:     s.clutchEngaged,
		clutchEpoch:       s.clutchEpoch,
		clutchDownToWorld: s.clutchDownToWorld,
	}
	next.clutchUpToMastersZero = referenceframe.NewZeroRigidTransform(up, mastersZeroFrame)
	next.clutchUpToWorld = masterToWorld.AsFrames(up, worldFrame)
	next.mastersZeroToZeroRef = next.clutchUpToWorld.Orientation(mastersZeroFrame, mastersZeroRefFrame)
	next.currentRefToCurrent = referenceframe.Invert(next.clutchUpToWorld).
		Orientation(mastersCurrentRefFrame, mastersCurrentFrame)

	next.yumiInitToWorld = referenceframe.NewRigidTransform(yumiInitFrame, worldFrame, robotPose)
	next.initRefToYumiInit = referenceframe.Invert(next.yumiInitToWorld).
		Orientation(yumiInitRefFrame, yumiInitFrame)
	next.yumiCurrentToCurrentRef = next.yumiInitToWorld.
		Orientation(yumiCurrentFrame, yumiCurrentRefFrame)

	next.hasZeroed = true
	return next
}

// applyClutch advances the clutch state machine. masterToWorld is the master
// pose snapshotted when the pedal event arrived. Events before the first zero
// are ignored entirely, as are repeats of the current pedal state.
//
// On engage the epoch increments and the master pose is captured under the
// new epoch's clutch-down frame. On release the motion accumulated while
// engaged is folded into the running baseline, so the operator can reposition
// freely while clutched and resume exactly where the robot left off.
func applyClutch(
	s relayState,
	engaged bool,
	masterToWorld referenceframe.RigidTransform,
) (relayState, error) {
	if !s.hasZeroed || engaged == s.clutchEngaged {
		return s, nil
	}

	next := s
	if engaged {
		next.clutchEpoch++
		down := referenceframe.NewClutchFrame(referenceframe.ClutchDown, next.clutchEpoch)
		next.clutchDownToWorld = masterToWorld.AsFrames(down, worldFrame)
	} else {
		up := referenceframe.NewClutchFrame(referenceframe.ClutchUp, s.clutchEpoch)
		bridge := referenceframe.NewZeroRigidTransform(
			up, referenceframe.NewClutchFrame(referenceframe.ClutchDown, s.clutchEpoch))

		folded, err := referenceframe.Compose(bridge, s.clutchDownToWorld)
		if err != nil {
			return s, err
		}
		folded, err = referenceframe.Compose(folded, referenceframe.Invert(s.clutchUpToWorld))
		if err != nil {
			return s, err
		}
		folded, err = referenceframe.Compose(folded, s.clutchUpToMastersZero)
		if err != nil {
			return s, err
		}

		next.clutchUpToMastersZero = folded
		next.clutchUpToWorld = masterToWorld.AsFrames(up, worldFrame)
	}
	next.clutchEngaged = engaged
	return next, nil
}

// robotTarget runs the full frame-algebra chain from a live master pose to
// the robot target pose in the world frame:
//
//	masters_current -> clutch_up -> masters_zero       (zero + clutch baselines)
//	re-based into masters_current_ref -> masters_zero_ref
//	reinterpreted as masters_current -> masters_init   (structural rebase)
//	calibrated into yumi_current_ref -> yumi_init_ref  (fixed Rz(±90°))
//	yumi_current -> world                              (robot-side baselines)
func (s *relayState) robotTarget(
	masterToWorld referenceframe.RigidTransform,
) (referenceframe.RigidTransform, error) {
	t, err := referenceframe.Compose(masterToWorld, referenceframe.Invert(s.clutchUpToWorld))
	if err != nil {
		return referenceframe.RigidTransform{}, err
	}
	t, err = referenceframe.Compose(t, s.clutchUpToMastersZero)
	if err != nil {
		return referenceframe.RigidTransform{}, err
	}
	t, err = referenceframe.Compose(s.currentRefToCurrent, t)
	if err != nil {
		return referenceframe.RigidTransform{}, err
	}
	t, err = referenceframe.Compose(t, s.mastersZeroToZeroRef)
	if err != nil {
		return referenceframe.RigidTransform{}, err
	}

	t = t.AsFrames(mastersCurrentFrame, mastersInitFrame)

	t, err = referenceframe.Compose(calibYumiCurrentRefToMastersCurrent, t)
	if err != nil {
		return referenceframe.RigidTransform{}, err
	}
	t, err = referenceframe.Compose(t, calibMastersInitToYumiInitRef)
	if err != nil {
		return referenceframe.RigidTransform{}, err
	}

	t, err = referenceframe.Compose(s.yumiCurrentToCurrentRef, t)
	if err != nil {
		return referenceframe.RigidTransform{}, err
	}
	t, err = referenceframe.Compose(t, s.initRefToYumiInit)
	if err != nil {
		return referenceframe.RigidTransform{}, err
	}
	return referenceframe.Compose(t, s.yumiInitToWorld)
}
