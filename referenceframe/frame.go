// Package referenceframe defines the named coordinate frames of the
// masters/robot teleoperation chain and rigid transforms between them.
// Transforms are always labeled with the pair of frames they relate, and
// composition checks those labels so that a transform computed for one clutch
// cycle can never be silently reused in another.
package referenceframe

import "fmt"

// FrameKind enumerates every coordinate frame in the teleoperation chain.
type FrameKind uint8

const (
	// World is the fixed world frame shared by the masters and the robot.
	World FrameKind = iota
	// MastersZero is the masters frame captured at zero time.
	MastersZero
	// MastersZeroRef is MastersZero re-based by the zero-time masters rotation.
	MastersZeroRef
	// MastersCurrent is the live masters frame.
	MastersCurrent
	// MastersCurrentRef is MastersCurrent re-based by the zero-time masters rotation.
	MastersCurrentRef
	// MastersInit is the masters frame on the calibration boundary; structurally
	// identical to MastersZeroRef.
	MastersInit
	// YumiInit is the robot frame captured at zero time.
	YumiInit
	// YumiInitRef is YumiInit re-based by the zero-time robot rotation.
	YumiInitRef
	// YumiCurrent is the live robot target frame.
	YumiCurrent
	// YumiCurrentRef is YumiCurrent re-based by the zero-time robot rotation.
	YumiCurrentRef
	// ClutchUp is the masters frame at a clutch release, scoped by epoch.
	ClutchUp
	// ClutchDown is the masters frame at a clutch press, scoped by epoch.
	ClutchDown
)

func (k FrameKind) String() string {
	switch k {
	case World:
		return "world"
	case MastersZero:
		return "masters_zero"
	case MastersZeroRef:
		return "masters_zero_ref"
	case MastersCurrent:
		return "masters_current"
	case MastersCurrentRef:
		return "masters_current_ref"
	case MastersInit:
		return "masters_init"
	case YumiInit:
		return "yumi_init"
	case YumiInitRef:
		return "yumi_init_ref"
	case YumiCurrent:
		return "yumi_current"
	case YumiCurrentRef:
		return "yumi_current_ref"
	case ClutchUp:
		return "clutch_up"
	case ClutchDown:
		return "clutch_down"
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

// Frame identifies a coordinate frame. The clutch frames additionally carry
// the clutch epoch they belong to, so successive clutch cycles yield distinct
// frames. Frames are compared structurally with ==; String is for logs only.
type Frame struct {
	Kind  FrameKind
	Epoch int
}

// NewFrame returns a frame of the given non-clutch kind.
func NewFrame(kind FrameKind) Frame {
	return Frame{Kind: kind}
}

// NewClutchFrame returns a ClutchUp or ClutchDown frame scoped to epoch.
func NewClutchFrame(kind FrameKind, epoch int) Frame {
	return Frame{Kind: kind, Epoch: epoch}
}

// IsClutch reports whether the frame is epoch-scoped.
func (f Frame) IsClutch() bool {
	return f.Kind == ClutchUp || f.Kind == ClutchDown
}

func (f Frame) String() string {
	if f.IsClutch() {
		return fmt.Sprintf("%s_%d", f.Kind, f.Epoch)
	}
	return f.Kind.String()
}
