package relay

import "github.com/pkg/errors"

// NewInvalidArmNameError returns an error for a relay constructed with an arm
// name other than left or right. Construction-time misconfiguration; callers
// should treat it as fatal.
func NewInvalidArmNameError(name string) error {
	return errors.Errorf("invalid arm name %q; must be %q or %q", name, Left, Right)
}

// NewNoMasterPoseError returns an error for a reset requested before any
// master pose has been received; there is nothing valid to baseline against.
func NewNoMasterPoseError(arm Arm) error {
	return errors.Errorf("%s relay has no master pose yet; cannot zero", arm)
}
