package referenceframe

import (
	"fmt"

	"github.com/pkg/errors"
)

// FrameMismatchError indicates an attempt to compose transforms whose inner
// frame labels do not agree. A sample producing one should be dropped; the
// next valid sample fully recovers.
type FrameMismatchError struct {
	Got  Frame
	Want Frame
}

// NewFrameMismatchError returns an error for composing a transform into frame
// `got` with one out of frame `want`.
func NewFrameMismatchError(got, want Frame) error {
	return &FrameMismatchError{Got: got, Want: want}
}

func (e *FrameMismatchError) Error() string {
	return fmt.Sprintf("frame mismatch: cannot compose %q with %q", e.Got, e.Want)
}

// IsFrameMismatchError reports whether err is a FrameMismatchError anywhere in
// its chain.
func IsFrameMismatchError(err error) bool {
	var fme *FrameMismatchError
	return errors.As(err, &fme)
}
