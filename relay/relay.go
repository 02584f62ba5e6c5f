// Package relay forwards master manipulator motion into robot target poses.
// One Relay runs per arm; each turns the stream of absolute master poses into
// incremental, re-basable robot poses under operator clutching and re-zeroing.
package relay

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"go.viam.com/teleop/referenceframe"
	"go.viam.com/teleop/spatialmath"
)

// Arm names the two master/robot arm pairings.
type Arm string

// The two supported arms.
const (
	Left  Arm = "left"
	Right Arm = "right"
)

// PoseWriter is where a relay publishes computed robot target poses. Writes
// must not block; a slow consumer should only ever observe the newest pose.
type PoseWriter interface {
	WritePose(referenceframe.PoseInFrame)
}

// update is a pending baseline change computed outside the pose-forward path.
// Updates are tagged variants applied in FIFO order by the forward path, which
// is the sole mutator of live relay state.
type update interface {
	isUpdate()
}

type resetUpdate struct {
	masterToWorld referenceframe.RigidTransform
	robotPose     spatialmath.Pose
	done          chan struct{}
}

type clutchUpdate struct {
	engaged       bool
	masterToWorld referenceframe.RigidTransform
}

func (resetUpdate) isUpdate()  {}
func (clutchUpdate) isUpdate() {}

// Relay converts one master arm's pose stream into robot target poses.
// HandleMasterPose, HandleClutch and Reset may be called from different
// goroutines; HandleClutch and Reset return immediately after enqueueing,
// and their effects land at the start of the next HandleMasterPose.
type Relay struct {
	arm    Arm
	out    PoseWriter
	logger golog.Logger

	// latest master pose in world frame, readable by reset/clutch callers
	lastMaster atomic.Pointer[referenceframe.RigidTransform]

	mu      sync.Mutex
	pending []update

	// owned by the pose-forward path
	state relayState
}

// New returns a relay for the named arm publishing robot target poses to out.
func New(arm Arm, out PoseWriter, logger golog.Logger) (*Relay, error) {
	if arm != Left && arm != Right {
		return nil, NewInvalidArmNameError(string(arm))
	}
	if out == nil {
		return nil, errors.New("pose writer required")
	}
	return &Relay{arm: arm, out: out, logger: logger.Named(string(arm))}, nil
}

// Arm returns which arm this relay serves.
func (r *Relay) Arm() Arm {
	return r.arm
}

// HandleMasterPose accepts one master pose sample in the world frame. If the
// relay has been zeroed and the clutch is not engaged, the corresponding robot
// target pose is computed and published; otherwise the sample only refreshes
// the last known master pose.
func (r *Relay) HandleMasterPose(pose spatialmath.Pose) {
	r.forward(referenceframe.NewRigidTransform(mastersCurrentFrame, worldFrame, pose))
}

func (r *Relay) forward(masterToWorld referenceframe.RigidTransform) {
	r.lastMaster.Store(&masterToWorld)
	r.drain()

	if !r.state.hasZeroed || r.state.clutchEngaged {
		return
	}

	target, err := r.state.robotTarget(masterToWorld)
	if err != nil {
		// a single malformed sample must not halt the stream
		r.logger.Errorw("dropping master pose sample", "error", err)
		return
	}
	r.out.WritePose(referenceframe.NewPoseInFrame(worldFrame, target.Pose()))
}

// drain applies all pending baseline updates, oldest first.
func (r *Relay) drain() {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	for _, u := range pending {
		switch u := u.(type) {
		case resetUpdate:
			r.state = applyReset(r.state, u.masterToWorld, u.robotPose)
			r.logger.Infow("zeroed", "clutch_epoch", r.state.clutchEpoch)
			close(u.done)
		case clutchUpdate:
			next, err := applyClutch(r.state, u.engaged, u.masterToWorld)
			if err != nil {
				r.logger.Errorw("dropping clutch event", "engaged", u.engaged, "error", err)
				continue
			}
			if next.clutchEngaged != r.state.clutchEngaged {
				r.logger.Debugw("clutch", "engaged", next.clutchEngaged, "epoch", next.clutchEpoch)
			}
			r.state = next
		}
	}
}

func (r *Relay) enqueue(u update) {
	r.mu.Lock()
	r.pending = append(r.pending, u)
	r.mu.Unlock()
}

// HandleClutch accepts a pedal state change: true when the operator engages
// (disengaging the robot from master motion), false on release. Events before
// the first reset are ignored. Non-blocking.
func (r *Relay) HandleClutch(engaged bool) {
	last := r.lastMaster.Load()
	if last == nil {
		// cannot be zeroed yet either, so this event is a pre-zero no-op
		return
	}
	r.enqueue(clutchUpdate{engaged: engaged, masterToWorld: *last})
}

// Reset establishes a new zero baseline between the current master pose and
// the supplied robot world pose, fully superseding any prior baseline. It
// waits, bounded by ctx, until the pose-forward path has committed the new
// baseline; a stalled master stream stalls the commit.
func (r *Relay) Reset(ctx context.Context, robotPose spatialmath.Pose) error {
	last := r.lastMaster.Load()
	if last == nil {
		return NewNoMasterPoseError(r.arm)
	}

	done := make(chan struct{})
	r.enqueue(resetUpdate{masterToWorld: *last, robotPose: robotPose, done: done})
	r.logger.Infow("reset init pose requested", "robot_position", robotPose.Point())

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "%s relay reset not yet applied; master pose stream may be stalled", r.arm)
	}
}

// Close detaches the relay from its pose source; subsequent samples are
// dropped. Part of process shutdown.
func (r *Relay) Close() error {
	r.logger.Info("relay shut down")
	return nil
}
