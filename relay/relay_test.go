package relay

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/teleop/referenceframe"
	"go.viam.com/teleop/spatialmath"
)

type captureWriter struct {
	mu    sync.Mutex
	poses []referenceframe.PoseInFrame
}

func (w *captureWriter) WritePose(p referenceframe.PoseInFrame) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.poses = append(w.poses, p)
}

func (w *captureWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.poses)
}

func (w *captureWriter) latest() referenceframe.PoseInFrame {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.poses[len(w.poses)-1]
}

func (w *captureWriter) clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.poses = nil
}

func newTestRelay(t *testing.T) (*Relay, *captureWriter) {
	t.Helper()
	w := &captureWriter{}
	r, err := New(Left, w, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return r, w
}

// zero drives a full reset: baseline updates only commit at the top of the
// next pose-forward call, so keep feeding the master pose until Reset returns.
func zero(t *testing.T, r *Relay, robotPose, masterPose spatialmath.Pose) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r.HandleMasterPose(masterPose)
	errCh := make(chan error, 1)
	go func() { errCh <- r.Reset(ctx, robotPose) }()
	for {
		select {
		case err := <-errCh:
			test.That(t, err, test.ShouldBeNil)
			return
		case <-time.After(time.Millisecond):
			r.HandleMasterPose(masterPose)
		}
	}
}

func TestInvalidArmName(t *testing.T) {
	_, err := New("middle", &captureWriter{}, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "middle")
}

func TestResetRequiresMasterPose(t *testing.T) {
	r, _ := newTestRelay(t)
	err := r.Reset(context.Background(), spatialmath.NewZeroPose())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no master pose")
}

func TestPreZeroSilence(t *testing.T) {
	r, w := newTestRelay(t)

	r.HandleMasterPose(spatialmath.NewPoseFromPoint(r3.Vector{X: 1}))
	r.HandleClutch(true)
	r.HandleClutch(false)
	r.HandleMasterPose(spatialmath.NewPoseFromPoint(r3.Vector{X: 2}))

	test.That(t, w.count(), test.ShouldEqual, 0)
	// pre-zero clutch events are ignored entirely, including the epoch
	test.That(t, r.state.clutchEpoch, test.ShouldEqual, 0)
	test.That(t, r.state.clutchEngaged, test.ShouldBeFalse)
}

func TestZeroIdentityScenario(t *testing.T) {
	r, w := newTestRelay(t)
	m0 := spatialmath.NewZeroPose()
	zero(t, r, spatialmath.NewZeroPose(), m0)
	w.clear()

	// feeding the zero-time master pose reproduces the zero-time robot pose
	r.HandleMasterPose(m0)
	test.That(t, w.count(), test.ShouldEqual, 1)
	test.That(t, spatialmath.PoseAlmostEqual(w.latest().Pose(), spatialmath.NewZeroPose()), test.ShouldBeTrue)
	test.That(t, w.latest().Frame(), test.ShouldResemble, referenceframe.NewFrame(referenceframe.World))

	// a pure x translation on the masters maps to -y on the robot under the
	// fixed Rz(-90°) calibration, with zero rotational change
	const dx = 0.25
	r.HandleMasterPose(spatialmath.NewPoseFromPoint(r3.Vector{X: dx}))
	got := w.latest().Pose()
	test.That(t, spatialmath.R3VectorAlmostEqual(got.Point(), r3.Vector{Y: -dx}, 1e-9), test.ShouldBeTrue)
	test.That(t, spatialmath.QuaternionAlmostEqual(got.Rotation(), spatialmath.NewZeroPose().Rotation(), 1e-9), test.ShouldBeTrue)
}

func TestZeroWithRotatedMasters(t *testing.T) {
	// masters zeroed at 90° about z: the zero-time re-basing rotations line the
	// master x axis up with the calibration, so x motion comes out as robot +x
	r, w := newTestRelay(t)
	m0 := spatialmath.NewRotationAroundZ(math.Pi / 2)
	zero(t, r, spatialmath.NewZeroPose(), m0)
	w.clear()

	const dx = 0.1
	moved := spatialmath.Compose(m0, spatialmath.NewPoseFromPoint(r3.Vector{X: dx}))
	r.HandleMasterPose(moved)
	got := w.latest().Pose()
	test.That(t, spatialmath.R3VectorAlmostEqual(got.Point(), r3.Vector{X: dx}, 1e-9), test.ShouldBeTrue)
	test.That(t, spatialmath.QuaternionAlmostEqual(got.Rotation(), spatialmath.NewZeroPose().Rotation(), 1e-9), test.ShouldBeTrue)
}

func TestIdempotentReZero(t *testing.T) {
	m0 := spatialmath.NewPoseFromPoint(r3.Vector{X: 0.3, Y: -0.1})
	robot := spatialmath.Compose(
		spatialmath.NewPoseFromPoint(r3.Vector{X: 0.4, Z: 0.2}),
		spatialmath.NewRotationAroundZ(0.7),
	)
	probe := spatialmath.Compose(m0, spatialmath.NewPoseFromPoint(r3.Vector{X: 0.05, Y: 0.02}))

	r, w := newTestRelay(t)
	zero(t, r, robot, m0)
	w.clear()
	r.HandleMasterPose(probe)
	once := w.latest().Pose()

	// zeroing again with the same inputs yields identical output; no error
	// accumulates across repeated resets
	zero(t, r, robot, m0)
	w.clear()
	r.HandleMasterPose(probe)
	twice := w.latest().Pose()

	test.That(t, spatialmath.PoseAlmostEqual(once, twice), test.ShouldBeTrue)
}

func TestClutchTransparency(t *testing.T) {
	m0 := spatialmath.NewZeroPose()
	robot := spatialmath.NewPoseFromPoint(r3.Vector{Z: 0.1})
	seq := []spatialmath.Pose{
		spatialmath.NewPoseFromPoint(r3.Vector{X: 0.01}),
		spatialmath.NewPoseFromPoint(r3.Vector{X: 0.02, Y: 0.01}),
		spatialmath.NewPoseFromPoint(r3.Vector{X: 0.03, Y: 0.02}),
		spatialmath.NewPoseFromPoint(r3.Vector{X: 0.04, Y: 0.02, Z: 0.01}),
	}

	run := func(clutchAt int) spatialmath.Pose {
		r, w := newTestRelay(t)
		zero(t, r, robot, m0)
		for i, p := range seq {
			if i == clutchAt {
				// a clutch pair with zero elapsed motion
				r.HandleClutch(true)
				r.HandleClutch(false)
			}
			r.HandleMasterPose(p)
		}
		return w.latest().Pose()
	}

	want := run(-1)
	for k := range seq {
		test.That(t, spatialmath.PoseAlmostEqual(run(k), want), test.ShouldBeTrue)
	}
}

func TestClutchAbsorption(t *testing.T) {
	r, w := newTestRelay(t)
	m0 := spatialmath.NewZeroPose()
	zero(t, r, spatialmath.NewZeroPose(), m0)

	pa := spatialmath.NewPoseFromPoint(r3.Vector{X: 0.02})
	pb := spatialmath.Compose(
		spatialmath.NewPoseFromPoint(r3.Vector{X: 0.5, Y: -0.4, Z: 0.3}),
		spatialmath.NewRotationAroundZ(1.1),
	)

	r.HandleMasterPose(pa)
	preClutch := w.latest().Pose()
	emitted := w.count()

	// operator clutches, repositions with a large jump, releases
	r.HandleClutch(true)
	r.HandleMasterPose(pb)
	test.That(t, w.count(), test.ShouldEqual, emitted)
	r.HandleClutch(false)

	// feeding the post-jump pose reproduces the last pre-clutch robot pose
	r.HandleMasterPose(pb)
	test.That(t, w.count(), test.ShouldEqual, emitted+1)
	test.That(t, spatialmath.PoseAlmostEqual(w.latest().Pose(), preClutch), test.ShouldBeTrue)

	// and motion relative to the new master position resumes from there
	const dx = 0.01
	r.HandleMasterPose(spatialmath.Compose(pb, spatialmath.NewPoseFromPoint(r3.Vector{X: dx})))
	moved := w.latest().Pose()
	test.That(t, spatialmath.PoseAlmostEqual(moved, preClutch), test.ShouldBeFalse)
	delta := moved.Point().Sub(preClutch.Point()).Norm()
	test.That(t, delta, test.ShouldAlmostEqual, dx, 1e-9)
}

func TestClutchEpochsAdvance(t *testing.T) {
	r, w := newTestRelay(t)
	m0 := spatialmath.NewZeroPose()
	zero(t, r, spatialmath.NewZeroPose(), m0)

	for i := 1; i <= 3; i++ {
		r.HandleClutch(true)
		r.HandleMasterPose(spatialmath.NewPoseFromPoint(r3.Vector{Y: float64(i)}))
		r.HandleClutch(false)
		r.HandleMasterPose(spatialmath.NewPoseFromPoint(r3.Vector{Y: float64(i)}))
		test.That(t, r.state.clutchEpoch, test.ShouldEqual, i)
	}

	// repeated pedal states are not transitions
	r.HandleClutch(false)
	r.HandleMasterPose(m0)
	test.That(t, r.state.clutchEpoch, test.ShouldEqual, 3)
	test.That(t, w.count(), test.ShouldBeGreaterThan, 0)
}

func TestClutchHeldAcrossReset(t *testing.T) {
	r, w := newTestRelay(t)
	m0 := spatialmath.NewZeroPose()
	zero(t, r, spatialmath.NewZeroPose(), m0)
	w.clear()

	r.HandleClutch(true)
	r.HandleMasterPose(m0)
	test.That(t, w.count(), test.ShouldEqual, 0)

	// re-zero while the clutch is held; emission stays gated until release
	newRobot := spatialmath.NewPoseFromPoint(r3.Vector{Z: 0.3})
	zero(t, r, newRobot, m0)
	test.That(t, w.count(), test.ShouldEqual, 0)

	r.HandleClutch(false)
	r.HandleMasterPose(m0)
	test.That(t, w.count(), test.ShouldEqual, 1)
	test.That(t, spatialmath.PoseAlmostEqual(w.latest().Pose(), newRobot), test.ShouldBeTrue)
}

func TestFrameMismatchIsolation(t *testing.T) {
	r, w := newTestRelay(t)
	m0 := spatialmath.NewZeroPose()
	zero(t, r, spatialmath.NewZeroPose(), m0)
	w.clear()

	probe := spatialmath.NewPoseFromPoint(r3.Vector{X: 0.1})
	r.HandleMasterPose(probe)
	want := w.latest().Pose()
	emitted := w.count()

	// a mislabeled transform is dropped without corrupting state
	r.forward(referenceframe.NewRigidTransform(mastersZeroFrame, worldFrame, probe))
	test.That(t, w.count(), test.ShouldEqual, emitted)

	r.HandleMasterPose(probe)
	test.That(t, w.count(), test.ShouldEqual, emitted+1)
	test.That(t, spatialmath.PoseAlmostEqual(w.latest().Pose(), want), test.ShouldBeTrue)
}

func TestCloseIsQuiet(t *testing.T) {
	r, _ := newTestRelay(t)
	test.That(t, r.Close(), test.ShouldBeNil)
}
