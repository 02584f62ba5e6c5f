// Package fake provides a synthetic master manipulator for bring-up without
// master hardware attached. It publishes a slowly ramping pose at a fixed
// rate, mimicking the debug pose source used against the real installation.
package fake

import (
	"context"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	goutils "go.viam.com/utils"

	"go.viam.com/teleop/spatialmath"
)

// PoseHandler consumes master pose samples; satisfied by *relay.Relay.
type PoseHandler interface {
	HandleMasterPose(spatialmath.Pose)
}

// Masters is a fake master arm emitting an x-translation ramp with no
// rotation. Safe to start once; Stop waits for the publisher to exit.
type Masters struct {
	handler PoseHandler
	rate    time.Duration
	step    float64
	logger  golog.Logger

	cancel                  func()
	activeBackgroundWorkers sync.WaitGroup
}

// NewMasters returns a fake master arm publishing to handler at the given
// rate in Hz, moving stepMeters along x per sample.
func NewMasters(handler PoseHandler, rateHz int, stepMeters float64, logger golog.Logger) *Masters {
	if rateHz <= 0 {
		rateHz = 30
	}
	return &Masters{
		handler: handler,
		rate:    time.Second / time.Duration(rateHz),
		step:    stepMeters,
		logger:  logger,
	}
}

// Start begins publishing until ctx is done or Stop is called.
func (m *Masters) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.logger.Infow("fake masters publishing", "interval", m.rate, "step_m", m.step)
	m.activeBackgroundWorkers.Add(1)
	goutils.PanicCapturingGo(func() {
		defer m.activeBackgroundWorkers.Done()
		var x float64
		for {
			if !goutils.SelectContextOrWait(ctx, m.rate) {
				return
			}
			m.handler.HandleMasterPose(spatialmath.NewPoseFromPoint(r3.Vector{X: x}))
			x += m.step
		}
	})
}

// Stop halts publishing and waits for the worker to exit.
func (m *Masters) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.activeBackgroundWorkers.Wait()
}
