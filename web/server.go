// Package web exposes the zero/reset service over HTTP: one synchronous call
// carrying both arms' current robot poses, acknowledged once both relays have
// committed their new baselines.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	goji "goji.io"
	"goji.io/pat"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/teleop/spatialmath"
)

// how long a reset may wait for the relays' pose streams to deliver a sample
const defaultResetTimeout = 10 * time.Second

// Resetter re-baselines one relay; satisfied by *relay.Relay.
type Resetter interface {
	Reset(ctx context.Context, robotPose spatialmath.Pose) error
}

// PoseBody is the JSON wire form of a robot pose in the world frame.
type PoseBody struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
	QW float64 `json:"qw"`
	QX float64 `json:"qx"`
	QY float64 `json:"qy"`
	QZ float64 `json:"qz"`
}

// Pose converts the wire form into a pose value.
func (b PoseBody) Pose() spatialmath.Pose {
	return spatialmath.NewPose(
		r3.Vector{X: b.X, Y: b.Y, Z: b.Z},
		quat.Number{Real: b.QW, Imag: b.QX, Jmag: b.QY, Kmag: b.QZ},
	)
}

// ResetRequest carries both arms' current robot poses.
type ResetRequest struct {
	Left  PoseBody `json:"left"`
	Right PoseBody `json:"right"`
}

// Service is the HTTP front end for the reset operation.
type Service struct {
	left   Resetter
	right  Resetter
	logger golog.Logger
	mux    *goji.Mux

	httpServer              *http.Server
	activeBackgroundWorkers sync.WaitGroup
}

// New returns a service resetting the given left and right relays.
func New(left, right Resetter, logger golog.Logger) *Service {
	s := &Service{left: left, right: right, logger: logger}
	mux := goji.NewMux()
	mux.HandleFunc(pat.Post("/reset_init_poses"), s.handleReset)
	mux.HandleFunc(pat.Get("/health"), func(w http.ResponseWriter, _ *http.Request) {
		goutils.UncheckedError(writeText(w, http.StatusOK, "ok"))
	})
	s.mux = mux
	return s
}

// Handler returns the service's HTTP handler, for serving or for tests.
func (s *Service) Handler() http.Handler {
	return s.mux
}

func (s *Service) handleReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		goutils.UncheckedError(writeText(w, http.StatusBadRequest, "malformed reset request: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaultResetTimeout)
	defer cancel()

	// both relays re-baseline concurrently; each waits on its own pose stream
	var leftErr, rightErr error
	var wg sync.WaitGroup
	wg.Add(2)
	goutils.PanicCapturingGo(func() {
		defer wg.Done()
		leftErr = s.left.Reset(ctx, req.Left.Pose())
	})
	goutils.PanicCapturingGo(func() {
		defer wg.Done()
		rightErr = s.right.Reset(ctx, req.Right.Pose())
	})
	wg.Wait()

	if err := multierr.Combine(leftErr, rightErr); err != nil {
		s.logger.Errorw("reset failed", "error", err)
		goutils.UncheckedError(writeText(w, http.StatusInternalServerError, err.Error()))
		return
	}
	s.logger.Info("reset init poses acknowledged")
	goutils.UncheckedError(writeText(w, http.StatusOK, "ok"))
}

func writeText(w http.ResponseWriter, code int, body string) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, err := w.Write([]byte(body))
	return err
}

// Start serves the reset API on the given listener until Stop is called.
func (s *Service) Start(listener net.Listener) {
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Infow("reset service listening", "address", listener.Addr().String())
	s.activeBackgroundWorkers.Add(1)
	goutils.PanicCapturingGo(func() {
		defer s.activeBackgroundWorkers.Done()
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Errorw("reset service serve error", "error", err)
		}
	})
}

// Stop shuts the HTTP server down gracefully and waits for the serve worker.
func (s *Service) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	s.activeBackgroundWorkers.Wait()
	return err
}
