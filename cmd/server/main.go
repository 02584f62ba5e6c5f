// Package main runs the masters→YuMi teleoperation relay server: two pose
// relays (one per arm), their output pose streams, the reset HTTP service,
// and optionally a fake master pose source for bring-up.
package main

import (
	"context"
	"net"

	"github.com/edaniels/golog"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/teleop/config"
	"go.viam.com/teleop/posestream"
	"go.viam.com/teleop/relay"
	"go.viam.com/teleop/relay/fake"
	"go.viam.com/teleop/web"
)

var logger = golog.NewDevelopmentLogger("teleop_server")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	ConfigFile  string `flag:"config,usage=path to JSON config file"`
	BindAddress string `flag:"bind,default=:8080,usage=reset service bind address"`
	FakeMasters bool   `flag:"fake-masters,usage=publish synthetic master poses"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) (err error) {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	var cfg *config.Config
	if argsParsed.ConfigFile != "" {
		cfg, err = config.Read(argsParsed.ConfigFile)
		if err != nil {
			return err
		}
	} else {
		cfg, err = config.FromBytes("<flags>", []byte(`{"bind_address":"`+argsParsed.BindAddress+`"}`))
		if err != nil {
			return err
		}
	}
	if argsParsed.FakeMasters {
		cfg.FakeMasters = true
	}

	return runServer(ctx, cfg, logger)
}

func runServer(ctx context.Context, cfg *config.Config, logger golog.Logger) (err error) {
	leftStream := posestream.New(cfg.LeftTopic)
	rightStream := posestream.New(cfg.RightTopic)
	defer func() {
		err = multierr.Combine(err, leftStream.Close(), rightStream.Close())
	}()

	leftRelay, err := relay.New(relay.Left, leftStream, logger)
	if err != nil {
		return err
	}
	rightRelay, err := relay.New(relay.Right, rightStream, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, leftRelay.Close(), rightRelay.Close())
	}()

	if cfg.Debug {
		if err := logEmittedPoses(ctx, leftStream, logger); err != nil {
			return err
		}
		if err := logEmittedPoses(ctx, rightStream, logger); err != nil {
			return err
		}
	}

	if cfg.FakeMasters {
		leftFake := fake.NewMasters(leftRelay, cfg.PoseRateHz, cfg.FakeStepM, logger.Named("fake_left"))
		rightFake := fake.NewMasters(rightRelay, cfg.PoseRateHz, cfg.FakeStepM, logger.Named("fake_right"))
		leftFake.Start(ctx)
		rightFake.Start(ctx)
		defer leftFake.Stop()
		defer rightFake.Stop()
	}

	listener, err := net.Listen("tcp", cfg.BindAddress)
	if err != nil {
		return err
	}
	resetService := web.New(leftRelay, rightRelay, logger.Named("reset_service"))
	resetService.Start(listener)
	defer func() {
		err = multierr.Combine(err, resetService.Stop(context.Background()))
	}()

	logger.Infow("relay server running",
		"left_topic", cfg.LeftTopic, "right_topic", cfg.RightTopic, "fake_masters", cfg.FakeMasters)
	<-ctx.Done()
	return nil
}

// logEmittedPoses tails one output stream at debug level.
func logEmittedPoses(ctx context.Context, stream *posestream.Stream, logger golog.Logger) error {
	rc, err := stream.Subscribe("debug_log")
	if err != nil {
		return err
	}
	utils.PanicCapturingGo(func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-rc.Updated():
				if p, ok := rc.Latest(); ok {
					logger.Debugw("emitted pose", "topic", stream.Name(), "position", p.Pose().Point())
				}
			}
		}
	})
	return nil
}
