// Package config describes the teleop relay server's JSON configuration.
package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// Defaults applied by Read for omitted fields.
const (
	DefaultLeftTopic  = "yumi/l"
	DefaultRightTopic = "yumi/r"
	DefaultPoseRateHz = 30
	DefaultFakeStepM  = 0.001
)

// Config is the process configuration for the relay server.
type Config struct {
	// BindAddress is where the reset HTTP service listens, e.g. ":8080".
	BindAddress string `json:"bind_address"`
	// LeftTopic and RightTopic name the per-arm output pose streams.
	LeftTopic  string `json:"left_topic,omitempty"`
	RightTopic string `json:"right_topic,omitempty"`
	// FakeMasters enables the synthetic master pose source.
	FakeMasters bool `json:"fake_masters,omitempty"`
	// PoseRateHz is the fake masters' publish rate.
	PoseRateHz int `json:"pose_rate_hz,omitempty"`
	// FakeStepM is the fake masters' per-sample x step in meters.
	FakeStepM float64 `json:"fake_step_m,omitempty"`
	// Debug raises log verbosity.
	Debug bool `json:"debug,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	if c.BindAddress == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "bind_address")
	}
	if c.PoseRateHz < 0 {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("pose_rate_hz must be non-negative, got %d", c.PoseRateHz))
	}
	if c.FakeStepM < 0 {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("fake_step_m must be non-negative, got %f", c.FakeStepM))
	}
	if c.LeftTopic == c.RightTopic {
		return goutils.NewConfigValidationError(path,
			errors.New("left_topic and right_topic must differ"))
	}
	return nil
}

func (c *Config) ensureDefaults() {
	if c.LeftTopic == "" {
		c.LeftTopic = DefaultLeftTopic
	}
	if c.RightTopic == "" {
		c.RightTopic = DefaultRightTopic
	}
	if c.PoseRateHz == 0 {
		c.PoseRateHz = DefaultPoseRateHz
	}
	if c.FakeStepM == 0 {
		c.FakeStepM = DefaultFakeStepM
	}
}

// Read loads, validates, and defaults a config from a JSON file.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config %q", path)
	}
	return FromBytes(path, data)
}

// FromBytes parses, validates, and defaults a config out of raw JSON.
func FromBytes(path string, data []byte) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "cannot parse config %q", path)
	}
	cfg.ensureDefaults()
	if err := cfg.Validate(path); err != nil {
		return nil, err
	}
	return cfg, nil
}
