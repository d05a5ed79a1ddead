package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if ROVER_CONFIG is set
//  3. env (prefix ROVER_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("ROVER_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: ROVER_ADDR, ROVER_QUEUE_SIZE, ...
	// Map env keys like ROVER_QUEUE_SIZE -> queue_size (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("ROVER_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "rover_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants the rest of the process assumes.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.FreshnessWindowMS < 1:
		return fmt.Errorf("%w: freshness_window_ms must be positive", ErrInvalidConfig)
	case c.RequiredBalls < 1:
		return fmt.Errorf("%w: required_balls must be positive", ErrInvalidConfig)
	case c.CameraHFOVDegrees <= 0 || c.CameraFocalLengthMm <= 0 || c.CameraSensorHeightMm <= 0:
		return fmt.Errorf("%w: camera calibration must be positive", ErrInvalidConfig)
	case c.BallSizeMm <= 0 || c.HomeSizeMm <= 0:
		return fmt.Errorf("%w: target sizes must be positive", ErrInvalidConfig)
	}
	return nil
}
