// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory observation queue.
	QueueSize int `koanf:"queue_size"`

	// FreshnessWindowMS bounds how old an admitted observation may be.
	FreshnessWindowMS int `koanf:"freshness_window_ms"`

	// RequiredBalls is how many balls must reach the home zone to end a run.
	RequiredBalls int `koanf:"required_balls"`

	// PerceptionURL is the base URL of the object-detection service; empty
	// disables remote perception (observations must carry detections).
	PerceptionURL       string `koanf:"perception_url"`
	PerceptionTimeoutMS int    `koanf:"perception_timeout_ms"`

	// DispatchURL is the actuator endpoint commands are published to; empty
	// routes commands to the in-memory recorder.
	DispatchURL        string `koanf:"dispatch_url"`
	PublishMaxAttempts int    `koanf:"publish_max_attempts"`
	PublishBackoffMS   int    `koanf:"publish_backoff_ms"`

	// DBPath locates the sqlite command audit database.
	DBPath string `koanf:"db_path"`

	// MaxCommandsLimit caps GET /commands?limit.
	MaxCommandsLimit int `koanf:"max_commands_limit"`

	// Camera calibration.
	CameraHFOVDegrees     float64 `koanf:"camera_hfov_degrees"`
	CameraCalibrationMult float64 `koanf:"camera_calibration_mult"`
	CameraFocalLengthMm   float64 `koanf:"camera_focal_length_mm"`
	CameraSensorHeightMm  float64 `koanf:"camera_sensor_height_mm"`
	CameraMinDistanceMm   float64 `koanf:"camera_min_distance_mm"`

	// Real-world target sizes.
	BallSizeMm float64 `koanf:"ball_size_mm"`
	HomeSizeMm float64 `koanf:"home_size_mm"`

	// SearchSeed seeds the relocation draws; 0 uses a time-based seed.
	SearchSeed int64 `koanf:"search_seed"`
}

// New creates a Config with the reference defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		QueueSize:             1024,
		FreshnessWindowMS:     60_000,
		RequiredBalls:         1,
		PerceptionTimeoutMS:   10_000,
		PublishMaxAttempts:    3,
		PublishBackoffMS:      200,
		DBPath:                "rover.db",
		MaxCommandsLimit:      100,
		CameraHFOVDegrees:     62.2,
		CameraCalibrationMult: 0.75,
		CameraFocalLengthMm:   3.6,
		CameraSensorHeightMm:  2.74,
		CameraMinDistanceMm:   110,
		BallSizeMm:            65,
		HomeSizeMm:            420,
	}
}
