package testtelemetry

import "time"

// HTTP status code constants.
const (
	StatusOK              = 200
	StatusTooManyRequests = 429
)

// Runner configuration constants.
const (
	ProcessingDelay      = 3 * time.Second
	PercentageMultiplier = 100
	maxCommandsLimit     = 100
)
