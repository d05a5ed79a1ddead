package perception

import "errors"

// Sentinel kinds for perception errors.
var (
	// ErrUnavailable marks a failed or timed-out perception call. Distinct
	// from an empty detection list, which is a normal result.
	ErrUnavailable = errors.New("perception unavailable")
)
