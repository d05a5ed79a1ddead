package engine

import "errors"

// Sentinel kinds for decision errors.
var (
	// ErrMalformedObservation marks an observation missing required car-state
	// fields. Fatal to that cycle; no command is produced.
	ErrMalformedObservation = errors.New("malformed observation")
)
