package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	// ErrBackpressure marks an observation dropped because the queue is
	// full or closed.
	ErrBackpressure = errors.New("observation queue backpressure")
)
