// Package queue defines the contract for buffering admitted observations
// between the transport layer and the decision worker.
package queue

import (
	"context"
	"sync"

	"github.com/okian/rover/internal/domain/model"
	"github.com/okian/rover/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 1024
)

// Observation is the payload type flowing through the queue.
type Observation = model.Observation

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an observation to the queue.
	// Returns false if the queue is full and the observation was dropped.
	Enqueue(ctx context.Context, obs Observation) bool

	// Dequeue returns a channel that receives observations as they become
	// available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Observation

	// Len returns the current number of queued observations.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue. After closing, no new
	// observations can be enqueued and the dequeue channel is closed.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	observations chan Observation
	capacity     int
	mu           sync.RWMutex
	closed       bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.observations = make(chan Observation, q.capacity)

	metrics.UpdateQueueSize(0)

	return q
}

// Enqueue adds an observation to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, obs Observation) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	select {
	case q.observations <- obs:
		metrics.UpdateQueueSize(len(q.observations))
		return true
	case <-ctx.Done():
		return false
	default:
		return false // queue is full
	}
}

// Dequeue returns a channel that receives observations as they arrive.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Observation {
	out := make(chan Observation)
	go func() {
		defer close(out)
		for obs := range q.observations {
			select {
			case out <- obs:
				metrics.UpdateQueueSize(len(q.observations))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued observations.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.observations)
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.observations)
	q.closed = true

	return nil
}
