// Package freshness defines the admission gate for inbound observations.
// The decision engine assumes it never sees a stale or out-of-order
// observation; this gate enforces that before ingestion.
package freshness

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/rover/internal/domain/model"
)

// Rejection kinds. Both count toward the stale/out-of-order rejection
// counter; format violations are reported by model.Observation.Validate.
var (
	ErrOutOfOrder = errors.New("observation timestamp not newer than last seen")
	ErrTooOld     = errors.New("observation older than freshness window")
)

// Default freshness window.
const defaultWindow = 60 * time.Second

// Gate admits observations whose timestamps are strictly increasing per car
// and younger than the freshness window.
type Gate interface {
	// Admit returns nil and records the timestamp if the observation is
	// fresh and in order; otherwise it returns a rejection kind.
	Admit(ctx context.Context, obs model.Observation) error
}

// Option applies a configuration option to the in-memory gate.
type Option func(*inMemoryGate)

// WithWindow sets the freshness window.
func WithWindow(window time.Duration) Option {
	return func(g *inMemoryGate) {
		if window > 0 {
			g.window = window
		}
	}
}

// WithClock sets the time source. Tests inject a fixed clock.
func WithClock(now func() time.Time) Option {
	return func(g *inMemoryGate) {
		if now != nil {
			g.now = now
		}
	}
}

// inMemoryGate tracks the maximum timestamp seen per car.
type inMemoryGate struct {
	mu     sync.Mutex
	lastTS map[string]int64 // car id -> max admitted unix ms
	window time.Duration
	now    func() time.Time
}

// NewGate creates an in-memory admission gate with configuration options.
func NewGate(opts ...Option) Gate {
	g := &inMemoryGate{
		lastTS: make(map[string]int64),
		window: defaultWindow,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Admit checks ordering and age, recording the timestamp on success.
func (g *inMemoryGate) Admit(_ context.Context, obs model.Observation) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if last, ok := g.lastTS[obs.CarID]; ok && obs.Timestamp <= last {
		return ErrOutOfOrder
	}

	age := g.now().UnixMilli() - obs.Timestamp
	if age > g.window.Milliseconds() {
		return ErrTooOld
	}

	g.lastTS[obs.CarID] = obs.Timestamp
	return nil
}
