// Package dispatch delivers finalized drive commands to the vehicle. It is
// solely responsible for append-to-history and retry/error counting on
// publish failure, preserving the separation between decision and
// persistence.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/rover/internal/domain/command"
	"github.com/okian/rover/pkg/logger"
	"github.com/okian/rover/pkg/metrics"
)

// Default dispatcher configuration constants.
const (
	defaultMaxAttempts  = 3
	defaultRetryBackoff = 200 * time.Millisecond
)

// Publisher serializes and sends one command to the actuator transport.
type Publisher interface {
	Publish(ctx context.Context, cmd command.Command) error
}

// History is the dispatcher's write access to the command log.
type History interface {
	Append(cmd command.Command)
	Len() int
}

// Audit persists dispatched commands for observability. Optional.
type Audit interface {
	SaveCommand(ctx context.Context, cmd command.Command) error
}

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithMaxAttempts sets the publish attempt bound.
func WithMaxAttempts(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

// WithRetryBackoff sets the pause between publish attempts.
func WithRetryBackoff(backoff time.Duration) Option {
	return func(d *Dispatcher) {
		if backoff > 0 {
			d.backoff = backoff
		}
	}
}

// WithAudit sets the audit store for dispatched commands.
func WithAudit(audit Audit) Option {
	return func(d *Dispatcher) {
		d.audit = audit
	}
}

// WithLogger sets a custom logger for the dispatcher.
func WithLogger(log logger.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// Dispatcher publishes commands with bounded retry and records them in the
// history log (and audit store) only after a successful publish.
type Dispatcher struct {
	pub         Publisher
	hist        History
	audit       Audit
	maxAttempts int
	backoff     time.Duration
	log         logger.Logger
}

// New creates a dispatcher over the given publisher and history log.
func New(pub Publisher, hist History, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		pub:         pub,
		hist:        hist,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultRetryBackoff,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.log == nil {
		d.log = logger.Get().Named("dispatch")
	}

	return d
}

// Dispatch publishes the command and, on success, appends it to the history
// log. The command must not be mutated after this call.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd command.Command) error {
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.RecordPublishRetry()
			select {
			case <-ctx.Done():
				return fmt.Errorf("dispatch cancelled: %w", ctx.Err())
			case <-time.After(d.backoff):
			}
		}

		if lastErr = d.pub.Publish(ctx, cmd); lastErr == nil {
			break
		}
		d.log.Warn(ctx, "publish attempt failed",
			logger.Int("attempt", attempt),
			logger.String("goal", cmd.Goal.String()),
			logger.Error(lastErr),
		)
	}
	if lastErr != nil {
		metrics.RecordPublishFailure()
		return fmt.Errorf("publish command %s: %w", cmd.Goal, lastErr)
	}

	metrics.RecordCommandPublished()
	d.hist.Append(cmd)
	metrics.UpdateHistorySize(d.hist.Len())

	if d.audit != nil {
		if err := d.audit.SaveCommand(ctx, cmd); err != nil {
			// Audit is best-effort; the command already reached the car.
			d.log.Error(ctx, "audit insert failed", logger.Error(err))
		}
	}

	return nil
}
