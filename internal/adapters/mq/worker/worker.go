// Package worker runs the decision loop: observations off the queue, through
// perception and the engine, out to the dispatcher.
//
// Exactly one worker runs against a given command history. Consecutive-count
// reasoning assumes each car's history is strictly ordered, so decisions are
// never run concurrently.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rover/internal/domain/command"
	"github.com/okian/rover/internal/domain/engine"
	"github.com/okian/rover/internal/domain/model"
	"github.com/okian/rover/internal/domain/types"
	"github.com/okian/rover/pkg/logger"
	"github.com/okian/rover/pkg/metrics"
)

// Queue defines how the worker receives observations.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Observation
}

// Decider produces one drive command per observation.
type Decider interface {
	Decide(ctx context.Context, obs model.Observation, hist engine.History) (command.Command, error)
}

// Dispatcher delivers finalized commands and owns the history append.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd command.Command) error
}

// ModeSource reports the externally-set operating mode.
type ModeSource interface {
	Mode() types.Mode
}

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithDetector sets the perception client used when an observation arrives
// without detections.
func WithDetector(d Detector) Option {
	return func(w *Worker) {
		w.detector = d
	}
}

// WithDebugDispatcher sets the dispatcher used in DEBUG mode.
func WithDebugDispatcher(d Dispatcher) Option {
	return func(w *Worker) {
		w.debugDispatch = d
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(log logger.Logger) Option {
	return func(w *Worker) {
		if log != nil {
			w.log = log
		}
	}
}

// Detector fetches detections for an observation's image.
type Detector interface {
	Detect(ctx context.Context, obs model.Observation) ([]model.Detection, error)
}

// Worker is the single decision loop.
type Worker struct {
	queue         Queue
	decider       Decider
	hist          engine.History
	dispatch      Dispatcher
	debugDispatch Dispatcher
	detector      Detector
	modes         ModeSource

	shutdown chan struct{}
	done     chan struct{}

	log logger.Logger
}

// New creates a decision worker.
func New(queue Queue, decider Decider, hist engine.History, dispatch Dispatcher, modes ModeSource, opts ...Option) *Worker {
	w := &Worker{
		queue:    queue,
		decider:  decider,
		hist:     hist,
		dispatch: dispatch,
		modes:    modes,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.log == nil {
		w.log = logger.Get().Named("worker")
	}

	metrics.UpdateWorkerCount(1)

	return w
}

// Run starts the worker loop until ctx is cancelled or Shutdown is called.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	observations := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case obs, ok := <-observations:
			if !ok {
				return
			}
			if err := w.processObservation(ctx, obs); err != nil {
				w.log.Error(ctx, "decision cycle failed",
					logger.String("car", obs.CarID),
					logger.Int64("ts", obs.Timestamp),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.log.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processObservation handles a single decision cycle.
func (w *Worker) processObservation(ctx context.Context, obs model.Observation) error {
	mode := w.modes.Mode()
	if mode == types.ModeManual {
		// MANUAL disables engine invocation entirely.
		w.log.Debug(ctx, "manual mode, observation dropped", logger.String("car", obs.CarID))
		return nil
	}

	// The engine cannot proceed without the perception result. A failure
	// here is fatal to the cycle and surfaces to the caller's retry policy.
	if len(obs.Detections) == 0 && w.detector != nil {
		detections, err := w.detector.Detect(ctx, obs)
		if err != nil {
			metrics.RecordDecisionError("perception_unavailable")
			return fmt.Errorf("perception: %w", err)
		}
		obs.Detections = detections
	}

	start := time.Now()
	cmd, err := w.decider.Decide(ctx, obs, w.hist)
	metrics.RecordDecisionLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		if errors.Is(err, engine.ErrMalformedObservation) {
			metrics.RecordDecisionError("malformed_observation")
		} else {
			metrics.RecordDecisionError("internal")
		}
		return fmt.Errorf("decide: %w", err)
	}

	cmd.ID = uuid.New().String()
	cmd.Mode = mode
	metrics.RecordDecision(cmd.Goal.String())
	metrics.UpdateBallsCarried(obs.BallsCarried)

	dispatch := w.dispatch
	if mode == types.ModeDebug && w.debugDispatch != nil {
		// DEBUG still runs decisions but defers publishing.
		dispatch = w.debugDispatch
	}
	if err := dispatch.Dispatch(ctx, cmd); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	w.log.Debug(ctx, "command dispatched",
		logger.String("car", cmd.CarID),
		logger.String("goal", cmd.Goal.String()),
		logger.Int64("correlation", cmd.CorrelationID),
	)
	return nil
}
