// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/rover/internal/adapters/dispatch"
	obsqueue "github.com/okian/rover/internal/adapters/mq/queue"
	"github.com/okian/rover/internal/adapters/mq/worker"
	"github.com/okian/rover/internal/adapters/perception"
	"github.com/okian/rover/internal/adapters/repository"
	"github.com/okian/rover/internal/domain/command"
	"github.com/okian/rover/internal/domain/engine"
	"github.com/okian/rover/internal/domain/freshness"
	"github.com/okian/rover/internal/domain/geometry"
	"github.com/okian/rover/internal/domain/history"
	"github.com/okian/rover/internal/domain/model"
	"github.com/okian/rover/internal/domain/search"
	"github.com/okian/rover/internal/domain/types"
	"github.com/okian/rover/pkg/logger"
	"github.com/okian/rover/pkg/metrics"
)

// Service implements the API dependencies for the rover navigation system.
type Service struct {
	mu sync.RWMutex

	// Core components
	history    *history.Log
	gate       freshness.Gate
	queue      *obsqueue.InMemoryQueue
	engine     *engine.Engine
	worker     *worker.Worker
	store      repository.Store
	dispatcher *dispatch.Dispatcher
	recorder   *dispatch.Recorder

	// Configuration
	queueSize         int
	freshnessWindow   time.Duration
	requiredBalls     int
	camera            geometry.Camera
	ballSizeMm        float64
	homeSizeMm        float64
	perceptionURL     string
	perceptionTimeout time.Duration
	dispatchURL       string
	publishAttempts   int
	publishBackoff    time.Duration
	dbPath            string
	searchSeed        int64

	// State
	mode    types.Mode
	started bool

	// Logging
	log logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithQueueSize sets the observation queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithFreshnessWindow sets the maximum admissible observation age.
func WithFreshnessWindow(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.freshnessWindow = window
		}
	}
}

// WithRequiredBalls sets how many balls end the run.
func WithRequiredBalls(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.requiredBalls = n
		}
	}
}

// WithCamera sets the camera calibration.
func WithCamera(cam geometry.Camera) Option {
	return func(s *Service) {
		s.camera = cam
	}
}

// WithTargetSizes sets the real-world ball and base marker sizes.
func WithTargetSizes(ballMm, homeMm float64) Option {
	return func(s *Service) {
		if ballMm > 0 {
			s.ballSizeMm = ballMm
		}
		if homeMm > 0 {
			s.homeSizeMm = homeMm
		}
	}
}

// WithPerception sets the detection service endpoint. Empty disables remote
// perception; observations must then carry their own detections.
func WithPerception(baseURL string, timeout time.Duration) Option {
	return func(s *Service) {
		s.perceptionURL = baseURL
		if timeout > 0 {
			s.perceptionTimeout = timeout
		}
	}
}

// WithDispatchURL sets the actuator endpoint. Empty routes all commands to
// the in-memory recorder.
func WithDispatchURL(url string) Option {
	return func(s *Service) {
		s.dispatchURL = url
	}
}

// WithPublishRetry sets the publish attempt bound and backoff.
func WithPublishRetry(attempts int, backoff time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.publishAttempts = attempts
		}
		if backoff > 0 {
			s.publishBackoff = backoff
		}
	}
}

// WithDBPath sets the sqlite audit database path. Empty disables auditing.
func WithDBPath(path string) Option {
	return func(s *Service) {
		s.dbPath = path
	}
}

// WithSearchSeed seeds the search strategy's random source. Zero keeps a
// time-based seed.
func WithSearchSeed(seed int64) Option {
	return func(s *Service) {
		s.searchSeed = seed
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:         1024,
		freshnessWindow:   60 * time.Second,
		requiredBalls:     1,
		ballSizeMm:        65,
		homeSizeMm:        420,
		perceptionTimeout: 10 * time.Second,
		publishAttempts:   3,
		publishBackoff:    200 * time.Millisecond,
		mode:              types.ModeAutomatic,
		camera: geometry.Camera{
			HorizontalFOVDegrees: 62.2,
			CalibrationMult:      0.75,
			FocalLengthMm:        3.6,
			SensorHeightMm:       2.74,
			MinDistanceMm:        110,
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.log == nil {
		s.log = logger.Get()
	}

	s.log.Info(ctx, "starting rover navigation service...")

	s.history = history.NewLog()
	s.gate = freshness.NewGate(freshness.WithWindow(s.freshnessWindow))
	s.queue = obsqueue.NewInMemoryQueue(obsqueue.WithCapacity(s.queueSize))

	seed := s.searchSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	strategy := search.New(search.WithRand(rand.New(rand.NewSource(seed)))) //nolint:gosec // non-cryptographic relocation draws

	params := engine.DefaultParams()
	params.RequiredBalls = s.requiredBalls
	params.BallSizeMm = s.ballSizeMm
	params.HomeSizeMm = s.homeSizeMm
	s.engine = engine.New(s.camera, strategy,
		engine.WithParams(params),
		engine.WithLogger(s.log.Named("engine")),
	)

	if s.dbPath != "" {
		store, err := repository.NewSQLiteStore(s.dbPath)
		if err != nil {
			return fmt.Errorf("open audit store: %w", err)
		}
		s.store = store
		s.log.Info(ctx, "using sqlite audit store", logger.String("path", s.dbPath))
	}

	dispatchOpts := []dispatch.Option{
		dispatch.WithMaxAttempts(s.publishAttempts),
		dispatch.WithRetryBackoff(s.publishBackoff),
		dispatch.WithLogger(s.log.Named("dispatch")),
	}
	if s.store != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithAudit(s.store))
	}

	s.recorder = dispatch.NewRecorder()
	var pub dispatch.Publisher = s.recorder
	if s.dispatchURL != "" {
		pub = dispatch.NewHTTPPublisher(s.dispatchURL)
	}
	s.dispatcher = dispatch.New(pub, s.history, dispatchOpts...)

	// DEBUG mode runs decisions but defers publishing to the recorder while
	// still advancing the history the engine reasons over.
	debugDispatcher := dispatch.New(s.recorder, s.history, dispatchOpts...)

	workerOpts := []worker.Option{
		worker.WithLogger(s.log.Named("worker")),
		worker.WithDebugDispatcher(debugDispatcher),
	}
	if s.perceptionURL != "" {
		workerOpts = append(workerOpts, worker.WithDetector(
			perception.NewClient(s.perceptionURL, perception.WithTimeout(s.perceptionTimeout)),
		))
	}
	s.worker = worker.New(s.queue, s.engine, s.history, s.dispatcher, s, workerOpts...)
	go s.worker.Run(ctx)

	s.started = true
	s.log.Info(ctx, "rover navigation service started",
		logger.Int("queueSize", s.queueSize),
		logger.Int("requiredBalls", s.requiredBalls),
		logger.String("mode", s.mode.String()),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.log.Info(ctx, "stopping rover navigation service...")

	_ = s.queue.Close()

	if s.worker != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := s.worker.Shutdown(shutdownCtx); err != nil {
			s.log.Warn(ctx, "worker shutdown", logger.Error(err))
		}
		cancel()
	}

	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.log.Info(ctx, "rover navigation service stopped")
}

// Mode reports the externally-set operating mode.
func (s *Service) Mode() types.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode switches the operating mode.
func (s *Service) SetMode(mode types.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

// Ingest validates, gates, and enqueues one observation. Rejections are
// counted separately for format violations and stale/out-of-order arrivals;
// the engine never sees either.
func (s *Service) Ingest(ctx context.Context, obs model.Observation) error {
	if err := obs.Validate(); err != nil {
		metrics.RecordObservationInvalid()
		return fmt.Errorf("validate observation: %w", err)
	}

	if err := s.gate.Admit(ctx, obs); err != nil {
		metrics.RecordObservationStale()
		s.log.Debug(ctx, "observation rejected",
			logger.String("car", obs.CarID),
			logger.Int64("ts", obs.Timestamp),
			logger.Error(err),
		)
		return fmt.Errorf("admit observation: %w", err)
	}

	if !s.queue.Enqueue(ctx, obs) {
		return fmt.Errorf("enqueue observation: %w", obsqueue.ErrBackpressure)
	}

	metrics.RecordObservationAdmitted()
	return nil
}

// SubmitManual dispatches a manually composed command, bypassing the engine.
func (s *Service) SubmitManual(ctx context.Context, cmd command.Command) error {
	if err := s.dispatcher.Dispatch(ctx, cmd); err != nil {
		return fmt.Errorf("dispatch manual command: %w", err)
	}
	return nil
}

// RecentCommands returns up to n audited commands, newest first.
func (s *Service) RecentCommands(ctx context.Context, n int) ([]repository.Entry, error) {
	if s.store == nil {
		return nil, nil
	}
	entries, err := s.store.RecentCommands(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("recent commands: %w", err)
	}
	return entries, nil
}

// GoalCounts returns the audited per-goal command counts.
func (s *Service) GoalCounts(ctx context.Context) (map[string]int, error) {
	if s.store == nil {
		return map[string]int{}, nil
	}
	counts, err := s.store.GoalCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("goal counts: %w", err)
	}
	return counts, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"mode":          s.mode.String(),
		"requiredBalls": s.requiredBalls,
	}

	if s.started {
		ctx := context.Background()
		stats["queueLength"] = s.queue.Len(ctx)
		stats["historyLength"] = s.history.Len()
		stats["recordedCommands"] = len(s.recorder.Commands())
		if last, ok := s.history.Latest(); ok {
			stats["lastGoal"] = last.Goal.String()
		}
	}

	return stats
}

// Recorder exposes the in-memory recorder for tests and the DEBUG workflow.
func (s *Service) Recorder() *dispatch.Recorder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recorder
}
