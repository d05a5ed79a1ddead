package testtelemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/rover/pkg/logger"
)

// Run executes the complete telemetry test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting rover telemetry test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("cars", config.Cars),
		logger.Int("obsPerCar", config.NumObs),
		logger.String("color", config.Color),
		logger.String("timeout", config.Timeout.String()),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate per-car observation streams
	streams, err := generateObservations(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("observation generation failed: %w", err)
	}

	// Step 3: Submit observations
	if err := submitObservations(ctx, config, streams, stats); err != nil {
		return fmt.Errorf("observation submission failed: %w", err)
	}

	// Step 4: Wait for the decision worker to drain the queue
	logger.Get().Info(ctx, "waiting for observations to be processed")
	time.Sleep(ProcessingDelay)

	// Step 5: Retrieve audited commands. The service caps the listing limit,
	// so ask for at most the default cap.
	limit := stats.ObsAccepted
	if limit < 1 {
		limit = 1
	}
	if limit > maxCommandsLimit {
		limit = maxCommandsLimit
	}
	commands, err := fetchCommands(ctx, config, limit, stats)
	if err != nil {
		logger.Get().Warn(ctx, "command retrieval failed (audit store may be disabled)", logger.Error(err))
		commands = nil
	}

	// Step 6: Retrieve service stats
	serviceStats, err := fetchStats(ctx, config)
	if err != nil {
		return fmt.Errorf("stats retrieval failed: %w", err)
	}

	// Step 7: Verify results
	if err := verifyResults(ctx, config, commands, serviceStats, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var acceptRate, obsPerSecond float64

	if stats.ObsSubmitted > 0 {
		acceptRate = float64(stats.ObsAccepted) / float64(stats.ObsSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		obsPerSecond = float64(stats.ObsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("obsGenerated", stats.ObsGenerated),
		logger.Int("obsSubmitted", stats.ObsSubmitted),
		logger.Int("obsAccepted", stats.ObsAccepted),
		logger.Int("obsDroppedStale", stats.ObsDroppedStale),
		logger.Int("obsFailed", stats.ObsFailed),
		logger.Int("commandsRetrieved", stats.CommandsRetrieved),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("obsPerSecond", obsPerSecond))
}
