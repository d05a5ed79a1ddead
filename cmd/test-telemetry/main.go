package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/rover/internal/testtelemetry"
)

// Default configuration constants.
const (
	defaultNumObs      = 100
	defaultCars        = 1
	defaultRateDelay   = 50 * time.Millisecond
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numObs    = flag.Int("obs", defaultNumObs, "Number of observations to generate per car")
		cars      = flag.Int("cars", defaultCars, "Number of simulated vehicles")
		color     = flag.String("color", "blue", "Target ball color")
		rateDelay = flag.Duration("rate", defaultRateDelay, "Delay between observations from the same car")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile   = flag.String("log", "", "Log file for test output (default: test_log_TIMESTAMP.log)")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testtelemetry.ShowHelp()
		return
	}

	// Setup logging
	if err := testtelemetry.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &testtelemetry.Config{
		BaseURL:   *baseURL,
		NumObs:    *numObs,
		Cars:      *cars,
		Color:     *color,
		RateDelay: *rateDelay,
		Timeout:   *timeout,
		LogFile:   *logFile,
		Verbose:   *verbose,
	}

	// Run the test
	if err := testtelemetry.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return
	}
}
