package testtelemetry

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/rover/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "test_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the telemetry test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Rover Telemetry Test Tool
=========================

A tool for exercising the rover navigation service with simulated telemetry.

Usage:
  go run cmd/test-telemetry/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -obs int
        Number of observations to generate per car (default 100)
  -cars int
        Number of simulated vehicles (default 1)
  -color string
        Target ball color (default "blue")
  -rate duration
        Delay between observations from the same car (default 50ms)
  -timeout duration
        HTTP request timeout (default 30s)
  -log string
        Log file for test output (default: test_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run cmd/test-telemetry/main.go

  # Simulate a fleet of three cars
  go run cmd/test-telemetry/main.go -cars 3 -obs 500

  # Faster telemetry against a remote service
  go run cmd/test-telemetry/main.go -url http://rover:9080 -rate 10ms -verbose
`)
}
