package testpayouts

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/meskan/granary/pkg/logger"
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
		logFile = "payout_test_" + timestamp + ".log"
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

// ShowHelp prints usage information for the payout test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Granary Payout Test Tool
========================

A high-performance concurrent tool for testing the Granary distribution
processing service.

Usage:
  go run cmd/test-payouts/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -requests int
        Number of distribution requests to generate and submit (default 5000)
  -identities int
        Number of identities in the shared earner pool (default 100)
  -intervals int
        Number of cred intervals per identity (default 4)
  -policies int
        Number of policies per request (default 2)
  -top int
        Number of top entries to fetch from the earnings board (default 50)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated requests (default: generated_requests_TIMESTAMP.json)
  -log string
        Log file for test output (default: payout_test_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run cmd/test-payouts/main.go

  # Test with custom parameters
  go run cmd/test-payouts/main.go -requests 20000 -workers 16 -url http://localhost:8080

  # Test with a larger earner pool
  go run cmd/test-payouts/main.go -identities 1000 -intervals 12

  # Test with custom log file
  go run cmd/test-payouts/main.go -requests 20000 -log my_test.log
`)
}
