package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/meskan/granary/internal/testpayouts"
)

// Default configuration constants.
const (
	defaultNumRequests   = 5000
	defaultNumIdentities = 100
	defaultNumIntervals  = 4
	defaultNumPolicies   = 2
	defaultTopN          = 50
	defaultWorkers       = 2 // multiplier for runtime.NumCPU()
	defaultTimeout       = 30 * time.Second
	defaultTestTimeout   = 10 * time.Minute
)

func main() {
	var (
		baseURL       = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numRequests   = flag.Int("requests", defaultNumRequests, "Number of distribution requests to generate and submit")
		numIdentities = flag.Int("identities", defaultNumIdentities, "Number of identities in the shared earner pool")
		numIntervals  = flag.Int("intervals", defaultNumIntervals, "Number of cred intervals per identity")
		numPolicies   = flag.Int("policies", defaultNumPolicies, "Number of policies per request")
		topN          = flag.Int("top", defaultTopN, "Number of top entries to fetch from the earnings board")
		workers       = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout       = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile    = flag.String("output", "", "Output file for generated requests (default: generated_requests_TIMESTAMP.json)")
		logFile       = flag.String("log", "", "Log file for test output (default: payout_test_TIMESTAMP.log)")
		verbose       = flag.Bool("verbose", false, "Enable verbose logging")
		help          = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testpayouts.ShowHelp()
		return
	}

	// Setup logging
	if err := testpayouts.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &testpayouts.Config{
		BaseURL:       *baseURL,
		NumRequests:   *numRequests,
		NumIdentities: *numIdentities,
		NumIntervals:  *numIntervals,
		NumPolicies:   *numPolicies,
		TopN:          *topN,
		Workers:       *workers,
		Timeout:       *timeout,
		OutputFile:    *outputFile,
		LogFile:       *logFile,
		Verbose:       *verbose,
	}

	// Run the test
	if err := testpayouts.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return
	}
}
