package testpayouts

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// collectDistributions polls the read endpoint until every submitted request
// has a stored distribution, then returns the decoded results in submission
// order. Accepted jobs answer 404 until a worker records them, so polling is
// the completion signal.
func collectDistributions(ctx context.Context, config *Config, requests []DistributionRequest, stats *Stats) ([]DistributionResponse, error) {
	log.Printf("⏳ Collecting %d computed distributions...", len(requests))

	client := newHTTPClient(config.Timeout)

	results := make([]DistributionResponse, len(requests))
	pending := make(map[string]int, len(requests)) // request id -> index
	for i, request := range requests {
		pending[request.RequestID] = i
	}

	deadline := time.Now().Add(ProcessingWaitTimeout)
	for len(pending) > 0 {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%d of %d distributions still pending after %s",
				len(pending), len(requests), ProcessingWaitTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled while collecting distributions: %w", ctx.Err())
		case <-time.After(ProcessingPollInterval):
		}

		resolved := probeRound(ctx, client, config, pending)
		for id, response := range resolved {
			results[pending[id]] = response
			delete(pending, id)
		}

		if config.Verbose {
			log.Printf("📊 Distributions ready: %d/%d", len(requests)-len(pending), len(requests))
		} else {
			fmt.Printf("\r⏳ Distributions ready: %d/%d", len(requests)-len(pending), len(requests))
		}
	}

	// Final progress report
	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	stats.DistributionsRetrieved = len(requests)
	log.Printf("✅ Collected %d distributions", len(requests))

	return results, nil
}

// probeRound checks every pending request once and returns the ones that
// resolved this round.
func probeRound(ctx context.Context, client *HTTPClient, config *Config, pending map[string]int) map[string]DistributionResponse {
	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}

	type probeResult struct {
		id       string
		response DistributionResponse
		ok       bool
	}

	idChan := make(chan string, config.Workers*WorkerChannelMultiplier)
	resultChan := make(chan probeResult, len(ids))
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for id := range idChan {
				select {
				case <-ctx.Done():
					return
				default:
					response, err := fetchDistribution(ctx, client, config.BaseURL, id)
					resultChan <- probeResult{id: id, response: response, ok: err == nil}
				}
			}
		}()
	}

	// Send pending ids to workers
	go func() {
		defer close(idChan)
		for _, id := range ids {
			select {
			case <-ctx.Done():
				return
			case idChan <- id:
			}
		}
	}()

	wg.Wait()
	close(resultChan)

	resolved := make(map[string]DistributionResponse)
	for result := range resultChan {
		if result.ok {
			resolved[result.id] = result.response
		}
	}
	return resolved
}

// fetchDistribution retrieves one stored distribution. A 404 means the job
// has not been processed yet.
func fetchDistribution(ctx context.Context, client *HTTPClient, baseURL, requestID string) (DistributionResponse, error) {
	url := fmt.Sprintf("%s/distributions/%s", baseURL, requestID)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return DistributionResponse{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != StatusOK {
		body, _ := readResponseBody(resp)
		return DistributionResponse{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return DistributionResponse{}, fmt.Errorf("failed to read response: %w", err)
	}

	var response DistributionResponse
	if err := unmarshalJSON(body, &response); err != nil {
		return DistributionResponse{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return response, nil
}
