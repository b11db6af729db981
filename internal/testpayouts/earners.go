package testpayouts

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// retrieveRanks retrieves board entries for all pool identities concurrently.
func retrieveRanks(ctx context.Context, config *Config, identityIDs []string, stats *Stats) ([]Entry, error) {
	log.Printf("🏆 Retrieving board entries for %d identities with %d workers...", len(identityIDs), config.Workers)

	client := newHTTPClient(config.Timeout)

	// Results storage
	ranks := make([]Entry, len(identityIDs))
	var (
		retrieved int64
		failed    int64
	)

	// Progress reporting. The timestamp is shared across workers, so it
	// lives in an atomic like the counters.
	var lastReport atomic.Int64
	reportInterval := 1 * time.Second

	// Create worker pool
	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier) // Send indices instead of IDs
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for index := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
					identityID := identityIDs[index]
					entry, err := retrieveSingleRank(ctx, client, config.BaseURL, identityID)

					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("⚠️  Failed to get rank for %s: %v", identityID, err)
						}
					} else {
						ranks[index] = entry
						atomic.AddInt64(&retrieved, 1)
					}

					// Progress reporting
					if now := time.Now(); now.UnixNano()-lastReport.Load() >= int64(reportInterval) {
						lastReport.Store(now.UnixNano())
						total := atomic.LoadInt64(&retrieved) + atomic.LoadInt64(&failed)
						ret := atomic.LoadInt64(&retrieved)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("📊 Rank progress: %d/%d retrieved (success: %d, failed: %d)",
								total, len(identityIDs), ret, fail)
						} else {
							log.Printf("\r🏆 Ranks: %d/%d retrieved (success: %d, failed: %d)",
								total, len(identityIDs), ret, fail)
						}
					}
				}
			}
		}(i)
	}

	// Send identity indices to workers
	go func() {
		defer close(indexChan)
		for i := range identityIDs {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		log.Println() // New line after progress indicator
	}

	// Filter out empty entries (failed retrievals)
	validRanks := make([]Entry, 0, len(ranks))
	for _, entry := range ranks {
		if entry.IdentityID != "" { // Empty IdentityID indicates failed retrieval
			validRanks = append(validRanks, entry)
		}
	}

	// Update stats
	stats.RanksRetrieved = len(validRanks)

	log.Printf(`✅ Rank retrieval completed:
   Retrieved: %d
   Failed: %d
`, len(validRanks), int(atomic.LoadInt64(&failed)))

	return validRanks, nil
}

// retrieveSingleRank retrieves the board entry for a single identity.
func retrieveSingleRank(ctx context.Context, client *HTTPClient, baseURL, identityID string) (Entry, error) {
	url := fmt.Sprintf("%s/rank/%s", baseURL, identityID)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return Entry{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != StatusOK {
		body, _ := readResponseBody(resp)
		return Entry{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read response: %w", err)
	}

	var entry Entry
	if err := unmarshalJSON(body, &entry); err != nil {
		return Entry{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return entry, nil
}

// getTopEarners retrieves the top N entries from the earnings board.
func getTopEarners(ctx context.Context, config *Config, stats *Stats) ([]Entry, error) {
	log.Printf("🥇 Getting top %d earnings board entries...", config.TopN)

	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/earners?limit=%d", config.BaseURL, config.TopN)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != StatusOK {
		body, _ := readResponseBody(resp)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var earners []Entry
	if err := unmarshalJSON(body, &earners); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.EarnerEntries = len(earners)
	log.Printf("✅ Retrieved %d earnings board entries", len(earners))

	return earners, nil
}
