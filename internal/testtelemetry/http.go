package testtelemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitObservations streams each car's observations in order, one goroutine
// per car. Interleaving cars is safe; interleaving within a car would trip
// the freshness gate.
func submitObservations(ctx context.Context, config *Config, streams map[string][]Observation, stats *Stats) error {
	total := 0
	for _, obs := range streams {
		total += len(obs)
	}
	log.Printf("submitting %d observations across %d cars...", total, len(streams))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/telemetry"

	var (
		accepted  int64
		dropped   int64
		failed    int64
		submitted int64
	)

	var wg sync.WaitGroup
	for carID, obs := range streams {
		wg.Add(1)
		go func(carID string, obs []Observation) {
			defer wg.Done()

			for _, o := range obs {
				select {
				case <-ctx.Done():
					return
				default:
				}

				result := submitSingleObservation(ctx, client, url, o)
				atomic.AddInt64(&submitted, 1)
				switch result {
				case "accepted":
					atomic.AddInt64(&accepted, 1)
				case "dropped":
					atomic.AddInt64(&dropped, 1)
				case "failed":
					atomic.AddInt64(&failed, 1)
				}

				if config.Verbose {
					log.Printf("car %s: %s", carID, result)
				}

				if config.RateDelay > 0 {
					select {
					case <-ctx.Done():
						return
					case <-time.After(config.RateDelay):
					}
				}
			}
		}(carID, obs)
	}

	wg.Wait()

	stats.ObsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.ObsAccepted = int(atomic.LoadInt64(&accepted))
	stats.ObsDroppedStale = int(atomic.LoadInt64(&dropped))
	stats.ObsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`telemetry submission completed:
   Accepted: %d
   Dropped:  %d
   Failed:   %d
`, stats.ObsAccepted, stats.ObsDroppedStale, stats.ObsFailed)

	return nil
}

// submitSingleObservation submits one observation and classifies the outcome
func submitSingleObservation(ctx context.Context, client *HTTPClient, url string, obs Observation) string {
	resp, err := client.Post(ctx, url, obs)
	if err != nil {
		return "failed"
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	switch resp.StatusCode {
	case StatusOK:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err == nil && ack.Status == "dropped_stale" {
			return "dropped"
		}
		return "accepted"
	case StatusTooManyRequests:
		// Backpressure; count as dropped rather than a hard failure.
		return "dropped"
	default:
		return "failed"
	}
}

// fetchCommands retrieves the recent audited commands
func fetchCommands(ctx context.Context, config *Config, limit int, stats *Stats) ([]CommandEntry, error) {
	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/commands?limit=%d", config.BaseURL, limit)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch commands: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read commands response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("commands request failed with status: %d", resp.StatusCode)
	}

	var entries []CommandEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse commands response: %w", err)
	}

	stats.CommandsRetrieved = len(entries)
	return entries, nil
}

// fetchStats retrieves the service stats snapshot
func fetchStats(ctx context.Context, config *Config) (map[string]interface{}, error) {
	client := newHTTPClient(config.Timeout)

	resp, err := client.Get(ctx, config.BaseURL+"/stats")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stats: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read stats response: %w", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse stats response: %w", err)
	}
	return out, nil
}
