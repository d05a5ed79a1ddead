// Package perception is the client for the external object-detection
// collaborator. The engine treats it as a single blocking dependency per
// cycle; a failure here is fatal to that cycle, never silently treated as
// "no detections".
package perception

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/rover/internal/domain/model"
	"github.com/okian/rover/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultTimeout = 10 * time.Second
)

// Detector returns the labeled, scored bounding boxes visible in the
// observation's image.
type Detector interface {
	Detect(ctx context.Context, obs model.Observation) ([]model.Detection, error)
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithTimeout sets the per-call timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// Client calls a remote detection service over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a perception client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// detectRequest mirrors the detection service's POST /detect schema.
type detectRequest struct {
	CarID    string `json:"car_id"`
	ImageRef string `json:"image_ref"`
}

type detectResponse struct {
	Detections []model.Detection `json:"detections"`
}

// Detect posts the observation's image reference and decodes the detections.
// An empty list is a normal result; transport and server failures surface as
// ErrUnavailable.
func (c *Client) Detect(ctx context.Context, obs model.Observation) ([]model.Detection, error) {
	start := time.Now()
	metrics.RecordPerceptionCall()
	defer func() {
		metrics.RecordPerceptionLatency(float64(time.Since(start).Milliseconds()))
	}()

	body, err := json.Marshal(detectRequest{CarID: obs.CarID, ImageRef: obs.ImageRef})
	if err != nil {
		return nil, fmt.Errorf("marshal detect request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create detect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordPerceptionError()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordPerceptionError()
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var decoded detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		metrics.RecordPerceptionError()
		return nil, fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}

	return decoded.Detections, nil
}
