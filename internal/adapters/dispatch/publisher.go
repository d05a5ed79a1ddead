package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/okian/rover/internal/domain/command"
)

// Default publisher configuration constants.
const (
	defaultPublishTimeout = 5 * time.Second
)

// HTTPPublisher posts serialized commands to the actuator endpoint.
type HTTPPublisher struct {
	url    string
	client *http.Client
}

// NewHTTPPublisher creates a publisher posting to the given URL.
func NewHTTPPublisher(url string) *HTTPPublisher {
	return &HTTPPublisher{
		url:    url,
		client: &http.Client{Timeout: defaultPublishTimeout},
	}
}

// Publish sends one command as JSON.
func (p *HTTPPublisher) Publish(ctx context.Context, cmd command.Command) error {
	body, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post command: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("publish rejected: status %d", resp.StatusCode)
	}
	return nil
}

// Recorder is a publisher that records commands instead of sending them.
// Used in DEBUG mode, where decisions still run but publishing is deferred,
// and in tests.
type Recorder struct {
	mu   sync.RWMutex
	cmds []command.Command
}

// NewRecorder creates an empty recording publisher.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish records the command.
func (r *Recorder) Publish(_ context.Context, cmd command.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
	return nil
}

// Commands returns a copy of everything recorded so far.
func (r *Recorder) Commands() []command.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]command.Command, len(r.cmds))
	copy(out, r.cmds)
	return out
}
