// Package execservice talks to the remote code-execution backend that runs
// generated server modules out of process. The backend is optional; callers
// fall back to local simulation when it is unreachable.
package execservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable marks the execution backend as not configured or not
// reachable. Callers treat it as the signal to simulate instead.
var ErrUnavailable = errors.New("execservice: backend unavailable")

// Client starts and stops remote executions of generated server code.
type Client interface {
	// Start submits code for execution bound to port and returns the remote
	// process identifier.
	Start(ctx context.Context, code string, port int) (string, error)
	// Stop terminates the remote execution bound to port.
	Stop(ctx context.Context, port int) error
}

// Settings configures HTTP behavior against the backend.
type Settings struct {
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// MaxRetries for transient failures (>=500, 429, or network errors).
	MaxRetries int
	// BackoffBase is the base delay for exponential backoff.
	BackoffBase time.Duration
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		Timeout:     10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithTimeout(d time.Duration) Option     { return func(s *Settings) { s.Timeout = d } }
func WithMaxRetries(n int) Option            { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(s *Settings) { s.BackoffBase = d } }

// HTTPClient implements Client over the backend's JSON API.
type HTTPClient struct {
	baseURL  string
	settings Settings
	httpc    *http.Client
}

// NewHTTPClient builds a client for the backend at baseURL. An empty baseURL
// yields a client whose every call fails with ErrUnavailable.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	return &HTTPClient{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		settings: settings,
		httpc:    &http.Client{Timeout: settings.Timeout},
	}
}

type startRequest struct {
	Code string `json:"code"`
	Port int    `json:"port"`
}

type startResponse struct {
	ProcessID string `json:"processId"`
	Error     string `json:"error,omitempty"`
}

type stopRequest struct {
	Port int `json:"port"`
}

// Start implements Client.
func (c *HTTPClient) Start(ctx context.Context, code string, port int) (string, error) {
	if c.baseURL == "" {
		return "", ErrUnavailable
	}
	payload, err := json.Marshal(startRequest{Code: code, Port: port})
	if err != nil {
		return "", fmt.Errorf("execservice: encode start request: %w", err)
	}
	raw, err := c.postWithRetry(ctx, c.baseURL+"/execute", payload)
	if err != nil {
		return "", err
	}
	var out startResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("execservice: decode start response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("execservice: backend rejected execution: %s", out.Error)
	}
	if out.ProcessID == "" {
		return "", errors.New("execservice: backend returned no process id")
	}
	return out.ProcessID, nil
}

// Stop implements Client.
func (c *HTTPClient) Stop(ctx context.Context, port int) error {
	if c.baseURL == "" {
		return ErrUnavailable
	}
	payload, err := json.Marshal(stopRequest{Port: port})
	if err != nil {
		return fmt.Errorf("execservice: encode stop request: %w", err)
	}
	if _, err := c.postWithRetry(ctx, c.baseURL+"/stop", payload); err != nil {
		return err
	}
	return nil
}

// postWithRetry POSTs the payload, retrying transient failures with
// exponential backoff. Network-level failures on the final attempt surface
// as ErrUnavailable so callers can distinguish "backend down" from a
// definitive rejection.
func (c *HTTPClient) postWithRetry(ctx context.Context, url string, payload []byte) ([]byte, error) {
	var lastErr error
	backoff := c.settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := c.settings.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.httpc.Do(req)
		if err == nil && resp.StatusCode < 300 {
			defer resp.Body.Close()
			return io.ReadAll(resp.Body)
		}
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
		} else {
			defer resp.Body.Close()
			if resp.StatusCode >= 500 || resp.StatusCode == 429 {
				lastErr = fmt.Errorf("%w: transient http error %d", ErrUnavailable, resp.StatusCode)
			} else {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
				return nil, fmt.Errorf("execservice: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if lastErr == nil {
		lastErr = ErrUnavailable
	}
	return nil, lastErr
}
