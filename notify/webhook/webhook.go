// Package webhook implements an HTTP POST notifier.
//
// Publishes run completion events as JSON to a pool of endpoints.
// Retries with exponential backoff on transient failures; a failed
// endpoint sits out of rotation for a cooldown period so retries land on
// healthy endpoints first.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kolsys/allure-phpunit/iox"
	"github.com/kolsys/allure-phpunit/notify"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// DefaultCooldown is the default endpoint cooldown after a failed
// delivery.
const DefaultCooldown = 30 * time.Second

// Config configures the webhook notifier.
type Config struct {
	// URLs are the HTTP endpoints to POST to (at least one required).
	// Multiple endpoints form a failover pool.
	URLs []string
	// Strategy picks the next endpoint: round_robin (default) or random.
	Strategy Strategy
	// Headers are custom HTTP headers added to each request.
	Headers map[string]string
	// Timeout is the per-request timeout (default 10s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure (default 3).
	Retries int
	// Cooldown is how long a failed endpoint sits out of rotation
	// (default 30s).
	Cooldown time.Duration
}

// Adapter publishes run completion events via HTTP POST.
type Adapter struct {
	config Config
	pool   *Pool
	client *http.Client
}

// New creates a webhook notifier from the given config.
// Returns an error if no endpoint URL is configured.
func New(cfg Config) (*Adapter, error) {
	if len(cfg.URLs) == 0 {
		return nil, errors.New("webhook notifier requires at least one URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}

	pool, err := NewPool(cfg.URLs, cfg.Strategy, cfg.Cooldown)
	if err != nil {
		return nil, err
	}

	return &Adapter{
		config: cfg,
		pool:   pool,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name identifies this notifier in logs and run reports.
func (a *Adapter) Name() string { return "webhook" }

// Publish sends the event as a JSON POST request.
// Retries with exponential backoff on 5xx responses and network errors,
// rotating to the next pool endpoint after each failure. 4xx responses
// are non-retriable and fail immediately.
func (a *Adapter) Publish(ctx context.Context, event *notify.RunCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	var lastErr error
	// attempts = 1 initial + retries
	attempts := 1 + a.config.Retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("webhook: context canceled: %w", err)
		}

		// Exponential backoff before retries (not before first attempt)
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return fmt.Errorf("webhook: context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		url := a.pool.Next()
		lastErr = a.doRequest(ctx, url, body)
		if lastErr == nil {
			a.pool.MarkHealthy(url)
			return nil
		}

		// 4xx errors are non-retriable and say nothing about endpoint
		// health. Stop immediately without a cooldown.
		var statusErr *notify.StatusError
		if errors.As(lastErr, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 {
			return fmt.Errorf("webhook: non-retriable error: %w", lastErr)
		}

		a.pool.MarkFailed(url)
	}

	return fmt.Errorf("webhook: failed after %d attempts: %w", attempts, lastErr)
}

// doRequest performs a single HTTP POST and returns nil on 2xx.
func (a *Adapter) doRequest(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range a.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &notify.StatusError{Code: resp.StatusCode}
	}

	return nil
}

// PoolStats reports the endpoint pool state.
func (a *Adapter) PoolStats() PoolStats {
	return a.pool.Stats()
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

// Verify Adapter implements the notifier interface.
var _ notify.Adapter = (*Adapter)(nil)
