// Package http provides the retrying HTTP client behind botkit's outbound
// calls (release metadata and fork-update checks). It retries transient
// failures with exponential backoff and stamps every request with an ID.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Config configures the client
type Config struct {
	Timeout           time.Duration
	MaxRetries        int
	BaseRetryDelay    time.Duration
	MaxRetryDelay     time.Duration
	BackoffMultiplier float64
	RetryableStatuses []int
	UserAgent         string

	// BaseClient, when set, replaces the default http.Client. Used to route
	// requests through an authenticating transport.
	BaseClient *http.Client
}

// Client is a thin wrapper over http.Client with retry logic and request
// counting.
type Client struct {
	client  *http.Client
	config  Config
	reqs    atomic.Int64
	retries atomic.Int64
}

// Stats reports how much work a client has done
type Stats struct {
	Requests int64
	Retries  int64
}

// StatusError is returned when the server answers with a non-2xx status after
// all retries are spent.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// NewClient creates a Client, filling unset config fields with defaults.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.BaseRetryDelay == 0 {
		config.BaseRetryDelay = time.Second
	}
	if config.MaxRetryDelay == 0 {
		config.MaxRetryDelay = 30 * time.Second
	}
	if config.BackoffMultiplier == 0 {
		config.BackoffMultiplier = 2.0
	}
	if len(config.RetryableStatuses) == 0 {
		config.RetryableStatuses = []int{429, 500, 502, 503, 504}
	}
	if config.UserAgent == "" {
		config.UserAgent = "botkit/1.0"
	}

	client := config.BaseClient
	if client == nil {
		client = &http.Client{}
	}
	// The per-request deadline still applies when a base client is supplied.
	if client.Timeout == 0 {
		client.Timeout = config.Timeout
	}

	return &Client{client: client, config: config}
}

// Do executes the request, retrying retryable statuses and transport errors
// with exponential backoff. The caller owns the response body on success.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	c.reqs.Add(1)

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("X-Request-ID", uuid.New().String())

	var resp *http.Response
	var err error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			c.retries.Add(1)
		}

		resp, err = c.client.Do(req.Clone(ctx))
		if err != nil {
			continue
		}
		if c.retryable(resp.StatusCode) && attempt < c.config.MaxRetries {
			_ = resp.Body.Close()
			continue
		}
		break
	}

	return resp, err
}

// GetJSON fetches url and decodes the JSON response into out. A non-2xx final
// status becomes a *StatusError.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// Stats returns request and retry totals since the client was created.
func (c *Client) Stats() Stats {
	return Stats{Requests: c.reqs.Load(), Retries: c.retries.Load()}
}

func (c *Client) retryable(status int) bool {
	for _, s := range c.config.RetryableStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// backoff returns the delay before retry attempt n (1-indexed).
func (c *Client) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return c.config.BaseRetryDelay
	}
	if attempt > 30 {
		attempt = 30
	}

	multiplier := float64(int(1)<<uint(attempt-1)) * c.config.BackoffMultiplier
	delay := time.Duration(float64(c.config.BaseRetryDelay) * multiplier)
	if delay > c.config.MaxRetryDelay {
		delay = c.config.MaxRetryDelay
	}
	return delay
}
