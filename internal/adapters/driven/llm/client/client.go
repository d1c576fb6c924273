// Package client is the HTTP transport shared by the language model adapters.
//
// Requests are JSON in and JSON out. Replies with status 429 or 5xx are
// retried with exponential backoff, honouring Retry-After; a local model
// server that is still loading weights answers 503 for a while.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/logger"
)

// Retry defaults.
const (
	DefaultMaxRetries = 2
	baseDelay         = 500 * time.Millisecond
	maxDelay          = 10 * time.Second

	// maxErrorBody caps how much of a failed reply is kept for the error.
	maxErrorBody = 4096
)

// Config configures a Client.
type Config struct {
	// Provider names the backend in errors ("ollama", "openai").
	Provider string

	// BaseURL is the API root; request paths are appended to it.
	BaseURL string

	// Timeout bounds each attempt.
	Timeout time.Duration

	// Headers are sent with every request.
	Headers map[string]string

	// MaxRetries is the number of retries after the first attempt.
	// Zero means DefaultMaxRetries; a negative value disables retries.
	MaxRetries int

	// ErrorMessage extracts the provider's message from a failed reply body.
	// When it returns "" the raw body is used.
	ErrorMessage func(body []byte) string
}

// Client sends JSON requests to one provider.
type Client struct {
	http         *http.Client
	provider     string
	baseURL      string
	headers      map[string]string
	maxRetries   int
	errorMessage func([]byte) string
}

// New creates a client.
func New(cfg Config) *Client {
	retries := cfg.MaxRetries
	switch {
	case retries == 0:
		retries = DefaultMaxRetries
	case retries < 0:
		retries = 0
	}

	return &Client{
		http:         &http.Client{Timeout: cfg.Timeout},
		provider:     cfg.Provider,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		headers:      cfg.Headers,
		maxRetries:   retries,
		errorMessage: cfg.ErrorMessage,
	}
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the per-attempt timeout.
func (c *Client) Timeout() time.Duration {
	return c.http.Timeout
}

// StatusError is a reply with a status other than 200.
type StatusError struct {
	Provider   string
	Code       int
	Message    string
	retryAfter string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.Code, e.Message)
}

// Temporary reports whether the request may succeed if repeated.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// Unwrap classifies temporary failures as an unavailable model service.
func (e *StatusError) Unwrap() error {
	if e.Temporary() {
		return domain.ErrLLMUnavailable
	}
	return nil
}

// PostJSON sends in to path and decodes a 200 reply into out.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	for attempt := 0; ; attempt++ {
		err = c.do(ctx, http.MethodPost, path, body, out)

		var se *StatusError
		if err == nil || !errors.As(err, &se) || !se.Temporary() || attempt >= c.maxRetries {
			return err
		}

		delay := RetryDelay(attempt, se.retryAfter)
		logger.Debug("%s: status %d, retry %d/%d in %s", c.provider, se.Code, attempt+1, c.maxRetries, delay)
		if werr := wait(ctx, delay); werr != nil {
			return err
		}
	}
}

// Get issues a GET to path and discards the reply. It is used for pings.
func (c *Client) Get(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodGet, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.provider, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrLLMUnavailable, c.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best effort
		msg := ""
		if c.errorMessage != nil {
			msg = c.errorMessage(raw)
		}
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return &StatusError{
			Provider:   c.provider,
			Code:       resp.StatusCode,
			Message:    msg,
			retryAfter: resp.Header.Get("Retry-After"),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.provider, err)
	}
	return nil
}

// RetryDelay returns how long to wait before retry attempt+1.
// A Retry-After header in seconds wins; otherwise the delay doubles from
// 500ms, capped at 10s.
func RetryDelay(attempt int, retryAfter string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs >= 0 {
		return min(time.Duration(secs)*time.Second, maxDelay)
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 5 {
		return maxDelay
	}
	return min(baseDelay<<attempt, maxDelay)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
