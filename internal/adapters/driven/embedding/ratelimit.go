// Package embedding holds helpers shared by the embedding adapters in its
// sub-packages: the rate limit error they report on HTTP 429 and a
// decorator that throttles and retries any driven.EmbeddingService.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
	"github.com/custodia-labs/policyqa/internal/logger"
)

// Ensure RateLimited implements the interface.
var _ driven.EmbeddingService = (*RateLimited)(nil)

// DefaultBackoff is used when a 429 response carries no Retry-After header.
const DefaultBackoff = 5 * time.Second

// DefaultMaxRetries is how often a rate-limited call is retried.
const DefaultMaxRetries = 3

// RateLimitError reports an HTTP 429 from an embedding API.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited (retry after %s)", e.Provider, e.RetryAfter)
}

// NewRateLimitError builds a RateLimitError from a 429 response.
func NewRateLimitError(provider string, resp *http.Response) *RateLimitError {
	retry := DefaultBackoff
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		retry = time.Duration(secs) * time.Second
	}
	return &RateLimitError{Provider: provider, RetryAfter: retry}
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
	// MaxRetries bounds retries after a RateLimitError.
	MaxRetries int
}

// RateLimited throttles calls to an embedding service with a token bucket
// and backs off when the service answers 429.
type RateLimited struct {
	driven.EmbeddingService

	mu         sync.Mutex
	limiter    *rate.Limiter
	retryAt    time.Time
	maxRetries int
}

// NewRateLimited wraps svc. A non-positive rate disables throttling but
// keeps the 429 backoff.
func NewRateLimited(svc driven.EmbeddingService, cfg RateLimitConfig) *RateLimited {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 1
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	return &RateLimited{
		EmbeddingService: svc,
		limiter:          rate.NewLimiter(limit, cfg.BurstSize),
		maxRetries:       cfg.MaxRetries,
	}
}

// Embed generates a vector embedding within the rate limit.
func (r *RateLimited) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := r.do(ctx, func() error {
		var err error
		out, err = r.EmbeddingService.Embed(ctx, text)
		return err
	})
	return out, err
}

// EmbedBatch generates embeddings within the rate limit.
// A batch counts as one request.
func (r *RateLimited) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := r.do(ctx, func() error {
		var err error
		out, err = r.EmbeddingService.EmbedBatch(ctx, texts)
		return err
	})
	return out, err
}

func (r *RateLimited) do(ctx context.Context, call func() error) error {
	for attempt := 0; ; attempt++ {
		if err := r.wait(ctx); err != nil {
			return err
		}

		err := call()
		var rle *RateLimitError
		if !errors.As(err, &rle) || attempt >= r.maxRetries {
			return err
		}

		logger.Warn("%v, retrying", rle)
		r.recordRateLimit(rle.RetryAfter)
	}
}

// wait blocks for any backoff period, then for the token bucket.
func (r *RateLimited) wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		timer := time.NewTimer(time.Until(retryAt))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

func (r *RateLimited) recordRateLimit(after time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryAt = time.Now().Add(after)
}
