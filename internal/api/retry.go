package api

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"
)

// RetryConfig configures retries of idempotent requests.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig returns the retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     5 * time.Second,
		Multiplier:  2.0,
	}
}

// RetryTransport is a decorator that retries transient failures of GET
// requests with exponential backoff and jitter. Other methods pass
// through untouched: a submission is dispatched exactly once.
type RetryTransport struct {
	inner  http.RoundTripper
	config RetryConfig
}

// WithRetry wraps a RoundTripper with retry logic.
func WithRetry(rt http.RoundTripper, cfg RetryConfig) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &RetryTransport{inner: rt, config: cfg}
}

func (r *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return r.inner.RoundTrip(req)
	}

	attempts := max(1, r.config.MaxAttempts)
	counter := &attemptCounter{}
	ctx := withAttempt(req.Context(), counter)
	req = req.WithContext(ctx)

	var (
		resp *http.Response
		err  error
	)
	for attempt := range attempts {
		counter.n = attempt + 1
		resp, err = r.inner.RoundTrip(req)
		if !r.shouldRetry(ctx, resp, err) {
			return resp, err
		}

		// Last attempt: hand back whatever we got.
		if attempt == attempts-1 {
			break
		}

		wait := r.backoff(attempt, resp)
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return resp, err
}

// shouldRetry determines if a round trip is worth repeating.
func (r *RetryTransport) shouldRetry(ctx context.Context, resp *http.Response, err error) bool {
	if err != nil {
		// Context errors are never retried.
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		return true
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// backoff computes the wait duration for the given attempt.
func (r *RetryTransport) backoff(attempt int, resp *http.Response) time.Duration {
	// Respect Retry-After when the server sends seconds.
	if resp != nil {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			return min(time.Duration(secs)*time.Second, r.config.MaxWait)
		}
	}

	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	if wait > float64(r.config.MaxWait) {
		wait = float64(r.config.MaxWait)
	}

	// Add ±20% jitter.
	jitter := wait * 0.2 * (2*rand.Float64() - 1)
	wait += jitter

	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
