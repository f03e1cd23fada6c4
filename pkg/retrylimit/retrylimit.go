// Package retrylimit paces calls to a remote API with a rate limit that adapts
// to the outcome of each call, and retries transient failures with backoff.
//
// Example usage:
//
//	lim := retrylimit.NewAdaptiveLimiter(5, 1, 10, 1, 0.5)
//	err := retrylimit.Do(ctx, lim, retrylimit.DefaultRetryConfig(), func() error {
//	    return editMessage()
//	})
package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// AdaptiveLimiter is a token bucket whose rate rises after successes and
// falls after failures, within [min, max]. It is safe for concurrent use.
type AdaptiveLimiter struct {
	mu        sync.Mutex
	limiter   *rate.Limiter
	minLimit  rate.Limit
	maxLimit  rate.Limit
	stepUp    rate.Limit
	stepDown  float64
	cooldown  time.Duration
	lastError time.Time
}

// NewAdaptiveLimiter creates an AdaptiveLimiter.
//
// Parameters:
//   - initial: starting requests per second
//   - min: minimum allowed rate
//   - max: maximum allowed rate
//   - stepUp: increment on success
//   - stepDown: multiplier applied on failure (e.g., 0.5 to halve)
func NewAdaptiveLimiter(initial, min, max, stepUp rate.Limit, stepDown float64) *AdaptiveLimiter {
	if min <= 0 {
		min = 1
	}
	if max < min {
		max = min
	}
	if initial < min {
		initial = min
	}
	if initial > max {
		initial = max
	}
	return &AdaptiveLimiter{
		limiter:  rate.NewLimiter(initial, burstFor(initial)),
		minLimit: min,
		maxLimit: max,
		stepUp:   stepUp,
		stepDown: stepDown,
		cooldown: 10 * time.Second,
	}
}

// Wait blocks until a token is available or ctx is done.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// Success raises the rate, unless a failure happened within the cooldown.
func (a *AdaptiveLimiter) Success() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if time.Since(a.lastError) > a.cooldown {
		a.adjust(a.limiter.Limit() + a.stepUp)
	}
}

// Failure lowers the rate.
func (a *AdaptiveLimiter) Failure() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastError = time.Now()
	a.adjust(rate.Limit(float64(a.limiter.Limit()) * a.stepDown))
}

// CurrentLimit returns the current requests per second.
func (a *AdaptiveLimiter) CurrentLimit() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return float64(a.limiter.Limit())
}

func (a *AdaptiveLimiter) adjust(limit rate.Limit) {
	if limit > a.maxLimit {
		limit = a.maxLimit
	} else if limit < a.minLimit {
		limit = a.minLimit
	}
	if limit != a.limiter.Limit() {
		a.limiter.SetLimit(limit)
		a.limiter.SetBurst(burstFor(limit))
	}
}

func burstFor(l rate.Limit) int {
	return max(1, int(l))
}

// HTTPError is implemented by errors that carry an HTTP status code.
type HTTPError interface {
	error
	StatusCode() int
}

// ErrPermanent marks an error that must not be retried. Wrap with
// fmt.Errorf("%w: ...", ErrPermanent) or use Permanent.
var ErrPermanent = errors.New("permanent error")

// Permanent wraps err so that Do stops retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Retryable reports whether err is worth another attempt: rate limits, server
// errors and errors without a status code are; 4xx responses and permanent
// errors are not.
func Retryable(err error) bool {
	if errors.Is(err, ErrPermanent) {
		return false
	}
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		code := httpErr.StatusCode()
		return code == http.StatusTooManyRequests || code >= 500
	}
	return true
}

type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
	OnRetry      func(attempt int, err error)
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Do calls fn until it succeeds, returns a non-retryable error, ctx is done,
// or MaxAttempts is reached. Every attempt waits on lim first when lim is not
// nil, and reports its outcome back to it.
func Do(ctx context.Context, lim *AdaptiveLimiter, cfg RetryConfig, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	delay := cfg.InitialDelay

	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if lim != nil {
			if werr := lim.Wait(ctx); werr != nil {
				return werr
			}
		}

		err = fn()
		if err == nil {
			if lim != nil {
				lim.Success()
			}
			return nil
		}
		if lim != nil {
			lim.Failure()
		}
		if !Retryable(err) || attempt == cfg.MaxAttempts {
			break
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		wait := delay
		if cfg.Jitter {
			wait = addJitter(delay)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return err
}

// addJitter adds up to 25% of delay.
func addJitter(delay time.Duration) time.Duration {
	if delay < 4 {
		return delay
	}
	return delay + time.Duration(rand.Int63n(int64(delay/4)))
}
