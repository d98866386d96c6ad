// Package retrylimit provides an adaptive rate limiter and a retry loop for
// clients of rate-limited services. Errors that carry an HTTP status code
// (see HTTPError) get special handling: 429 lowers the rate and retries
// quickly, 5xx lowers the rate and backs off, anything else is returned
// immediately.
package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// AdaptiveLimiter manages a rate limit that increases on success and
// decreases on overload responses.
type AdaptiveLimiter struct {
	mu        sync.Mutex
	limiter   *rate.Limiter
	minLimit  rate.Limit
	maxLimit  rate.Limit
	stepUp    rate.Limit
	stepDown  float64
	lastError time.Time
}

// NewAdaptiveLimiter creates an AdaptiveLimiter.
//
//   - initial: starting requests per second
//   - minRate, maxRate: bounds of the rate
//   - stepUp: increment on success
//   - stepDown: multiplier applied on overload (e.g. 0.5 to halve)
func NewAdaptiveLimiter(initial, minRate, maxRate rate.Limit, stepUp rate.Limit, stepDown float64) *AdaptiveLimiter {
	if initial < 1 {
		initial = 1
	}
	if minRate < 1 {
		minRate = 1
	}
	return &AdaptiveLimiter{
		limiter:  rate.NewLimiter(initial, max(1, int(initial))),
		minLimit: minRate,
		maxLimit: maxRate,
		stepUp:   stepUp,
		stepDown: stepDown,
	}
}

// Wait blocks until a token is available or ctx is done.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// Success raises the rate unless an overload was seen in the last 10s.
func (a *AdaptiveLimiter) Success() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if time.Since(a.lastError) > 10*time.Second {
		a.adjust(a.limiter.Limit() + a.stepUp)
	}
}

// RateLimited lowers the rate after an overload response.
func (a *AdaptiveLimiter) RateLimited() {
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
	limit = min(max(limit, a.minLimit), a.maxLimit)
	if limit != a.limiter.Limit() {
		a.limiter.SetLimit(limit)
		a.limiter.SetBurst(max(1, int(limit)))
	}
}

// HTTPError is implemented by errors that carry an HTTP status code.
type HTTPError interface {
	error
	StatusCode() int
}

// FatalError stops retries immediately.
type FatalError struct {
	Err error
}

func (f *FatalError) Error() string { return f.Err.Error() }
func (f *FatalError) Unwrap() error { return f.Err }

// Config configures WithRetry.
type Config struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	RateLimitDelay time.Duration
	Multiplier     float64
	Jitter         bool
	Logger         *zap.Logger
}

// DefaultConfig returns the retry policy used for outbound API calls.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		RateLimitDelay: time.Second,
		Multiplier:     2.0,
		Jitter:         true,
		Logger:         zap.NewNop(),
	}
}

// WithRetry calls fn until it succeeds, returns a non-retryable error, ctx is
// done or MaxAttempts is reached. Only 429 and 5xx errors are retried; the
// error of the last attempt is returned.
func WithRetry(ctx context.Context, lim *AdaptiveLimiter, cfg Config, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	delay := cfg.InitialDelay
	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if lim != nil {
			if werr := lim.Wait(ctx); werr != nil {
				if err != nil {
					return err
				}
				return werr
			}
		}

		err = fn(ctx)
		if err == nil {
			if lim != nil {
				lim.Success()
			}
			if attempt > 1 {
				cfg.Logger.Debug("request succeeded after retry", zap.Int("attempt", attempt))
			}
			return nil
		}

		var fatal *FatalError
		if errors.As(err, &fatal) {
			return fatal.Err
		}

		var wait time.Duration
		switch {
		case IsRateLimited(err):
			if lim != nil {
				lim.RateLimited()
			}
			wait = cfg.RateLimitDelay
		case IsServerError(err):
			if lim != nil {
				lim.RateLimited()
			}
			wait = delay
			if cfg.Jitter {
				wait = addJitter(wait)
			}
			delay = min(time.Duration(float64(delay)*cfg.Multiplier), cfg.MaxDelay)
		default:
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		cfg.Logger.Info("retrying request",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return err
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("after %d attempts: %w", cfg.MaxAttempts, err)
}

func addJitter(d time.Duration) time.Duration {
	if d < 4 {
		return d
	}
	return d + time.Duration(rand.Int63n(int64(d/4)))
}

// IsRateLimited reports whether err carries HTTP 429.
func IsRateLimited(err error) bool {
	var h HTTPError
	return errors.As(err, &h) && h.StatusCode() == http.StatusTooManyRequests
}

// IsServerError reports whether err carries an HTTP 5xx status.
func IsServerError(err error) bool {
	var h HTTPError
	return errors.As(err, &h) && h.StatusCode() >= 500 && h.StatusCode() < 600
}
