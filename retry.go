package prismlate

import (
	"context"
	"errors"
	"time"
)

// RetryConfig controls how transient provider failures are retried.
type RetryConfig struct {
	MaxRetries int           // Attempts after the first one
	BaseDelay  time.Duration // Delay before the first retry, doubled each time
	MaxDelay   time.Duration // Upper bound for a single delay

	// OnRetry, if set, is called before each retry sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig retries twice, starting at half a second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
	}
}

// delay returns the backoff before retry number attempt (1-based).
func (c RetryConfig) delay(attempt int) time.Duration {
	d := c.BaseDelay << (attempt - 1)
	if d <= 0 || (c.MaxDelay > 0 && d > c.MaxDelay) {
		d = c.MaxDelay
	}
	return d
}

// RetryFunc is a function that can be retried.
type RetryFunc[T any] func() (T, error)

// WithRetry calls fn until it succeeds, fails with an error IsRetryable
// rejects, or runs out of attempts. The last error is returned.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, fn RetryFunc[T]) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		out, err := fn()
		if err == nil {
			return out, nil
		}
		if attempt >= cfg.MaxRetries || !IsRetryable(err) {
			return zero, err
		}

		d := cfg.delay(attempt + 1)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, d)
		}

		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

// IsRetryable reports whether err is a provider error marked transient.
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retryable
}

// RetryableGateway retries transient failures of the wrapped gateway.
type RetryableGateway struct {
	gateway Gateway
	config  RetryConfig
}

// NewRetryableGateway wraps gw with cfg.
func NewRetryableGateway(gw Gateway, cfg RetryConfig) *RetryableGateway {
	return &RetryableGateway{gateway: gw, config: cfg}
}

// Translate implements Gateway.
func (g *RetryableGateway) Translate(ctx context.Context, req Request) (string, error) {
	return WithRetry(ctx, g.config, func() (string, error) {
		return g.gateway.Translate(ctx, req)
	})
}

var _ Gateway = (*RetryableGateway)(nil)
