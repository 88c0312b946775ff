package prismlate

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

// RateLimitConfig bounds the request rate towards a provider.
type RateLimitConfig struct {
	RequestsPerMinute int           // Defaults to 60
	BurstSize         int           // Defaults to RequestsPerMinute
	Cooldown          time.Duration // Pause after a 429; defaults to one minute
}

// RateLimiter is a token bucket shared by every run of a process. A
// provider that answers 429 pauses the whole bucket.
type RateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	perSec   float64
	last     time.Time
	paused   time.Time // No tokens are handed out before this instant
	cooldown time.Duration
	now      func() time.Time
}

// NewRateLimiter returns a limiter with a full bucket.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = rpm
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = time.Minute
	}

	r := &RateLimiter{
		tokens:   float64(burst),
		capacity: float64(burst),
		perSec:   float64(rpm) / 60,
		cooldown: cooldown,
		now:      time.Now,
	}
	r.last = r.now()
	return r
}

// TryAcquire takes a token if one is available.
func (r *RateLimiter) TryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.takeLocked() == 0
}

// Wait blocks until a token is taken or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		delay := r.takeLocked()
		r.mu.Unlock()
		if delay == 0 {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Pause stops handing out tokens for d, or for the configured cooldown
// when d is zero. A shorter pause never cuts a longer one short.
func (r *RateLimiter) Pause(d time.Duration) {
	if d <= 0 {
		d = r.cooldown
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if until := r.now().Add(d); until.After(r.paused) {
		r.paused = until
	}
}

// Available returns the tokens currently in the bucket.
func (r *RateLimiter) Available() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refillLocked()
	return r.tokens
}

// takeLocked consumes a token and returns zero, or returns how long to
// wait before the next one.
func (r *RateLimiter) takeLocked() time.Duration {
	now := r.refillLocked()
	if now.Before(r.paused) {
		return r.paused.Sub(now)
	}
	if r.tokens >= 1 {
		r.tokens--
		return 0
	}
	missing := 1 - r.tokens
	return time.Duration(missing / r.perSec * float64(time.Second))
}

func (r *RateLimiter) refillLocked() time.Time {
	now := r.now()
	if elapsed := now.Sub(r.last); elapsed > 0 {
		r.tokens = min(r.capacity, r.tokens+elapsed.Seconds()*r.perSec)
	}
	r.last = now
	return now
}

// RateLimitedGateway spaces out requests to the wrapped gateway.
type RateLimitedGateway struct {
	gateway Gateway
	limiter *RateLimiter
}

// NewRateLimitedGateway wraps gw with a limiter built from cfg.
func NewRateLimitedGateway(gw Gateway, cfg RateLimitConfig) *RateLimitedGateway {
	return &RateLimitedGateway{gateway: gw, limiter: NewRateLimiter(cfg)}
}

// Translate waits for a token, then forwards the request. A 429 from the
// provider pauses the limiter for every later request.
func (g *RateLimitedGateway) Translate(ctx context.Context, req Request) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", &ProviderError{Message: "rate limit wait cancelled", Cause: err}
	}

	out, err := g.gateway.Translate(ctx, req)
	var pe *ProviderError
	if errors.As(err, &pe) && pe.StatusCode == http.StatusTooManyRequests {
		g.limiter.Pause(0)
	}
	return out, err
}

// Limiter returns the shared limiter.
func (g *RateLimitedGateway) Limiter() *RateLimiter {
	return g.limiter
}

var _ Gateway = (*RateLimitedGateway)(nil)
