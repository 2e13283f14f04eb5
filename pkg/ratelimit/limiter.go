package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"igpost/pkg/config"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow checks if a request is allowed under the current rate limit
	Allow() bool
	// Wait blocks until the rate limit allows another request or ctx is done
	Wait(ctx context.Context) error
	// Reset resets the rate limiter state
	Reset()
}

// New builds the limiter described by cfg. It returns nil when rate limiting
// is disabled.
func New(cfg config.RateLimitConfig) Limiter {
	if cfg.RequestsPerMinute <= 0 {
		return nil
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}

	switch cfg.Algorithm {
	case "bucket":
		return NewTokenBucket(cfg.RequestsPerMinute, time.Minute)
	default:
		return NewSmooth(cfg.RequestsPerMinute, burst)
	}
}

// Smooth spaces requests evenly over the minute, allowing short bursts
type Smooth struct {
	limiter *rate.Limiter
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
}

// NewSmooth creates a limiter allowing requestsPerMinute with the given burst
func NewSmooth(requestsPerMinute, burst int) *Smooth {
	limit := rate.Every(time.Minute / time.Duration(requestsPerMinute))
	return &Smooth{
		limiter: rate.NewLimiter(limit, burst),
		limit:   limit,
		burst:   burst,
	}
}

func (s *Smooth) current() *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limiter
}

// Allow checks if a request can proceed
func (s *Smooth) Allow() bool {
	return s.current().Allow()
}

// Wait blocks until a token is available
func (s *Smooth) Wait(ctx context.Context) error {
	return s.current().Wait(ctx)
}

// Reset refills the burst
func (s *Smooth) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiter = rate.NewLimiter(s.limit, s.burst)
}

// TokenBucket implements a token bucket rate limiter that refills completely
// once per period
type TokenBucket struct {
	capacity     int           // Maximum number of tokens
	tokens       int           // Current number of tokens
	refillPeriod time.Duration // Period after which bucket is refilled
	lastRefill   time.Time     // Last time the bucket was refilled
	mu           sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
	}
}

// Allow checks if a request can proceed
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}

	return false
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for !tb.Allow() {
		tb.mu.Lock()
		timeUntilRefill := tb.refillPeriod - time.Since(tb.lastRefill)
		tb.mu.Unlock()

		if timeUntilRefill <= 0 {
			// avoid busy waiting
			timeUntilRefill = 10 * time.Millisecond
		}

		timer := time.NewTimer(timeUntilRefill)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return nil
}

// Reset resets the token bucket to full capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = time.Now()
}

// refill adds tokens based on elapsed time
func (tb *TokenBucket) refill() {
	now := time.Now()
	if now.Sub(tb.lastRefill) >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}
