package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy defines the interface for different backoff strategies
type BackoffStrategy interface {
	// NextDelay returns the delay to wait after the given failed attempt (1-based)
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff with optional jitter
type ExponentialBackoff struct {
	// BaseDelay is the delay after the first failed attempt
	BaseDelay time.Duration
	// MaxDelay caps the delay. Zero means no cap.
	MaxDelay time.Duration
	// Multiplier is the factor by which delay increases
	Multiplier float64
	// JitterFactor adds randomness to avoid thundering herd (0.0 to 1.0)
	JitterFactor float64
}

// NewDoublingBackoff returns an uncapped backoff without jitter that waits
// base, 2*base, 4*base and so on
func NewDoublingBackoff(base time.Duration) *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  base,
		Multiplier: 2.0,
	}
}

// DefaultExponentialBackoff returns a jittered backoff for media downloads
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// NextDelay calculates the next delay with exponential backoff and jitter
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt-1))

	if eb.MaxDelay > 0 && delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}
	if delay > float64(math.MaxInt64) {
		delay = float64(math.MaxInt64)
	}

	if eb.JitterFactor > 0 {
		jitter := delay * eb.JitterFactor
		delay += (rand.Float64() * 2 * jitter) - jitter
	}

	return saturate(delay)
}

// saturate converts delay to a Duration, clamping at the int64 range so a
// large attempt count never wraps into a negative wait
func saturate(delay float64) time.Duration {
	switch {
	case delay <= 0 || math.IsNaN(delay):
		return 0
	case delay >= float64(math.MaxInt64):
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
