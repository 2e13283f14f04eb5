// Package ratelimit provides client-side rate limiting for Instagram requests.
//
// Two algorithms are available:
//
// Smooth:
//   - Backed by golang.org/x/time/rate
//   - Spaces requests evenly with a small burst allowance
//   - Default
//
// Token Bucket:
//   - Fixed capacity bucket that refills completely after a period
//   - Suitable for burst traffic followed by quiet periods
//
// Both implement Limiter, whose Wait honours context cancellation:
//
//	limiter := ratelimit.New(cfg.RateLimit)
//	if limiter != nil {
//		if err := limiter.Wait(ctx); err != nil {
//			return err
//		}
//	}
package ratelimit
