// Package retry provides backoff and retry logic for Instagram requests.
//
// Post fetches retry only on 429 and 403 responses. The first wait equals the
// configured delay and every further wait doubles it:
//
//	cfg := &retry.Config{
//		Retries: 3,
//		Backoff: retry.NewDoublingBackoff(time.Second),
//		Logger:  logger.GetLogger(),
//	}
//	err := retry.Do(ctx, func() error {
//		return client.Post(ctx, form)
//	}, cfg)
//
// With Retries set to n an operation runs at most n+1 times. When the
// retries run out Do returns the last error unchanged, so callers can still
// read its status code and body.
//
// Media downloads use DefaultExponentialBackoff, which is capped and
// jittered.
package retry
