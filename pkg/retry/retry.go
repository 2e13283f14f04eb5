package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "igpost/pkg/errors"
	"igpost/pkg/logger"
)

// Operation is a function that performs an operation that might need retrying
type Operation func() error

// OperationWithResult is a function that returns a result and might need retrying
type OperationWithResult[T any] func() (T, error)

// Config holds retry configuration
type Config struct {
	// Retries is the number of attempts made after the first one.
	// Zero means a single attempt.
	Retries int
	// Backoff strategy to use
	Backoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before each wait
	OnRetry func(attempt int, err error, delay time.Duration)
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultConfig returns the retry configuration used for post fetches:
// three retries, starting at one second and doubling.
func DefaultConfig() *Config {
	return &Config{
		Retries: 3,
		Backoff: NewDoublingBackoff(time.Second),
		RetryIf: DefaultRetryIf,
		Logger:  logger.NewNopLogger(),
	}
}

// DefaultRetryIf retries only throttled (429) and forbidden (403) responses
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errs.IsRetryable(err)
}

// Do executes op until it succeeds, returns a non-retryable error, or the
// retries run out. The error returned is the last one op produced, unwrapped.
// Cancelling ctx during a wait aborts with the context's error.
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = NewDoublingBackoff(time.Second)
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	remaining := cfg.Retries
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}

		if !retryIf(err) {
			return err
		}

		if remaining <= 0 {
			log.ErrorWithFields("retries exhausted", map[string]interface{}{
				"attempts":   attempt,
				"last_error": err.Error(),
			})
			return err
		}

		delay := backoff.NextDelay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}
		remaining--
		logger.LogRetry(log, attempt, remaining, delay.Milliseconds(), err)

		if werr := Wait(ctx, delay); werr != nil {
			log.WarnWithFields("retry cancelled", map[string]interface{}{
				"attempt": attempt,
				"reason":  werr.Error(),
			})
			return fmt.Errorf("retry cancelled: %w", werr)
		}
	}
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](ctx context.Context, op OperationWithResult[T], cfg *Config) (T, error) {
	var result T

	err := Do(ctx, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, cfg)

	return result, err
}
