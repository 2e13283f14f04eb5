package scraper

import "time"

const (
	// DefaultRetries is the number of retries after the first attempt
	DefaultRetries = 5
	// DefaultDelay is the first backoff wait
	DefaultDelay = 1000 * time.Millisecond
)

// Options tune a single lookup
type Options struct {
	// Retries on 429/403 responses after the first attempt
	Retries int
	// Delay before the first retry, doubled after each one
	Delay time.Duration
}

// Option modifies Options
type Option func(*Options)

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{
		Retries: DefaultRetries,
		Delay:   DefaultDelay,
	}
}

// WithRetries sets the retry budget
func WithRetries(n int) Option {
	return func(o *Options) {
		o.Retries = n
	}
}

// WithDelay sets the initial backoff delay
func WithDelay(d time.Duration) Option {
	return func(o *Options) {
		o.Delay = d
	}
}

// WithOptions replaces all options at once
func WithOptions(opts Options) Option {
	return func(o *Options) {
		*o = opts
	}
}
