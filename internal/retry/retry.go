package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Default retry configuration constants.
const (
	// DefaultMaxRetries is the default maximum number of retry attempts.
	DefaultMaxRetries = 3

	// DefaultInitialBackoff is the default initial backoff duration.
	DefaultInitialBackoff = 50 * time.Millisecond

	// DefaultMaxBackoff is the default maximum backoff duration.
	DefaultMaxBackoff = 2 * time.Second

	// DefaultJitterFactor is the default jitter factor (25%).
	DefaultJitterFactor = 0.25

	// MaxJitterFactor is the maximum allowed jitter factor.
	MaxJitterFactor = 1.0
)

// Config contains retry configuration parameters.
type Config struct {
	// MaxRetries is the maximum number of retries after the first attempt.
	// Zero selects DefaultMaxRetries, a negative value disables retries.
	MaxRetries int

	// InitialBackoff is the backoff before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps every backoff.
	MaxBackoff time.Duration

	// JitterFactor (0.0 to 1.0) adds randomness to each backoff.
	JitterFactor float64
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:     DefaultMaxRetries,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
		JitterFactor:   DefaultJitterFactor,
	}
}

// normalized returns a copy of c with defaults applied to unset fields.
// A negative MaxRetries becomes zero retries.
func (c *Config) normalized() Config {
	n := Config{}
	if c != nil {
		n = *c
	}
	switch {
	case n.MaxRetries == 0:
		n.MaxRetries = DefaultMaxRetries
	case n.MaxRetries < 0:
		n.MaxRetries = 0
	}
	if n.InitialBackoff <= 0 {
		n.InitialBackoff = DefaultInitialBackoff
	}
	if n.MaxBackoff <= 0 {
		n.MaxBackoff = DefaultMaxBackoff
	}
	if n.JitterFactor <= 0 {
		n.JitterFactor = DefaultJitterFactor
	}
	n.JitterFactor = min(n.JitterFactor, MaxJitterFactor)
	return n
}

// Backoff returns the wait before retry number attempt+1: the initial
// backoff doubled per attempt, plus jitter, capped at MaxBackoff.
func (c *Config) Backoff(attempt int) time.Duration {
	n := c.normalized()
	backoff := float64(n.InitialBackoff) * math.Pow(2, float64(attempt))
	//nolint:gosec // G404: jitter for retry timing is not security-sensitive
	backoff += backoff * n.JitterFactor * rand.Float64()
	return time.Duration(min(backoff, float64(n.MaxBackoff)))
}

// RetryableFunc is an operation that can be retried.
type RetryableFunc func(ctx context.Context) error

// ShouldRetryFunc determines if an error should trigger a retry.
type ShouldRetryFunc func(error) bool

// OnRetryFunc is called before each retry attempt.
type OnRetryFunc func(attempt int, err error, backoff time.Duration)

// Options contains optional retry behavior configuration.
type Options struct {
	// ShouldRetry determines if an error should trigger a retry.
	// If nil, all errors are retried.
	ShouldRetry ShouldRetryFunc

	// OnRetry is called before each retry attempt.
	OnRetry OnRetryFunc
}

// Do runs fn until it succeeds, opts.ShouldRetry rejects its error or the
// retries of cfg are spent. The last error is returned; a cancelled context
// returns ctx.Err().
func Do(ctx context.Context, cfg *Config, fn RetryableFunc, opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}
	maxRetries := cfg.normalized().MaxRetries

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt == maxRetries || (opts.ShouldRetry != nil && !opts.ShouldRetry(err)) {
			return err
		}

		backoff := cfg.Backoff(attempt)
		if opts.OnRetry != nil {
			opts.OnRetry(attempt+1, err, backoff)
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
