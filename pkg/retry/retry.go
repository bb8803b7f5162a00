// Package retry runs operations with exponential backoff and jitter. The
// simulator uses it for sensor pushes and the server for connecting to its
// backing stores at startup.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryableError marks an error as worth another attempt.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err so the default policy retries it. Nil stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err was wrapped by Retryable.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// PermanentError stops retrying immediately.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so no further attempts are made. Nil stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was wrapped by Permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// Config holds retry configuration.
type Config struct {
	// MaxAttempts counts the first attempt too. Default: 3
	MaxAttempts int

	// InitialDelay is the wait before the second attempt. Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps the backoff. Default: 30s
	MaxDelay time.Duration

	// Multiplier grows the delay after each attempt. Default: 2.0
	Multiplier float64

	// JitterFactor spreads each delay by +/- this fraction. Default: 0.1
	JitterFactor float64

	// RetryIf decides whether an error is retried. If nil, only errors
	// wrapped by Retryable are.
	RetryIf func(error) bool

	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)

	// Rand returns values in [0,1) for jitter. Defaults to math/rand/v2.
	Rand func() float64
}

// DefaultConfig returns the default policy.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
		Rand:         rand.Float64,
	}
}

// Option is a functional option for configuring retries.
type Option func(*Config)

// WithMaxAttempts sets the maximum number of attempts.
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.InitialDelay = d
		}
	}
}

// WithMaxDelay sets the maximum delay between retries.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.MaxDelay = d
		}
	}
}

// WithMultiplier sets the backoff multiplier. Values below 1 are ignored.
func WithMultiplier(m float64) Option {
	return func(c *Config) {
		if m >= 1.0 {
			c.Multiplier = m
		}
	}
}

// WithJitter sets the jitter factor in [0,1].
func WithJitter(j float64) Option {
	return func(c *Config) {
		if j >= 0 && j <= 1.0 {
			c.JitterFactor = j
		}
	}
}

// WithRetryIf sets the retry predicate.
func WithRetryIf(fn func(error) bool) Option {
	return func(c *Config) {
		c.RetryIf = fn
	}
}

// WithOnRetry sets a callback called before each wait.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(c *Config) {
		c.OnRetry = fn
	}
}

// WithRand replaces the jitter source.
func WithRand(fn func() float64) Option {
	return func(c *Config) {
		if fn != nil {
			c.Rand = fn
		}
	}
}

// Retrier runs operations under one policy. It is safe for concurrent use
// as long as the configured Rand is.
type Retrier struct {
	config Config
}

// New creates a Retrier from the default policy and opts.
func New(opts ...Option) *Retrier {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Retrier{config: config}
}

// Do calls operation until it succeeds, returns a non-retryable error, the
// attempts run out or ctx is done. Retryable and Permanent wrappers are
// removed from the returned error.
func (r *Retrier) Do(ctx context.Context, operation func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return unwrapMarker(lastErr)
			}
			return err
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if IsPermanent(err) {
			return unwrapMarker(err)
		}

		retry := IsRetryable(err)
		if r.config.RetryIf != nil {
			retry = r.config.RetryIf(err)
		}
		if !retry || attempt == r.config.MaxAttempts {
			return unwrapMarker(err)
		}

		delay := r.Delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return unwrapMarker(lastErr)
		case <-timer.C:
		}
	}

	return unwrapMarker(lastErr)
}

// Delay returns the wait after the given attempt (1-based).
func (r *Retrier) Delay(attempt int) time.Duration {
	base := float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1))
	base = math.Min(base, float64(r.config.MaxDelay))

	if r.config.JitterFactor > 0 && r.config.Rand != nil {
		base += base * r.config.JitterFactor * (r.config.Rand()*2 - 1)
	}
	return time.Duration(math.Max(base, 0))
}

func unwrapMarker(err error) error {
	var (
		re *RetryableError
		pe *PermanentError
	)
	switch {
	case errors.As(err, &pe):
		return pe.Err
	case errors.As(err, &re):
		return re.Err
	default:
		return err
	}
}

// Do is a convenience function that creates a Retrier and executes the operation.
func Do(ctx context.Context, operation func(ctx context.Context) error, opts ...Option) error {
	return New(opts...).Do(ctx, operation)
}

// DoWithData is Do for operations that return a value.
func DoWithData[T any](ctx context.Context, operation func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var result T
	err := New(opts...).Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = operation(ctx)
		return opErr
	})
	return result, err
}

// SensorPushRetrier is the policy for simulator pushes. The whole budget
// stays well below the default push interval.
func SensorPushRetrier(opts ...Option) *Retrier {
	base := []Option{
		WithMaxAttempts(3),
		WithInitialDelay(250 * time.Millisecond),
		WithMaxDelay(2 * time.Second),
		WithMultiplier(2.0),
		WithJitter(0.2),
	}
	return New(append(base, opts...)...)
}

// StartupRetrier is the policy for connecting to Postgres and Redis when
// the server boots.
func StartupRetrier(opts ...Option) *Retrier {
	base := []Option{
		WithMaxAttempts(5),
		WithInitialDelay(500 * time.Millisecond),
		WithMaxDelay(5 * time.Second),
		WithMultiplier(2.0),
		WithJitter(0.1),
		WithRetryIf(func(error) bool { return true }),
	}
	return New(append(base, opts...)...)
}
