// Package retry re-runs database operations that failed for a transient
// reason, backing off exponentially between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/satishbabariya/pgorm/conn"
	"github.com/satishbabariya/pgorm/driver"
	"github.com/satishbabariya/pgorm/internal/debug"
	"github.com/satishbabariya/pgorm/orm"
	"github.com/satishbabariya/pgorm/result"
)

// ErrExhausted is returned when every attempt failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Config holds the retry policy.
type Config struct {
	MaxAttempts   int           // Total attempts, including the first
	InitialDelay  time.Duration // Delay before the second attempt
	MaxDelay      time.Duration // Upper bound for any delay
	BackoffFactor float64       // Delay multiplier per attempt
	Jitter        bool          // Spread delays by ±25%

	// RetryIf decides whether err is worth another attempt.
	RetryIf func(err error) bool
}

// DefaultConfig returns the default policy.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
		RetryIf:       Retryable,
	}
}

// Option customizes a Config.
type Option func(*Config)

// WithMaxAttempts sets the total number of attempts.
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		c.MaxAttempts = n
	}
}

// WithInitialDelay sets the first delay.
func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) {
		c.InitialDelay = d
	}
}

// WithMaxDelay caps the delay.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) {
		c.MaxDelay = d
	}
}

// WithBackoffFactor sets the delay multiplier.
func WithBackoffFactor(f float64) Option {
	return func(c *Config) {
		c.BackoffFactor = f
	}
}

// WithoutJitter makes delays exact.
func WithoutJitter() Option {
	return func(c *Config) {
		c.Jitter = false
	}
}

// WithRetryIf replaces the error classification.
func WithRetryIf(fn func(error) bool) Option {
	return func(c *Config) {
		c.RetryIf = fn
	}
}

// Retryable reports whether err may succeed when tried again. Caller
// mistakes, statement failures, closed connections and cancellation are
// final; a busy pipeline or a broken connection is not.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case conn.IsClosed(err), errors.Is(err, driver.ErrClosed):
		return false
	case errors.Is(err, result.ErrStatement), result.IsOutOfBounds(err):
		return false
	case orm.IsValidation(err), errors.Is(err, orm.ErrNoConnection), errors.Is(err, orm.ErrNotRowSet):
		return false
	}
	return true
}

// Do runs fn until it succeeds, fails with a final error, runs out of
// attempts or ctx is done.
func Do(ctx context.Context, fn func(context.Context) error, opts ...Option) error {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.RetryIf == nil {
		config.RetryIf = Retryable
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !config.RetryIf(err) {
			return err
		}
		if attempt == config.MaxAttempts {
			break
		}

		wait := delay
		if config.Jitter && delay >= 4 {
			spread := delay / 4
			wait = delay - spread + time.Duration(rand.Int64N(int64(spread)*2))
		}
		debug.Debug("retrying", "attempt", attempt, "delay", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}

		delay = time.Duration(float64(delay) * config.BackoffFactor)
		if config.MaxDelay > 0 && delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, config.MaxAttempts, lastErr)
}

// DoValue is Do for functions returning a value. The value of the last
// attempt is returned.
func DoValue[T any](ctx context.Context, fn func(context.Context) (T, error), opts ...Option) (T, error) {
	var v T
	err := Do(ctx, func(ctx context.Context) error {
		var err error
		v, err = fn(ctx)
		return err
	}, opts...)
	return v, err
}
