// Package retry implements bounded retry with jittered exponential backoff.
// The bridge uses it for short-lived operations like bus publishes; the
// stream reconnect loop deliberately does not, since it retries forever at a
// fixed cadence.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// NonRetryableError marks an error that must fail the operation immediately.
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable wraps an error so Do stops retrying when it sees it.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable reports whether err carries the non-retryable marker.
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return errors.As(err, &nre)
}

// Config controls attempt count and backoff shape.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	AddJitter    bool
}

// DefaultConfig suits one-off operations against a usually-healthy bus.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

// Quick suits hot-path publishes where waiting seconds would stall the
// stream: more attempts, shorter waits.
func Quick() Config {
	return Config{
		MaxAttempts:  10,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   1.5,
		AddJitter:    true,
	}
}

func (c *Config) validate() error {
	if c.InitialDelay < 0 || c.MaxDelay < 0 {
		return errors.New("retry: delays cannot be negative")
	}
	if c.Multiplier < 0 {
		return errors.New("retry: multiplier cannot be negative")
	}

	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.Multiplier == 0 {
		c.Multiplier = 2.0
	}

	if c.MaxDelay < c.InitialDelay {
		return errors.New("retry: MaxDelay must be >= InitialDelay")
	}
	return nil
}

// nextDelay grows delay by the multiplier, capped at MaxDelay.
func (c *Config) nextDelay(delay time.Duration) time.Duration {
	grown := time.Duration(float64(delay) * c.Multiplier)
	if grown > c.MaxDelay || grown < delay {
		return c.MaxDelay
	}
	return grown
}

// wait sleeps delay plus up to 25% jitter, returning early on cancellation.
func (c *Config) wait(ctx context.Context, delay time.Duration) error {
	if c.AddJitter && delay > 0 {
		delay += rand.N(delay/4 + 1)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs fn until it succeeds, the attempts are exhausted, fn returns a
// non-retryable error, or ctx is cancelled.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if IsNonRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("retry cancelled before attempt %d: %w", attempt, ctx.Err())
		}
		if attempt == cfg.MaxAttempts {
			return fmt.Errorf("retry failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
		}

		if err := cfg.wait(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled during backoff for attempt %d: %w", attempt+1, err)
		}
		delay = cfg.nextDelay(delay)
	}
}

// DoWithResult is Do for operations that produce a value.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var innerErr error
		result, innerErr = fn()
		return innerErr
	})
	return result, err
}
