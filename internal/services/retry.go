package services

import (
	"context"
	"math/rand/v2"
	"time"
)

// Retry defaults applied when a RetryPolicy field is left at zero.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultJitter      = time.Second
)

// RetryPolicy bounds how often and how patiently a provider call is repeated.
// Every pause is BaseDelay plus a uniformly random duration in [0, Jitter).
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      time.Duration

	// OnRetry, when set, observes each failed attempt that will be retried.
	OnRetry func(attempt int, err error)
	// Sleep replaces the context-aware timer; tests use it to skip waiting.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns the policy used when configuration leaves the
// retry section empty.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Jitter:      DefaultJitter,
	}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

func (p RetryPolicy) delay() time.Duration {
	d := max(p.BaseDelay, 0)
	if p.Jitter > 0 {
		d += rand.N(p.Jitter)
	}
	return d
}

// WithRetry runs op until it succeeds, returns a terminal error (see
// IsTerminal), or the policy runs out of attempts. The last error is returned
// unchanged so callers can still match its markers.
func WithRetry[T any](ctx context.Context, policy RetryPolicy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	sleep := policy.Sleep
	if sleep == nil {
		sleep = SleepWithContext
	}
	attempts := policy.attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		value, err := op(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err
		if IsTerminal(err) || attempt == attempts {
			break
		}
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err)
		}
		if err := sleep(ctx, policy.delay()); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// Do is WithRetry for operations that only report an error.
func Do(ctx context.Context, policy RetryPolicy, op func(context.Context) error) error {
	_, err := WithRetry(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
