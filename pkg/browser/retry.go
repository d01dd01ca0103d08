package browser

import (
	"context"
	"time"
)

// RetryPolicy describes an exponential backoff schedule for connection
// attempts. Attempt k (1-based) that fails sleeps base*factor^(k-1), capped
// at MaxDelay, before the next attempt.
type RetryPolicy struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRemoteRetryPolicy is the schedule used when dialing a remote
// browser farm: 3 attempts, 1s base, doubling, capped at 10s.
func DefaultRemoteRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		BaseDelay:     1000 * time.Millisecond,
		MaxDelay:      10000 * time.Millisecond,
		BackoffFactor: 2,
	}
}

// Delay returns the backoff to sleep after the given failed attempt
// (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * p.BackoffFactor)
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// SleepFunc blocks for the given duration or until the context is done.
// Injectable so backoff timing is testable without wall-clock waits.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retry runs op up to policy.MaxAttempts times, sleeping the policy's
// backoff between attempts. The last observed error is returned when all
// attempts are exhausted. Context cancellation stops retrying immediately.
func retry[T any](ctx context.Context, policy RetryPolicy, sleep SleepFunc, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	if sleep == nil {
		sleep = defaultSleep
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}
		if attempt < attempts {
			if err := sleep(ctx, policy.Delay(attempt)); err != nil {
				return zero, lastErr
			}
		}
	}
	return zero, lastErr
}
