package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_Delay(t *testing.T) {
	policy := DefaultRemoteRetryPolicy()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1000 * time.Millisecond},
		{2, 2000 * time.Millisecond},
		{3, 4000 * time.Millisecond},
		{4, 8000 * time.Millisecond},
		{5, 10000 * time.Millisecond}, // capped
		{6, 10000 * time.Millisecond},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, policy.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := retry(context.Background(), DefaultRemoteRetryPolicy(), noSleep(t, nil), func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestRetry_BackoffSchedule(t *testing.T) {
	var slept []time.Duration
	sleep := func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	calls := 0
	result, err := retry(context.Background(), DefaultRemoteRetryPolicy(), sleep, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("dial refused")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{1000 * time.Millisecond, 2000 * time.Millisecond}, slept)
}

func TestRetry_ExhaustionPropagatesLastError(t *testing.T) {
	var slept []time.Duration
	sleep := func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	calls := 0
	_, err := retry(context.Background(), DefaultRemoteRetryPolicy(), sleep, func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("dial refused " + string(rune('0'+calls)))
	})

	require.Error(t, err)
	assert.EqualError(t, err, "dial refused 3")
	assert.Equal(t, 3, calls)
	// No sleep after the final attempt.
	assert.Len(t, slept, 2)
}

func TestRetry_ContextCancellationStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := retry(ctx, DefaultRemoteRetryPolicy(), noSleep(t, nil), func(ctx context.Context) (string, error) {
		calls++
		cancel()
		return "", errors.New("dial refused")
	})

	require.Error(t, err)
	assert.EqualError(t, err, "dial refused")
	assert.Equal(t, 1, calls)
}

func TestRetry_SingleAttemptPolicy(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 1}

	calls := 0
	_, err := retry(context.Background(), policy, noSleep(t, nil), func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("launch failed")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

// noSleep returns a sleep function that fails the test if invoked with an
// unexpected duration set (nil allows any call but records nothing).
func noSleep(t *testing.T, allowed []time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		if allowed == nil {
			return nil
		}
		for _, a := range allowed {
			if a == d {
				return nil
			}
		}
		t.Fatalf("unexpected sleep of %v", d)
		return nil
	}
}
