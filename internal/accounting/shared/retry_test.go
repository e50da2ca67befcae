package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryPolicy{Attempts: 3}, func(context.Context) error {
		calls++
		if calls < 2 {
			return &ConcurrencyError{Op: "seq", Err: errors.New("lock timeout")}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestRetryGivesUpAfterAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryPolicy{Attempts: 3, Backoff: time.Millisecond}, func(context.Context) error {
		calls++
		return &ConcurrencyError{Op: "seq", Err: errors.New("lock timeout")}
	})
	require.ErrorIs(t, err, ErrConcurrency)
	require.Equal(t, 3, calls)
}

func TestRetryDoesNotRetryBusinessErrors(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), DefaultRetryPolicy, func(context.Context) error {
		calls++
		return &PeriodLockedError{PeriodID: 1}
	})
	require.ErrorIs(t, err, ErrPeriodLocked)
	require.Equal(t, 1, calls)
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, RetryPolicy{Attempts: 5, Backoff: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return &ConcurrencyError{Op: "seq", Err: errors.New("lock timeout")}
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}
