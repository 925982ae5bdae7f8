// Copyright 2026 Peter Edge
//
// All rights reserved.

package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testPolicy = Policy{
	MaxAttempts:  3,
	InitialDelay: time.Millisecond,
	MaxDelay:     2 * time.Millisecond,
}

func TestRetrySuccessAfterRetryable(t *testing.T) {
	t.Parallel()
	var attempts []int
	result, err := Retry(context.Background(), testPolicy, func(_ context.Context, attempt int) (string, error) {
		attempts = append(attempts, attempt)
		if attempt < 2 {
			return "", Retryable(errors.New("statement generating"))
		}
		return "done", nil
	})
	require.NoError(t, err)
	require.Equal(t, "done", result)
	require.Equal(t, []int{0, 1, 2}, attempts)
}

func TestRetryNotRetryable(t *testing.T) {
	t.Parallel()
	permanentErr := errors.New("invalid token")
	calls := 0
	_, err := Retry(context.Background(), testPolicy, func(context.Context, int) (int, error) {
		calls++
		return 0, permanentErr
	})
	require.ErrorIs(t, err, permanentErr)
	require.Equal(t, 1, calls)
}

func TestRetryExhausted(t *testing.T) {
	t.Parallel()
	busyErr := errors.New("server busy")
	calls := 0
	_, err := Retry(context.Background(), testPolicy, func(context.Context, int) (int, error) {
		calls++
		return 0, Retryable(busyErr)
	})
	require.ErrorIs(t, err, busyErr)
	require.False(t, IsRetryable(err))
	require.Contains(t, err.Error(), "failed after 3 attempts")
	require.Equal(t, 3, calls)
}

func TestRetryContextCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour}
	_, err := Retry(ctx, policy, func(context.Context, int) (int, error) {
		cancel()
		return 0, Retryable(errors.New("server busy"))
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRetryInvalidPolicy(t *testing.T) {
	t.Parallel()
	_, err := Retry(context.Background(), Policy{}, func(context.Context, int) (int, error) {
		return 1, nil
	})
	require.Error(t, err)
}

func TestRetryable(t *testing.T) {
	t.Parallel()
	require.NoError(t, Retryable(nil))
	baseErr := errors.New("base")
	err := Retryable(baseErr)
	require.True(t, IsRetryable(err))
	require.True(t, IsRetryable(errors.Join(errors.New("other"), err)))
	require.ErrorIs(t, err, baseErr)
	require.Equal(t, "base", err.Error())
	require.False(t, IsRetryable(baseErr))
}

func TestJitter(t *testing.T) {
	t.Parallel()
	require.Equal(t, time.Duration(0), jitter(0))
	for range 100 {
		got := jitter(10 * time.Millisecond)
		require.GreaterOrEqual(t, got, 5*time.Millisecond)
		require.LessOrEqual(t, got, 10*time.Millisecond)
	}
}
