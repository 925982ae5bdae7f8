// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package backoff retries operations with capped exponential delays and jitter.
//
// Only errors marked with Retryable are retried. Any other error is returned
// immediately, so callers decide per failure whether another attempt can help.
package backoff

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Policy configures Retry.
type Policy struct {
	// MaxAttempts is the total number of calls, including the first. Must be at least 1.
	MaxAttempts int
	// InitialDelay is the upper bound of the wait before the second attempt.
	InitialDelay time.Duration
	// MaxDelay caps the upper bound of the wait between attempts.
	MaxDelay time.Duration
}

// Retryable marks err as safe to retry.
//
// Returns nil if err is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsRetryable returns true if err or any error it wraps was marked with Retryable.
func IsRetryable(err error) bool {
	var retryableError *retryableError
	return errors.As(err, &retryableError)
}

// Retry calls f until it succeeds, returns an error not marked with Retryable,
// the policy's attempts are exhausted, or ctx is done.
//
// Each wait is a random duration between half the current delay and the
// current delay. The delay doubles after each attempt up to MaxDelay.
// Errors returned from Retry are unwrapped from the Retryable marker.
func Retry[T any](ctx context.Context, policy Policy, f func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	if policy.MaxAttempts < 1 {
		return zero, fmt.Errorf("backoff: max attempts must be at least 1, got %d", policy.MaxAttempts)
	}
	delay := policy.InitialDelay
	for attempt := range policy.MaxAttempts {
		result, err := f(ctx, attempt)
		if err == nil {
			return result, nil
		}
		var retryableError *retryableError
		if !errors.As(err, &retryableError) {
			return zero, err
		}
		if attempt == policy.MaxAttempts-1 {
			return zero, fmt.Errorf("failed after %d attempts: %w", policy.MaxAttempts, retryableError.err)
		}
		timer := time.NewTimer(jitter(delay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, policy.MaxDelay)
	}
	// Not reached, MaxAttempts >= 1 always returns from the loop.
	return zero, fmt.Errorf("failed after %d attempts", policy.MaxAttempts)
}

// *** PRIVATE ***

type retryableError struct {
	err error
}

func (r *retryableError) Error() string {
	return r.err.Error()
}

func (r *retryableError) Unwrap() error {
	return r.err
}

func jitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}
	return delay/2 + time.Duration(rand.Int64N(int64(delay/2)+1))
}
