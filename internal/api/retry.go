package api

import (
	"context"
	"time"
)

// RetryPolicy bounds how many times a request may be re-attempted and
// how long to pause between attempts. The contract for authentication
// rejections is exactly one refresh and one retry, so the default allows
// two attempts total.
type RetryPolicy struct {
	MaxAttempts int           // Total attempts, including the first
	Delay       time.Duration // Pause between attempts
}

// DefaultRetryPolicy returns the one-refresh-one-retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2}
}

// doWithRetry executes fn up to policy.MaxAttempts times, re-attempting
// only when retryable reports the failure as recoverable. Retry is
// skipped on context cancellation.
func doWithRetry[T any](ctx context.Context, policy RetryPolicy, retryable func(error) bool, fn func(attempt int) (T, error)) (T, error) {
	var lastErr error
	var zero T

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		result, err := fn(attempt)
		if err == nil {
			return result, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !retryable(err) {
			return zero, err
		}

		if attempt < policy.MaxAttempts-1 && policy.Delay > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(policy.Delay):
			}
		}
	}

	return zero, lastErr
}
