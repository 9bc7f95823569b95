package runner

import (
	"context"
	"time"
)

// FailureLogger logs failed task attempts.
type FailureLogger interface {
	LogFailure(err error)
}

// RetryPolicy configures retry behavior for WithRetry.
type RetryPolicy struct {
	MaxAttempts int                                        // total attempts including initial try
	Delay       time.Duration                              // fixed delay between retries (used if DelayFunc nil)
	ShouldRetry func(error) bool                           // predicate; if nil, all errors retried
	DelayFunc   func(attempt int, err error) time.Duration // dynamic backoff; attempt is 1-based
}

// WithRetry wraps a task with retry capability. Retrying is strictly opt-in
// and happens inside the task's own worker slot; the Runner itself never
// re-executes a failed task.
func WithRetry[T any](task Task[T], policy RetryPolicy) Task[T] {
	if policy.MaxAttempts <= 1 {
		return task // no retries needed
	}
	return func(ctx context.Context, index int, label string) (T, error) {
		var value T
		var lastErr error
		for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return value, err
			}

			value, lastErr = task(ctx, index, label)
			if lastErr == nil {
				return value, nil
			}

			// Don't delay after the last attempt.
			if attempt < policy.MaxAttempts {
				if policy.ShouldRetry != nil && !policy.ShouldRetry(lastErr) {
					return value, lastErr
				}
				var delay time.Duration
				if policy.DelayFunc != nil {
					delay = policy.DelayFunc(attempt, lastErr)
				} else {
					delay = policy.Delay
				}
				if delay > 0 {
					select {
					case <-time.After(delay):
					case <-ctx.Done():
						return value, ctx.Err()
					}
				}
			}
		}
		return value, lastErr
	}
}

// WithFailureLogging wraps a task to log its failures.
func WithFailureLogging[T any](task Task[T], logger FailureLogger) Task[T] {
	if logger == nil {
		return task
	}
	return func(ctx context.Context, index int, label string) (T, error) {
		value, err := task(ctx, index, label)
		if err != nil {
			logger.LogFailure(err)
		}
		return value, err
	}
}
