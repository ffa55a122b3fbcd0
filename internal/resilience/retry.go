// Package resilience provides the shared retry wrapper and per-source rate
// limiters used by every external call site.
package resilience

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// RetryPolicy bounds a retried operation.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// InitialDelay seeds the exponential backoff: delay × 2^attempt.
	InitialDelay time.Duration

	// Classify reports whether an error is worth retrying. Nil means retry
	// everything.
	Classify func(error) bool

	// sleep is injectable for tests; nil means context-aware real sleep.
	sleep func(context.Context, time.Duration) error
}

// WithSleeper returns a copy of the policy using the given sleep function.
// Tests use this to record computed delays without waiting them out.
func (p RetryPolicy) WithSleeper(sleep func(context.Context, time.Duration) error) RetryPolicy {
	p.sleep = sleep
	return p
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry executes op, retrying retryable failures with exponential backoff
// plus jitter. Non-retryable failures propagate after a single attempt; on
// exhaustion the last error propagates. Each retry is logged with the
// attempt number and the computed delay.
func Retry[T any](ctx context.Context, logger *slog.Logger, policy RetryPolicy, operation string, op func(context.Context) (T, error)) (T, error) {
	var zero T
	sleep := policy.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if policy.Classify != nil && !policy.Classify(err) {
			return zero, err
		}
		if attempt == policy.MaxRetries {
			break
		}

		delay := backoffDelay(policy.InitialDelay, attempt)
		if logger != nil {
			logger.WarnContext(ctx, "retrying after failure",
				"operation", operation,
				"attempt", attempt+1,
				"max_retries", policy.MaxRetries,
				"delay", delay,
				"error", err,
			)
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// backoffDelay computes initial × 2^attempt plus up to 25% random jitter.
// Jitter keeps concurrent callers from retrying in lockstep.
func backoffDelay(initial time.Duration, attempt int) time.Duration {
	if initial <= 0 {
		initial = time.Second
	}
	base := initial << uint(attempt)
	jitter := time.Duration(rand.Int63n(int64(base)/4 + 1))
	return base + jitter
}
