package flow

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy configures bounded retry with exponential backoff for
// external calls (model invocation, prompt rendering).
type RetryPolicy struct {
	// MaxAttempts includes the initial attempt. Must be >= 1.
	MaxAttempts int

	// BaseDelay is doubled on each retry, plus jitter up to BaseDelay.
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth. Zero means uncapped.
	MaxDelay time.Duration
}

// DefaultRetryPolicy matches the pipeline's external-call contract:
// 3 attempts, 500ms base delay doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

// backoff computes the delay before retry number attempt (zero-based),
// exponential with jitter.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay * (1 << attempt)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.BaseDelay > 0 {
		delay += time.Duration(rand.Int63n(int64(p.BaseDelay))) // #nosec G404 -- retry jitter, not security
	}
	return delay
}

// Retry runs fn under the policy. Exhausting all attempts wraps the
// last error in a ServiceError naming the failed service. Context
// cancellation stops retrying immediately.
func Retry[T any](ctx context.Context, policy RetryPolicy, service string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(policy.backoff(attempt - 1)):
			}
		}

		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		lastErr = err
	}

	return zero, &ServiceError{Service: service, Attempts: attempts, Cause: lastErr}
}
