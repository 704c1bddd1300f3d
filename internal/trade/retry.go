/*

This file contains the generic bounded-retry executor. Ad-hoc retry loops are
not written anywhere else; every outbound call that wants retries goes
through Do with an explicit RetryPolicy value.

*/

package trade

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy describes one bounded exponential-backoff schedule.
type RetryPolicy struct {
	// MaxAttempts bounds the total number of tries, including the first.
	MaxAttempts int
	// BaseDelay is the wait after the first failure; it doubles per attempt.
	BaseDelay time.Duration
	// MaxDelay caps the grown backoff delay.
	MaxDelay time.Duration
	// Jitter is the upper bound of the random addition to each delay.
	Jitter time.Duration
	// Retryable decides whether a failure is worth another attempt.
	Retryable func(error) bool
}

// DefaultRetryPolicy is the schedule applied to trade submissions.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
		Jitter:      250 * time.Millisecond,
		Retryable:   IsRetryable,
	}
}

// Do runs op under the policy. Non-retryable failures propagate immediately;
// retryable ones are re-attempted with exponential backoff plus jitter until
// the attempt budget or the context runs out.
func Do[T any](ctx context.Context, policy RetryPolicy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, policy.delay(attempt)); err != nil {
				return zero, err
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if policy.Retryable == nil || !policy.Retryable(err) {
			return zero, err
		}
	}
	return zero, lastErr
}

// delay computes the backoff before the given attempt (1-based for waits).
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay << uint(attempt-1)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
