/*

This file contains the bounded poll-until combinator used to wait out
settlement latency (e.g. purchased tokens arriving in an account before they
can be burned).

*/

package trade

import (
	"context"
	"time"
)

// PollUntil invokes check up to maxAttempts times, waiting interval between
// attempts. When check reports done, its value is returned with ok=true.
// After the attempt budget is exhausted one final opportunistic check runs;
// if that also comes up empty, the zero value is returned with ok=false and
// no error. Errors from check are swallowed between attempts; the condition
// simply has not arrived yet.
func PollUntil[T any](ctx context.Context, maxAttempts int, interval time.Duration, check func(context.Context) (T, bool, error)) (T, bool, error) {
	var zero T

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, interval); err != nil {
				return zero, false, err
			}
		}
		value, done, err := check(ctx)
		if err == nil && done {
			return value, true, nil
		}
	}

	// Final opportunistic check after the budget is spent.
	if value, done, err := check(ctx); err == nil && done {
		return value, true, nil
	}
	return zero, false, nil
}
