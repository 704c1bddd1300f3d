package trade

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Retryable:   IsRetryable,
	}
}

func TestDoRetriesTransientFailures(t *testing.T) {
	attempts := 0
	result, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", Transient(errors.New("connection reset"))
		}
		return "sig123", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "sig123", result)
	assert.Equal(t, 3, attempts)
}

func TestDoStopsOnBusinessRejection(t *testing.T) {
	attempts := 0
	_, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (uint64, error) {
		attempts++
		return 0, ErrAlreadyProcessed
	})

	require.Error(t, err)
	assert.True(t, IsBusinessRejection(err))
	assert.Equal(t, 1, attempts, "business rejections must not be retried")
}

func TestDoExhaustsAttemptBudget(t *testing.T) {
	attempts := 0
	_, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
		attempts++
		return 0, Transient(errors.New("timeout"))
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, 4, attempts)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	_, err := Do(ctx, RetryPolicy{MaxAttempts: 4, BaseDelay: time.Hour, Retryable: IsRetryable},
		func(ctx context.Context) (int, error) {
			attempts++
			cancel()
			return 0, Transient(errors.New("slow"))
		})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestIsRetryableClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transient marker", Transient(errors.New("reset")), true},
		{"wrapped transient", fmt.Errorf("submit: %w", Transient(errors.New("reset"))), true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"already processed", ErrAlreadyProcessed, false},
		{"nothing to claim", ErrNothingToClaim, false},
		{"settlement failure", SettlementFailure(errors.New("rejected")), false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRetryable(tc.err))
		})
	}
}

func TestClassifyRejection(t *testing.T) {
	tests := []struct {
		message string
		want    error
	}{
		{"fees already processed for this epoch", ErrAlreadyProcessed},
		{"duplicate submission", ErrAlreadyProcessed},
		{"nothing to claim", ErrNothingToClaim},
		{"no fees available", ErrNothingToClaim},
	}

	for _, tc := range tests {
		t.Run(tc.message, func(t *testing.T) {
			err := classifyRejection(tc.message)
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, IsBusinessRejection(err))
			assert.False(t, IsRetryable(err))
		})
	}
}

func TestPollUntilFindsValue(t *testing.T) {
	calls := 0
	value, ok, err := PollUntil(context.Background(), 5, time.Millisecond,
		func(ctx context.Context) (uint64, bool, error) {
			calls++
			if calls < 3 {
				return 0, false, nil
			}
			return 4200, true, nil
		})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(4200), value)
}

func TestPollUntilFinalOpportunisticCheck(t *testing.T) {
	calls := 0
	value, ok, err := PollUntil(context.Background(), 3, time.Millisecond,
		func(ctx context.Context) (uint64, bool, error) {
			calls++
			// Only the check after the attempt budget succeeds.
			if calls == 4 {
				return 77, true, nil
			}
			return 0, false, nil
		})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(77), value)
	assert.Equal(t, 4, calls)
}

func TestPollUntilExhaustionIsNotAnError(t *testing.T) {
	value, ok, err := PollUntil(context.Background(), 3, time.Millisecond,
		func(ctx context.Context) (uint64, bool, error) {
			return 0, false, errors.New("not settled yet")
		})

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, value)
}
