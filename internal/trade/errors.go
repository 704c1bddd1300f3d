/*

This file contains the outbound-call error taxonomy. Failures are classified
at the point they are observed (HTTP layer, settlement client) so the retry
executor only has to consult the markers.

*/

package trade

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrTransient marks failures worth retrying: transport errors,
	// timeouts, upstream 5xx responses.
	ErrTransient = errors.New("transient network failure")

	// ErrBusinessRejected marks non-retryable upstream rejections. Callers
	// treat these as a soft success with zero effect.
	ErrBusinessRejected = errors.New("business rejection")

	// ErrAlreadyProcessed is the duplicate-claim rejection.
	ErrAlreadyProcessed = fmt.Errorf("%w: already processed", ErrBusinessRejected)

	// ErrNothingToClaim is returned when the claim service has no pending fees.
	ErrNothingToClaim = fmt.Errorf("%w: nothing to claim", ErrBusinessRejected)

	// ErrSettlementFailed marks an on-chain rejection of a submitted
	// transaction. The affected amount is folded into pendingRetry by the
	// executor; the failure is not retried within the cycle.
	ErrSettlementFailed = errors.New("settlement failure")

	// ErrNoClientConfigured is raised when an engine operation runs without
	// its trade client wired in.
	ErrNoClientConfigured = errors.New("no trade client configured")
)

// Transient wraps err with the retryable marker.
func Transient(err error) error {
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

// SettlementFailure wraps err with the settlement-failure marker.
func SettlementFailure(err error) error {
	return fmt.Errorf("%w: %v", ErrSettlementFailed, err)
}

// IsRetryable reports whether err should be retried under the default policy.
// Business rejections are never retryable, regardless of the underlying cause.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBusinessRejected) {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// IsBusinessRejection reports whether err is a non-retryable upstream
// rejection that callers should treat as a zero-effect soft success.
func IsBusinessRejection(err error) bool {
	return errors.Is(err, ErrBusinessRejected)
}

// classifyRejection maps known upstream rejection messages onto the
// business-rejection sentinels.
func classifyRejection(message string) error {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "already processed"), strings.Contains(lower, "duplicate"):
		return ErrAlreadyProcessed
	case strings.Contains(lower, "nothing to claim"), strings.Contains(lower, "no fees"):
		return ErrNothingToClaim
	default:
		return fmt.Errorf("%w: %s", ErrBusinessRejected, message)
	}
}
