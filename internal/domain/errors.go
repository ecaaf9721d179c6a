package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidation marks malformed input rejected before any send.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing entity.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks an operation rejected by current entity state.
	ErrConflict = errors.New("conflict")
	// ErrRateLimited marks a dispatch rejected by tenant admission control.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrProviderUnreachable marks a whole-request provider failure.
	ErrProviderUnreachable = errors.New("push provider unreachable")
)

// RateLimitError carries the retry-after hint for a rejected dispatch.
// The caller decides whether to drop or requeue; the dispatcher never
// retries on its own.
type RateLimitError struct {
	TenantID   string
	Cost       int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("rate limit exceeded for tenant %s (cost=%d, retry after %s)", e.TenantID, e.Cost, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
