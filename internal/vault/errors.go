package vault

import (
	"errors"
	"fmt"

	"reelvault/internal/catalog"
)

var (
	// ErrStaleRefreshPending reports that a record's handle is flagged stale and
	// must not be used until the reconciler refreshes it.
	ErrStaleRefreshPending = errors.New("handle stale, refresh pending")
	// ErrMirrorInProgress reports that another caller is already mirroring the record.
	ErrMirrorInProgress = errors.New("mirror already in progress")
)

// StaleHandleError is returned when the provider rejects a handle during use.
// It matches ErrStaleRefreshPending and unwraps to the provider error.
type StaleHandleError struct {
	RecordID   catalog.RecordID
	ContentKey string
	Err        error
}

func (e *StaleHandleError) Error() string {
	return fmt.Sprintf("record %d: %v: %v", e.RecordID, ErrStaleRefreshPending, e.Err)
}

func (e *StaleHandleError) Is(target error) bool {
	return target == ErrStaleRefreshPending
}

func (e *StaleHandleError) Unwrap() error {
	return e.Err
}
