package store

import (
	"errors"
	"fmt"
)

// ErrTokenNotFound is returned by FindByToken when no shift carries the
// given token.
var ErrTokenNotFound = errors.New("forward token not found")

// ErrAlreadyForwarded is returned by RecordForward when the shift has a
// forwarded_at timestamp already; the caller must not send again.
var ErrAlreadyForwarded = errors.New("shift already forwarded")

// ValidationError marks a shift record that cannot be stored as given.
// The sync engine skips the record and continues the batch.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid shift record: " + e.Reason
}

// PersistenceError wraps a storage failure for a single operation. The
// sync engine counts it as a failure and continues the batch.
type PersistenceError struct {
	Op        string
	ShiftUUID string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s failed for shift %q: %v", e.Op, e.ShiftUUID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
