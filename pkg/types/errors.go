package types

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the journal.
var (
	// ErrShardNotFound is returned when a query or ingest targets a shard
	// whose table or blob collection does not exist.
	ErrShardNotFound = errors.New("shard not found")
)

// ValidationError indicates a malformed ingest payload or query input.
// Surfaced to the caller; never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StoreError wraps a failed table-store or blob-store operation. It fails the
// whole logical operation; partial shard results would corrupt counts,
// ordering, and pagination.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
