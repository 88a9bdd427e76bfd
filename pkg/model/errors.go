package model

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("document not found")
	// ErrExists is returned when a record violates a uniqueness constraint
	ErrExists = errors.New("document already exists")
	// ErrParentNotFound is returned when a child references a parent that does not exist
	ErrParentNotFound = errors.New("parent not found")
	// ErrPermissionDenied is returned when the actor may not touch the record
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnauthenticated is returned when no valid actor is present
	ErrUnauthenticated = errors.New("not authorized to access this route")
	// ErrInvalidInput is returned when a request body fails validation
	ErrInvalidInput = errors.New("invalid input")
	// ErrImmutableField is returned when an update tries to change a write-once field
	ErrImmutableField = errors.New("field is immutable")
	// ErrCanceled is returned when the operation is canceled by the client
	ErrCanceled = errors.New("operation canceled")
)

// WrapError wraps storage errors to model errors.
// It converts context.Canceled and context.DeadlineExceeded to ErrCanceled.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsCanceled(err) {
		return ErrCanceled
	}
	return err
}

// IsCanceled returns true if the error is due to context cancellation or deadline exceeded.
// It checks both direct context errors and wrapped errors (e.g., from MongoDB driver).
func IsCanceled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, ErrCanceled) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "context canceled") || strings.Contains(errStr, "context deadline exceeded")
}
