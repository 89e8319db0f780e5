// Package apperrors defines the error taxonomy shared by services, the board
// coordinator and the HTTP layer. Callers branch on these with errors.Is /
// errors.As; nothing else crosses the service boundary.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no valid owner session was presented.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrNotFound covers both a missing record and a record owned by someone
	// else. The two are deliberately indistinguishable to the caller.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports malformed input. It is surfaced verbatim.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validation(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError reports a mutation blocked by current state, e.g. deleting a
// stage that still has deals. Count carries the number of blocking records so
// the caller can render an actionable message.
type ConflictError struct {
	Msg   string
	Count int
}

func (e *ConflictError) Error() string { return e.Msg }

func Conflict(count int, format string, args ...interface{}) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...), Count: count}
}

// PersistenceError wraps a failed storage call.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

func Persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
