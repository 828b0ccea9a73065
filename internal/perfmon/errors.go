package perfmon

import (
	"errors"
	"fmt"
)

// ValidationError reports a caller or configuration mistake: an invalid
// family, a disallowed query/response pairing, a nil key or duration, a
// non-positive interval, or a family mismatch against a store.
type ValidationError struct {
	msg string
}

// NewValidationError builds a ValidationError from a format string. Sibling
// packages that extend the monitor (alarms, the manager) share the same
// error taxonomy.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return NewValidationError(format, args...)
}

func (e *ValidationError) Error() string { return e.msg }

// ErrDuplicateKey is returned by AddDuration when the store already holds an
// entry with an equal key.
var ErrDuplicateKey = errors.New("duration already exists")

// ErrNotFound is returned by UpdateDuration when no entry matches the
// duration's key.
var ErrNotFound = errors.New("duration not found")
