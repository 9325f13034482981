package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("credential not found")
	ErrValidation  = errors.New("invalid input")
	ErrPermission  = errors.New("permission denied")
	ErrConflict    = errors.New("concurrent mutation conflict")
	ErrTimeout     = errors.New("storage operation timed out")
	ErrUnavailable = errors.New("storage unavailable")
	ErrStorage     = errors.New("storage failure")
)

// PermissionError carries the role and attempted action so callers can
// report precisely what was denied. It deliberately says nothing about
// whether the target record exists.
type PermissionError struct {
	Role   string
	Action string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("role %q does not have permission: %s", e.Role, e.Action)
}

func (e *PermissionError) Unwrap() error { return ErrPermission }

func NewPermissionError(role, action string) *PermissionError {
	return &PermissionError{Role: role, Action: action}
}

// Validation wraps a cause into the validation class.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
