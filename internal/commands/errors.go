package commands

import (
	"errors"
	"fmt"
)

var (
	ErrSignalingError = errors.New("relay error")
	ErrTimeout        = errors.New("timeout")
	ErrRoomGone       = errors.New("room is gone")
	ErrDisconnected   = errors.New("disconnected from relay")
	ErrBadPayload     = errors.New("invalid payload")
	ErrAdminRequest   = errors.New("admin request failed")
	ErrAdminDenied    = errors.New("admin token rejected")
	ErrInvalidFlag    = errors.New("invalid flag")
)

// Error ties a failure to the step that produced it.
type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}
