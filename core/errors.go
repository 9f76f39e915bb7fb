package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// NotFoundError is returned when a referenced record does not exist.
type NotFoundError struct {
	msg string
}

func NewNotFoundError(msg string) error {
	return &NotFoundError{msg: msg}
}

func (err NotFoundError) Error() string { return err.msg }

// InvalidTransitionError is returned when an action is not permitted from the current state of a record.
type InvalidTransitionError struct {
	msg string
}

func NewInvalidTransitionError(msg string) error {
	return &InvalidTransitionError{msg: msg}
}

func (err InvalidTransitionError) Error() string { return err.msg }

// InvariantViolationError is returned when an operation would break a stored invariant (eg. copy counts).
type InvariantViolationError struct {
	msg string
}

func NewInvariantViolationError(msg string) error {
	return &InvariantViolationError{msg: msg}
}

func (err InvariantViolationError) Error() string { return err.msg }

// PermissionDeniedError is returned when the acting user lacks the capability for an action.
type PermissionDeniedError struct {
	msg string
}

func NewPermissionDeniedError(msg string) error {
	return &PermissionDeniedError{msg: msg}
}

func (err PermissionDeniedError) Error() string { return err.msg }

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

func IsInvalidTransition(err error) bool {
	_, ok := errors.Cause(err).(*InvalidTransitionError)
	return ok
}

func IsInvariantViolation(err error) bool {
	_, ok := errors.Cause(err).(*InvariantViolationError)
	return ok
}

func IsPermissionDenied(err error) bool {
	_, ok := errors.Cause(err).(*PermissionDeniedError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
