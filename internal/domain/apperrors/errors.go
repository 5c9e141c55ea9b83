package apperrors

import (
	"errors"
	"fmt"
)

// Re-export the standard helpers so callers need a single import.
var (
	New    = errors.New
	Unwrap = errors.Unwrap
	Is     = errors.Is
	As     = errors.As
)

// AppError carries an error code alongside the message and cause.
type AppError struct {
	code    string
	message string
	err     error
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.message, e.err.Error())
	}
	return e.message
}

func (e *AppError) Code() string {
	return e.code
}

func (e *AppError) Unwrap() error {
	return e.err
}

func NewAppError(code string, message string, err error) *AppError {
	return &AppError{
		code:    code,
		message: message,
		err:     err,
	}
}

// Constructors for the common error kinds.

func NotFound(message string) *AppError {
	return NewAppError(ErrNotFound, message, nil)
}

func Conflict(message string) *AppError {
	return NewAppError(ErrConflict, message, nil)
}

func Forbidden(message string) *AppError {
	return NewAppError(ErrForbidden, message, nil)
}

func InvalidRequest(message string) *AppError {
	return NewAppError(ErrInvalidRequest, message, nil)
}

func Internal(message string, err error) *AppError {
	return NewAppError(ErrInternal, message, err)
}

// Wrap wraps an error, preserving the code of an existing AppError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if As(err, &appErr) {
		return NewAppError(appErr.Code(), message, err)
	}

	return NewAppError(ErrInternal, message, err)
}

// CodeOf returns the code of err, or INTERNAL for plain errors.
func CodeOf(err error) string {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Code()
	}
	return ErrInternal
}
