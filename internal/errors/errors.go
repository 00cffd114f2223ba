// Package errors provides the error taxonomy shared by all simnote
// core components.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies a class of failure. Codes are stable and safe
// to expose to callers; messages carry no secret-dependent detail.
type ErrorCode string

const (
	// General errors
	ErrInternal      ErrorCode = "INTERNAL_ERROR"
	ErrValidation    ErrorCode = "VALIDATION_ERROR"
	ErrNotFound      ErrorCode = "NOT_FOUND"
	ErrConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// Security errors
	ErrAuth         ErrorCode = "AUTH_ERROR"
	ErrLocked       ErrorCode = "LOCKED"
	ErrUnavailable  ErrorCode = "UNAVAILABLE"
	ErrIntegrity    ErrorCode = "INTEGRITY_ERROR"
	ErrPrecondition ErrorCode = "PRECONDITION_FAILED"

	// Persistence errors
	ErrStorage ErrorCode = "STORAGE_ERROR"
	ErrImport  ErrorCode = "IMPORT_FAILED"
	ErrExport  ErrorCode = "EXPORT_FAILED"
)

// AppError represents an application error with code and message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is reports whether err (or anything it wraps) carries the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	for stderrors.As(err, &appErr) {
		if appErr.Code == code {
			return true
		}
		err = appErr.Err
		if err == nil {
			return false
		}
		appErr = nil
	}
	return false
}

// Code returns the code carried by err, or ErrInternal when err is not
// an AppError.
func Code(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}
