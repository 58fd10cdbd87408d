// Package errors carries the coded errors returned across autotrade components.
//
// Codes are grouped by range so callers can tell an expected rejection from a fault:
//   - General (1-99)
//   - Validation (100-199): rejected locally before any venue call, never retried
//   - Data/Resource (200-299): lookups, quotes, annotation storage
//   - Venue (500-599): transport faults and broker rejections
//   - Advisory (700-799): advisory service request and parse failures
//   - Watcher (800-899): watcher lifecycle misuse
//
// Usage:
//
//	err := errors.Newf(errors.ErrCodeInvalidVolume, "volume must be > 0, got %v", v)
//	if errors.IsValidation(err) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap attaches a code and message to cause.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf attaches a code and formatted message to cause.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is is errors.Is, re-exported so callers need a single errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is errors.As, re-exported so callers need a single errors import.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode returns the code of the first *Error in err's chain, or ErrCodeUnknown.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsValidation reports whether err carries a validation code (100-199).
func IsValidation(err error) bool {
	return GetCode(err).Category() == CategoryValidation
}

// Message returns the message of the outermost *Error, or err.Error() for foreign errors.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}

	return err.Error()
}
