// Package errors defines coded application errors. Lower layers return
// package sentinel errors; the pipeline wraps them in an AppError whose code
// says which class of failure occurred.
package errors

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	CodeUnknown = "UNKNOWN_ERROR"
	// CodeMalformedClass marks input that is not a well-formed class file.
	CodeMalformedClass = "MALFORMED_CLASS"
	CodeIOError        = "IO_ERROR"
	// CodeInvariant marks an internal modeling bug. Output is never written.
	CodeInvariant     = "INVARIANT_VIOLATION"
	CodeConfigError   = "CONFIG_ERROR"
	CodeStorageError  = "STORAGE_ERROR"
	CodeDatabaseError = "DATABASE_ERROR"
	CodeInvalidInput  = "INVALID_INPUT"
)

// AppError represents an application error with a code and message.
type AppError struct {
	Code    string
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

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Wrapf wraps err with a formatted message.
func Wrapf(code string, err error, format string, args ...interface{}) *AppError {
	return Wrap(code, fmt.Sprintf(format, args...), err)
}

// Common error instances, for use with errors.Is.
var (
	ErrMalformedClass = New(CodeMalformedClass, "malformed class file")
	ErrIO             = New(CodeIOError, "i/o error")
	ErrInvariant      = New(CodeInvariant, "invariant violation")
	ErrConfigError    = New(CodeConfigError, "configuration error")
	ErrStorageError   = New(CodeStorageError, "storage error")
	ErrDatabaseError  = New(CodeDatabaseError, "database error")
	ErrInvalidInput   = New(CodeInvalidInput, "invalid input")
)

func IsMalformedClass(err error) bool { return errors.Is(err, ErrMalformedClass) }

func IsIOError(err error) bool { return errors.Is(err, ErrIO) }

func IsInvariant(err error) bool { return errors.Is(err, ErrInvariant) }

func IsDatabaseError(err error) bool { return errors.Is(err, ErrDatabaseError) }

func IsStorageError(err error) bool { return errors.Is(err, ErrStorageError) }

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
