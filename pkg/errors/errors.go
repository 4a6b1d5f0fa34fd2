// Package errors defines common error types for the circuit mixer.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the application.
const (
	CodeUnknown            = "UNKNOWN_ERROR"
	CodeBudgetExhausted    = "BUDGET_EXHAUSTED"
	CodeEquivalenceFailure = "EQUIVALENCE_FAILURE"
	CodeCycleDetected      = "CYCLE_DETECTED"
	CodeParseError         = "PARSE_ERROR"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeIOError            = "IO_ERROR"
	CodeConfigError        = "CONFIG_ERROR"
	CodeDatabaseError      = "DATABASE_ERROR"
	CodeStorageError       = "STORAGE_ERROR"
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

// Is checks if the error matches the target.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code string, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error instances.
var (
	// ErrBudgetExhausted signals that a randomized search ran out of
	// iterations. The mixing driver retries the step; it is never fatal.
	ErrBudgetExhausted = New(CodeBudgetExhausted, "search iteration budget exhausted")

	// ErrEquivalenceFailure signals that the mixed circuit no longer computes
	// the original permutation. Always a bug in splice or collision analysis.
	ErrEquivalenceFailure = New(CodeEquivalenceFailure, "circuit equivalence check failed")

	// ErrCycleDetected signals a cycle in the skeleton graph after a splice.
	ErrCycleDetected = New(CodeCycleDetected, "skeleton graph contains a cycle")

	ErrParseError   = New(CodeParseError, "parse error")
	ErrInvalidInput = New(CodeInvalidInput, "invalid input")
	ErrIOError      = New(CodeIOError, "i/o error")
	ErrConfigError  = New(CodeConfigError, "configuration error")
	ErrDatabase     = New(CodeDatabaseError, "database error")
	ErrStorage      = New(CodeStorageError, "storage error")
)

// IsBudgetExhausted checks if the error is a recoverable budget exhaustion.
func IsBudgetExhausted(err error) bool {
	return errors.Is(err, ErrBudgetExhausted)
}

// IsFatal reports whether the error must halt the mixing run. Budget
// exhaustion is the only recoverable kind; everything else is surfaced.
func IsFatal(err error) bool {
	return err != nil && !IsBudgetExhausted(err)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}
