package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrLaunch        = errors.New("process launch failed")
	ErrInternal      = errors.New("internal error")
)

// Process exit codes reported by the wrapper itself.
const (
	ExitOK            = 0
	ExitInternal      = 1
	ExitInvalidConfig = 2
	ExitLaunch        = 3
)

// AppError is a structured error with a process exit code and optional fields.
type AppError struct {
	Err      error
	Message  string
	ExitCode int
	Fields   map[string]string
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// InvalidConfig creates an invocation-construction error.
func InvalidConfig(format string, args ...interface{}) *AppError {
	return &AppError{
		Err:      ErrInvalidConfig,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: ExitInvalidConfig,
	}
}

// Launch creates a process-launch error. cause may be nil.
func Launch(cause error, format string, args ...interface{}) *AppError {
	msg := fmt.Sprintf(format, args...)
	err := ErrLaunch
	if cause != nil {
		msg = msg + ": " + cause.Error()
		err = fmt.Errorf("%w: %w", ErrLaunch, cause)
	}
	return &AppError{
		Err:      err,
		Message:  msg,
		ExitCode: ExitLaunch,
	}
}

// Internal creates an unexpected-failure error.
func Internal(format string, args ...interface{}) *AppError {
	return &AppError{
		Err:      ErrInternal,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: ExitInternal,
	}
}

// ExitCode extracts the process exit code from an error, defaulting to ExitInternal.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode
	}
	if errors.Is(err, ErrInvalidConfig) {
		return ExitInvalidConfig
	}
	if errors.Is(err, ErrLaunch) {
		return ExitLaunch
	}
	return ExitInternal
}

