package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Failure kinds surfaced in JobResult.error. Every failure a job can hit
// maps onto exactly one of these.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrDownload       = errors.New("download failed")
	ErrNotFound       = errors.New("file not found")
	ErrDecode         = errors.New("decode failed")
	ErrIO             = errors.New("io error")
	ErrProcessTimeout = errors.New("process timed out")
	ErrProcessFailure = errors.New("process failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// KindOf maps an error chain onto the wire-level error kind.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInput"
	case errors.Is(err, ErrDownload):
		return "DownloadError"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrDecode):
		return "DecodeError"
	case errors.Is(err, ErrIO):
		return "IOError"
	case errors.Is(err, ErrProcessTimeout):
		return "ProcessTimeout"
	case errors.Is(err, ErrProcessFailure):
		return "ProcessFailure"
	default:
		return "Internal"
	}
}
