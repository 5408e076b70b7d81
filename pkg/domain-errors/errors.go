// Package domainerrors provides coded errors shared by services and transports.
//
// Services return *Error values carrying a Code so callers can branch on the
// failure class without string matching. Stores should return sentinel facts
// (see pkg/platform/sentinel) and let services translate them.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	CodeUnknownDomain          Code = "unknown_domain"
	CodeUnknownFeature         Code = "unknown_feature"
	CodeInvariantViolation     Code = "invariant_violation"
	CodeConcurrentModification Code = "concurrent_modification"
	CodeStorageUnavailable     Code = "storage_unavailable"
	CodeInvalidInput           Code = "invalid_input"
	CodeNotFound               Code = "not_found"
	CodeConflict               Code = "conflict"
	CodeTimeout                Code = "timeout"
	CodeInternal               Code = "internal_error"
)

// Error is a coded domain error. Err holds the wrapped cause, if any.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without a cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any error in err's chain carries the code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is an alias for HasCode kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// IsRetryable reports whether the failure is transient: a stale read that can
// be re-fetched, an unavailable store, or a timeout.
func IsRetryable(err error) bool {
	return HasCode(err, CodeConcurrentModification) ||
		HasCode(err, CodeStorageUnavailable) ||
		HasCode(err, CodeTimeout)
}
