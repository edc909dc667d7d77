// Package s2gerr provides structured error types for the Series2Graph++
// pipeline.
//
// It mirrors the error taxonomy a distributed run can hit: bad configuration
// at startup, unreadable/unwritable files, numerically fatal conditions in
// PCA/intersection/scoring, and lost-peer transport failures. Each is a
// machine-readable Code plus a human message and an optional wrapped cause.
package s2gerr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error classification.
type Code string

// Error codes, grouped by the taxonomy in the pipeline's error handling design.
const (
	// ErrCodeConfig marks inconsistent CLI/role configuration, caught at startup.
	ErrCodeConfig Code = "CONFIG_ERROR"

	// ErrCodeIO marks an unreadable input or unwritable output path.
	ErrCodeIO Code = "IO_ERROR"

	// ErrCodeNumeric marks a fatal numeric condition: singular PCA covariance,
	// zero transitions after segmentation, a singular intersection matrix, or
	// fewer edges than query_length at scoring time.
	ErrCodeNumeric Code = "NUMERIC_ERROR"

	// ErrCodeTransport marks a peer dial/handshake failure or loss of the
	// main peer.
	ErrCodeTransport Code = "TRANSPORT_ERROR"

	// ErrCodeInternal marks an unexpected internal condition (bug, invariant
	// violation) that doesn't fit the other categories.
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error { return e.Cause }

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err has the given error code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
