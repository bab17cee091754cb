// Package errs defines the typed failures shared by the store, the dispatcher,
// navigation and configuration. Every failure carries a stable Code so callers
// can branch with errors.Is against the package sentinels.
package errs

import (
	"errors"
	"fmt"
)

// Code is a stable identifier for a failure category.
type Code string

const (
	// InvalidTable indicates an untrusted or unknown table selector.
	InvalidTable Code = "INVALID_TABLE"
	// NotFound indicates a valid table with no record at the position.
	NotFound Code = "NOT_FOUND"
	// StoreUnavailable indicates an I/O or connection failure in the store.
	StoreUnavailable Code = "STORE_UNAVAILABLE"
	// ConfigMissing indicates a required startup setting is absent.
	ConfigMissing Code = "CONFIG_MISSING"
)

// Sentinels for errors.Is. They match any *Error with the same Code.
var (
	ErrInvalidTable     = &Error{Code: InvalidTable}
	ErrNotFound         = &Error{Code: NotFound}
	ErrStoreUnavailable = &Error{Code: StoreUnavailable}
	ErrConfigMissing    = &Error{Code: ConfigMissing}
)

// Error is a categorized failure with the operation that produced it.
type Error struct {
	Code    Code
	Op      string
	Message string
	cause   error
}

// New creates an Error without an underlying cause.
func New(code Code, op, message string) *Error {
	return &Error{Code: code, Op: op, Message: message}
}

// Wrap creates an Error that wraps cause.
func Wrap(code Code, op, message string, cause error) *Error {
	return &Error{Code: code, Op: op, Message: message, cause: cause}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s]", e.Code)
	if e.Op != "" {
		msg += " " + e.Op
	}
	if e.Message != "" {
		if e.Op != "" {
			msg += ":"
		}
		msg += " " + e.Message
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the Code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
