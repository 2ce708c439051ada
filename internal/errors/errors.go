// Package errors provides the closed error taxonomy used across the import
// pipeline and the encrypted store.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the fixed pipeline categories.
type Kind string

const (
	// KindValidation covers ceiling and structural violations.
	KindValidation Kind = "validation"
	// KindParsing covers format extraction failures.
	KindParsing Kind = "parsing"
	// KindEncoding covers lossy or control-character anomalies.
	KindEncoding Kind = "encoding"
	// KindSecurity covers sanitizer hits on dangerous content.
	KindSecurity Kind = "security"
	// KindDatabase covers persistence failures.
	KindDatabase Kind = "database"
	// KindCrypto covers key and authentication failures.
	KindCrypto Kind = "crypto"
)

// Severity ranks how an error should be handled by callers.
// Low-severity errors are surfaced as warnings and never drop data.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

// String returns the lowercase severity label.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Error is an application error with a kind, a severity and an optional cause.
type Error struct {
	Kind     Kind
	Severity Severity
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s/%s] %s: %v", e.Kind, e.Severity, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s/%s] %s", e.Kind, e.Severity, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error.
func New(kind Kind, severity Severity, message string) *Error {
	return &Error{Kind: kind, Severity: severity, Message: message}
}

// Newf creates a new Error with a formatted message.
func Newf(kind Kind, severity Severity, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Severity: severity, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a kind and severity.
func Wrap(kind Kind, severity Severity, message string, err error) *Error {
	return &Error{Kind: kind, Severity: severity, Message: message, Err: err}
}

// IsKind reports whether err (or anything it wraps) carries the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// SeverityOf returns the severity of err. Errors outside the taxonomy are
// treated as high severity.
func SeverityOf(err error) Severity {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Severity
	}
	return SeverityHigh
}

// IsWarning reports whether err should be surfaced as a warning rather than
// dropping the data it was raised for.
func IsWarning(err error) bool {
	return err != nil && SeverityOf(err) == SeverityLow
}
