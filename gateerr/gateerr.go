// Package gateerr provides the typed error taxonomy shared by all gateway
// layers. Errors keep their Kind while being wrapped with the operation that
// raised them, so the HTTP layer can map failures to responses without
// string matching.
package gateerr

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a gateway failure.
type Kind string

const (
	// InvalidTimeFormat marks a caller-supplied time expression that matches
	// neither the relative nor the absolute grammar.
	InvalidTimeFormat Kind = "invalid_time_format"
	// ConnectionFailure marks an unreachable backend, a failed probe, or a
	// client that never initialized.
	ConnectionFailure Kind = "connection_failure"
	// NoDataFound marks a last-point query that matched zero records.
	NoDataFound Kind = "no_data_found"
	// UnsupportedCombination marks request parameters the selected dialect
	// cannot express, such as fill=linear against InfluxQL.
	UnsupportedCombination Kind = "unsupported_combination"
	// UnexpectedBackend marks any other backend-reported fault.
	UnexpectedBackend Kind = "unexpected_backend_error"
)

// Error carries a Kind, the operation it surfaced from, and the original cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var out string
	if e.Op != "" {
		out = e.Op + ": "
	}
	out += e.Message
	if e.Err != nil {
		out += ": " + e.Err.Error()
	}
	return out
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates an existing cause with a kind and message.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp attaches the operation name to err. A typed error keeps its kind
// and gains the op; anything else is wrapped as an unexpected backend fault.
func WithOp(err error, op string) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stderrors.As(err, &typed) {
		return &Error{Kind: typed.Kind, Op: op, Message: typed.Message, Err: typed.Err}
	}
	return &Error{Kind: UnexpectedBackend, Op: op, Message: "operation failed", Err: err}
}

// KindOf reports the kind of err, or UnexpectedBackend when err carries none.
func KindOf(err error) Kind {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Kind
	}
	return UnexpectedBackend
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
