// ABOUTME: Error taxonomy shared by the session controller, catalog view-model and HTTP client
// ABOUTME: Classifies failures so callers can log by kind and show one human-readable message

package apperr

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure.
type Kind string

const (
	// KindInvalidInput is a local validation failure raised before any call is made.
	KindInvalidInput Kind = "invalid_input"
	// KindNetworkFailure is a transport-level failure (dial, timeout, cancellation).
	KindNetworkFailure Kind = "network_failure"
	// KindServerRejected is a non-success response carrying a reason.
	KindServerRejected Kind = "server_rejected"
	// KindMalformedResponse is a success response missing expected fields.
	KindMalformedResponse Kind = "malformed_response"
	// KindPreconditionFailed is an operation invoked without its required prior state.
	KindPreconditionFailed Kind = "precondition_failed"
	// KindUnknown is anything that was not classified.
	KindUnknown Kind = "unknown"
)

// Error is a classified failure with a human-readable message and optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind with no message set,
// so errors.Is(err, &Error{Kind: KindNetworkFailure}) matches any network failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// InvalidInput creates a new InvalidInput error.
func InvalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

// NetworkFailure creates a new NetworkFailure error wrapping the transport error.
func NetworkFailure(message string, cause error) *Error {
	return &Error{Kind: KindNetworkFailure, Message: message, Cause: cause}
}

// ServerRejected creates a new ServerRejected error with the server-provided reason.
func ServerRejected(message string) *Error {
	return &Error{Kind: KindServerRejected, Message: message}
}

// MalformedResponse creates a new MalformedResponse error.
func MalformedResponse(message string, cause error) *Error {
	return &Error{Kind: KindMalformedResponse, Message: message, Cause: cause}
}

// PreconditionFailed creates a new PreconditionFailed error.
func PreconditionFailed(message string) *Error {
	return &Error{Kind: KindPreconditionFailed, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// UserMessage returns the message to show for err. Server-provided reasons are shown
// verbatim; other kinds show their own message; unclassified errors fall back.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	if fallback != "" {
		return fallback
	}
	return err.Error()
}
