package transport

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies a transport failure.
type ErrorKind string

const (
	KindNetwork      ErrorKind = "network"      // Request never produced an HTTP response
	KindUnauthorized ErrorKind = "unauthorized" // 401 after the single allowed refresh attempt
	KindServerError  ErrorKind = "server_error" // Any other non-2xx status
	KindMalformed    ErrorKind = "malformed"    // Response body could not be decoded
)

// Error is a transport failure surfaced to the session manager, which is the
// only component allowed to decide whether the session gets invalidated.
type Error struct {
	Kind    ErrorKind
	Status  int    // HTTP status, zero for network failures
	Message string // Remote "detail" message when the service provided one
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status != 0 {
		return fmt.Sprintf("identity service returned status %d", e.Status)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf returns the transport error kind of err, or "" if err is not a
// transport error.
func KindOf(err error) ErrorKind {
	var transportErr *Error
	if errors.As(err, &transportErr) {
		return transportErr.Kind
	}
	return ""
}

// RemoteMessage returns the remote service's error message, if err carries one.
func RemoteMessage(err error) string {
	var transportErr *Error
	if errors.As(err, &transportErr) {
		return transportErr.Message
	}
	return ""
}

// StatusOf returns the HTTP status of err, or zero.
func StatusOf(err error) int {
	var transportErr *Error
	if errors.As(err, &transportErr) {
		return transportErr.Status
	}
	return 0
}

func networkError(cause error) *Error {
	return &Error{Kind: KindNetwork, cause: cause}
}

func malformedError(cause error) *Error {
	return &Error{Kind: KindMalformed, cause: cause}
}

func statusError(status int, message string) *Error {
	kind := KindServerError
	if status == 401 {
		kind = KindUnauthorized
	}
	return &Error{Kind: kind, Status: status, Message: message}
}
