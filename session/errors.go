package session

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/worldpet/go-auth-client/transport"
)

// ErrorKind classifies a login or registration failure for display.
type ErrorKind string

const (
	KindInvalidCredentials   ErrorKind = "invalid_credentials"
	KindRegistrationConflict ErrorKind = "registration_conflict"
	KindUnknown              ErrorKind = "unknown"
)

const (
	invalidCredentialsMessage   = "Incorrect email or password"
	registrationConflictMessage = "An account with this email already exists"
	unknownFailureMessage       = "Something went wrong. Please try again."
)

// Error is the session manager's translation of a transport failure into a
// single human-readable message. The remote service's message is carried
// verbatim when it provided one.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf returns the session error kind of err, or "" if err is not a
// session error.
func KindOf(err error) ErrorKind {
	var sessionErr *Error
	if errors.As(err, &sessionErr) {
		return sessionErr.Kind
	}
	return ""
}

func translateLoginError(err error) error {
	kind := KindUnknown
	message := unknownFailureMessage

	switch transport.KindOf(err) {
	case transport.KindUnauthorized:
		kind = KindInvalidCredentials
		message = invalidCredentialsMessage
	case transport.KindServerError:
		if transport.StatusOf(err) == http.StatusBadRequest {
			kind = KindInvalidCredentials
			message = invalidCredentialsMessage
		}
	}
	if remote := transport.RemoteMessage(err); remote != "" {
		message = remote
	}
	return &Error{Kind: kind, Message: message, cause: err}
}

func translateRegisterError(err error) error {
	kind := KindUnknown
	message := unknownFailureMessage

	status := transport.StatusOf(err)
	if status == http.StatusBadRequest || status == http.StatusConflict {
		kind = KindRegistrationConflict
		message = registrationConflictMessage
	}
	if remote := transport.RemoteMessage(err); remote != "" {
		message = remote
	}
	return &Error{Kind: kind, Message: message, cause: err}
}
