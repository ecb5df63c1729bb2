// Package apperr classifies the failures a practice session can run into.
// Every failure is caught where it happens and converted into a
// notification plus a safe state; the Kind decides which notification.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a failure category.
type Kind string

const (
	PermissionDenied  Kind = "PERMISSION_DENIED"
	DeviceUnavailable Kind = "DEVICE_UNAVAILABLE"
	NetworkFailure    Kind = "NETWORK_FAILURE"
	MalformedResponse Kind = "MALFORMED_RESPONSE"
	PlaybackFailure   Kind = "PLAYBACK_FAILURE"
	Validation        Kind = "VALIDATION_ERROR"
	Internal          Kind = "INTERNAL_ERROR"
)

// Error carries a Kind, a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind, so errors.Is(err, apperr.New(k, ""))
// reports whether err has kind k anywhere in its chain.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or Internal
// when there is none. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func Network(message string, err error) *Error {
	return Wrap(NetworkFailure, message, err)
}

func Malformed(message string) *Error {
	return New(MalformedResponse, message)
}

func Playback(message string, err error) *Error {
	return Wrap(PlaybackFailure, message, err)
}

func Invalid(message string) *Error {
	return New(Validation, message)
}
