package ankiconnect

import (
	"errors"
	"fmt"
)

// Kind categorizes a failed AnkiConnect call.
type Kind string

const (
	// KindConnection means the backend could not be reached at all.
	KindConnection Kind = "connection"
	// KindTimeout means no response arrived within the configured timeout.
	KindTimeout Kind = "timeout"
	// KindBackend means AnkiConnect answered with a non-null error field.
	// The message is passed through verbatim.
	KindBackend Kind = "backend"
	// KindProtocol means the HTTP exchange succeeded but the response could
	// not be understood (non-200 status, undecodable body).
	KindProtocol Kind = "protocol"
)

// Error is the failure type returned by every Client method.
type Error struct {
	Kind    Kind
	Action  string
	Message string
	wrapped error
}

func (e *Error) Error() string {
	return fmt.Sprintf("anki-connect %q: %s", e.Action, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// IsTimeout reports whether err is an AnkiConnect timeout failure.
func IsTimeout(err error) bool { return hasKind(err, KindTimeout) }

// IsConnection reports whether err is an AnkiConnect connection failure.
func IsConnection(err error) bool { return hasKind(err, KindConnection) }

// IsBackend reports whether err is an error reported by AnkiConnect itself.
func IsBackend(err error) bool { return hasKind(err, KindBackend) }

func hasKind(err error, k Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == k
}
