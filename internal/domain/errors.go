package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConfiguration      = errors.New("configuration error")
	ErrBackend            = errors.New("backend error")
	ErrEmptyResult        = errors.New("empty result")
	ErrCredentialRejected = errors.New("credential rejected")
	ErrLocalIO            = errors.New("local io error")
	ErrBusy               = errors.New("operation already in progress")
	ErrInvalidStage       = errors.New("invalid stage")
	ErrMissingInput       = errors.New("missing input")
)

// CredentialErrorSignature is the fragment the video backend places in an
// error body when the selected credential no longer resolves to a project.
const CredentialErrorSignature = "Requested entity was not found."

// Error carries a failure kind (one of the sentinels above) together with
// the message shown to the user. errors.Is matches against the kind.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// NewError builds an Error of the given kind.
func NewError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an Error of the given kind that keeps err in the chain.
func WrapError(kind error, err error, message string) *Error {
	if message == "" && err != nil {
		message = err.Error()
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the taxonomy sentinel for err. Unclassified failures are
// reported as ErrBackend.
func KindOf(err error) error {
	for _, kind := range []error{ErrConfiguration, ErrCredentialRejected, ErrEmptyResult, ErrLocalIO, ErrBusy, ErrInvalidStage, ErrMissingInput, ErrNotFound, ErrBackend} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrBackend
}

// Retryable reports whether the user can productively retry after err.
// Configuration errors need an external fix first.
func Retryable(err error) bool {
	return !errors.Is(err, ErrConfiguration)
}
