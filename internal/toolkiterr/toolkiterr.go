// Package toolkiterr classifies the error taxonomy every component in this
// toolkit surfaces (spec §7): NotFound, Transport, AuthToken, Decode,
// Schema, ModeConflict, Timeout. Components wrap their own errors at the
// point of failure; the pipeline never rewraps an error it receives from a
// component.
package toolkiterr

import (
	"errors"
	"fmt"
)

// Kind is one of the seven dispositions named in spec §7.
type Kind string

const (
	NotFound    Kind = "not_found"
	Transport   Kind = "transport"
	AuthToken   Kind = "auth_token"
	Decode      Kind = "decode"
	Schema      Kind = "schema"
	ModeConflict Kind = "mode_conflict"
	Timeout     Kind = "timeout"
)

// Error wraps an underlying error with a Kind and the component that
// produced it, so callers can classify failures with errors.As instead of
// string matching.
type Error struct {
	Kind      Kind
	Component string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Component, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a classified Error.
func New(component string, kind Kind, err error) *Error {
	return &Error{Kind: kind, Component: component, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind == kind
	}
	return false
}
