package bass

import (
	"errors"
	"fmt"
)

// ParseErrorKind classifies a codec failure.
type ParseErrorKind string

const (
	Truncated     ParseErrorKind = "truncated"
	TrailingBytes ParseErrorKind = "trailing_bytes"
)

// ParseError reports where a receive state or command buffer stopped making sense.
type ParseError struct {
	Kind   ParseErrorKind
	Field  string // field being read when the buffer ran out
	Offset int
	Need   int
	Have   int
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case Truncated:
		return fmt.Sprintf("truncated at offset %d reading %s: need %d bytes, have %d", e.Offset, e.Field, e.Need, e.Have)
	case TrailingBytes:
		return fmt.Sprintf("%d trailing bytes at offset %d", e.Have, e.Offset)
	default:
		return string(e.Kind)
	}
}

// Is allows errors.Is to compare ParseError values by Kind
func (e *ParseError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ParseError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Predefined sentinel errors for parse failures
var (
	ErrTruncated     = &ParseError{Kind: Truncated}
	ErrTrailingBytes = &ParseError{Kind: TrailingBytes}
)

// NotFoundError represents a lookup of a BASS resource that does not exist
type NotFoundError struct {
	Resource string // "source", "slot", "session", "characteristic"
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

var (
	ErrShutdown        = errors.New("registry is shut down")
	ErrNotAttached     = errors.New("session is not attached to a remote peer")
	ErrAlreadyAttached = errors.New("session is already attached to a remote peer")
	ErrNoControlPoint  = errors.New("remote peer exposes no broadcast audio scan control point")
	ErrIDExhausted     = errors.New("no free broadcast source id")
	ErrNoDatabase      = errors.New("no attribute database")
)
