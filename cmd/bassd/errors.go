package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/srg/bass/internal/bass"
)

// Command-level errors
var (
	// ErrConnectionLost indicates the link to a mirrored delegator dropped while
	// its receive states were being followed.
	ErrConnectionLost = errors.New("connection lost")
)

// FormatUserError turns engine and transport errors into one line for the terminal.
func FormatUserError(err error) string {
	var (
		parseErr    *bass.ParseError
		notFoundErr *bass.NotFoundError
	)

	switch {
	case errors.Is(err, ErrConnectionLost):
		return "connection to the device was lost"
	case errors.Is(err, bass.ErrNotAttached):
		return "device is not connected"
	case errors.Is(err, bass.ErrNoControlPoint):
		return "device does not expose a Broadcast Audio Scan control point"
	case errors.Is(err, context.DeadlineExceeded):
		return "operation timed out"
	case errors.As(err, &parseErr):
		return fmt.Sprintf("malformed value: %s", parseErr.Error())
	case errors.As(err, &notFoundErr):
		return notFoundErr.Error()
	default:
		return err.Error()
	}
}
