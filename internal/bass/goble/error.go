package goble

import (
	"fmt"
	"strings"

	"github.com/srg/bass/internal/bass"
)

// NormalizeError maps go-ble link errors onto bass.ErrNotAttached, wrapping
// the original.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "device not connected"),
		strings.Contains(msg, "disconnected"),
		strings.Contains(msg, "connection is not initialized"):
		return fmt.Errorf("%w: %v", bass.ErrNotAttached, err)
	default:
		return err
	}
}
