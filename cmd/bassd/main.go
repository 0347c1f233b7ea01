package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// newRootCmd builds the command tree. Commands are built per call so tests
// never share flag state.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bassd",
		Short: "Broadcast Audio Scan Service delegator and assistant",
		Long: `Broadcast Audio Scan Service (BASS) tool that provides:

- A scan delegator publishing Broadcast Receive State slots and a control point
- A mirror of the receive states of a remote delegator
- Decoding of receive state values and encoding of control point commands

Broadcast sources added by an assistant are synchronized over ISO sockets on
Linux, or simulated in-process with --simulate-iso.`,
		Version: fmt.Sprintf("%s (commit %s, built %s)", formatVersion(version), commit, date),
	}

	// Silence Cobra's "Error:" prefix - main() prints clean errors
	root.SilenceErrors = true

	root.AddCommand(newServeCmd())
	root.AddCommand(newMirrorCmd())
	root.AddCommand(newDecodeCmd())
	root.AddCommand(newCommandCmd())

	// Global flags
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	root.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	root.PersistentFlags().Bool("no-color", false, "Disable colored output")

	// Add -v as a short flag for --version
	root.Flags().BoolP("version", "v", false, "Show version information")

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		os.Exit(1)
	}
}
