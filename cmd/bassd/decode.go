package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/srg/bass/internal/bass"
)

func newDecodeCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode a Broadcast Receive State value",
		Long: `Decodes a Broadcast Receive State characteristic value.

Examples:
  # Decode a value read from a delegator
  bassd decode 000001eeff00c001563412020001000000000000

  # Separators and a 0x prefix are accepted
  bassd decode "00:00:01:ee:ff:00:c0:01:56:34:12:02:00:00" --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseHex(args[0])
			if err != nil {
				return err
			}

			st, err := bass.DecodeReceiveState(value)
			if err != nil {
				return fmt.Errorf("failed to decode receive state: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := json.MarshalIndent(st, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			renderState(out, newPalette(useColor(cmd)), *st)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

// parseHex accepts hex with an optional 0x prefix and space, colon or dash separators.
func parseHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	s = strings.NewReplacer(" ", "", ":", "", "-", "").Replace(s)
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex value: %w", err)
	}
	return data, nil
}
