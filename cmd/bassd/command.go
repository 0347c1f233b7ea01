package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/srg/bass/internal/bass"
)

// commandOptions are the flags shared by every command subcommand.
type commandOptions struct {
	to              string
	withoutResponse bool
	timeout         time.Duration
}

func newCommandCmd() *cobra.Command {
	opts := &commandOptions{}

	cmd := &cobra.Command{
		Use:   "command",
		Short: "Encode or send a Broadcast Audio Scan control point command",
		Long: `Encodes a control point command and prints it as hex. With --to the
command is written to the control point of a remote delegator instead.

Examples:
  # Ask a delegator to sync to BIS 1 and 2 of a broadcast
  bassd command add-source --addr C0:FF:EE:00:00:01 --broadcast-id 0x123456 --pa-sync past --bis 0x3

  # Remove source 0 from a remote delegator
  bassd command remove-source 0 --to 11:22:33:44:55:66`,
	}

	cmd.PersistentFlags().StringVar(&opts.to, "to", "", "Write the command to the delegator at this address")
	cmd.PersistentFlags().BoolVar(&opts.withoutResponse, "without-response", false, "Use a write command instead of a write request")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Connect timeout")

	cmd.AddCommand(newAddSourceCmd(opts))
	cmd.AddCommand(newRemoveSourceCmd(opts))
	cmd.AddCommand(newRemoteScanCmd(opts, "scan-start", true))
	cmd.AddCommand(newRemoteScanCmd(opts, "scan-stop", false))
	return cmd
}

type addSourceFlags struct {
	addr        string
	addrType    string
	sid         uint8
	broadcastID string
	paSync      string
	paInterval  uint16
	bis         []string
	metadata    []string
}

func newAddSourceCmd(opts *commandOptions) *cobra.Command {
	f := &addSourceFlags{}

	cmd := &cobra.Command{
		Use:   "add-source",
		Short: "Add Source: track a broadcast source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := f.build()
			if err != nil {
				return err
			}
			return emitCommand(cmd, opts, c)
		},
	}

	cmd.Flags().StringVar(&f.addr, "addr", "", "Broadcaster address (AA:BB:CC:DD:EE:FF)")
	cmd.Flags().StringVar(&f.addrType, "addr-type", "public", "Broadcaster address type (public, random)")
	cmd.Flags().Uint8Var(&f.sid, "sid", 0, "Advertising SID")
	cmd.Flags().StringVar(&f.broadcastID, "broadcast-id", "", "24-bit Broadcast_ID (decimal or 0x hex)")
	cmd.Flags().StringVar(&f.paSync, "pa-sync", "no", "PA sync request (no, past, no-past)")
	cmd.Flags().Uint16Var(&f.paInterval, "pa-interval", 0xFFFF, "PA interval, 0xFFFF when unknown")
	cmd.Flags().StringSliceVar(&f.bis, "bis", nil, "BIS sync mask per subgroup (0x hex, or 'any' for no preference)")
	cmd.Flags().StringSliceVar(&f.metadata, "metadata", nil, "Metadata per subgroup as hex, in --bis order")
	_ = cmd.MarkFlagRequired("addr")
	_ = cmd.MarkFlagRequired("broadcast-id")
	return cmd
}

func (f *addSourceFlags) build() (bass.AddSourceCommand, error) {
	var c bass.AddSourceCommand

	addr, err := bass.ParseAddress(f.addr)
	if err != nil {
		return c, err
	}
	c.Addr = addr

	switch strings.ToLower(f.addrType) {
	case "public":
		c.AddrType = bass.AddrPublic
	case "random":
		c.AddrType = bass.AddrRandom
	default:
		return c, fmt.Errorf("invalid address type %q (must be public or random)", f.addrType)
	}

	id, err := strconv.ParseUint(f.broadcastID, 0, 32)
	if err != nil || id > 0xFFFFFF {
		return c, fmt.Errorf("invalid broadcast id %q (must fit in 24 bits)", f.broadcastID)
	}
	c.BroadcastID = uint32(id)

	switch strings.ToLower(f.paSync) {
	case "no":
		c.PASync = bass.PASyncNo
	case "past":
		c.PASync = bass.PASyncPAST
	case "no-past":
		c.PASync = bass.PASyncNoPAST
	default:
		return c, fmt.Errorf("invalid pa sync %q (must be no, past or no-past)", f.paSync)
	}

	c.SID = f.sid
	c.PAInterval = f.paInterval

	if len(f.metadata) > len(f.bis) {
		return c, fmt.Errorf("%d metadata values for %d subgroups", len(f.metadata), len(f.bis))
	}
	for i, raw := range f.bis {
		var sg bass.SubgroupParams
		if strings.EqualFold(raw, "any") {
			sg.BISSync = bass.BISSyncNoPreference
		} else {
			mask, err := strconv.ParseUint(raw, 0, 32)
			if err != nil {
				return c, fmt.Errorf("invalid BIS mask %q: %w", raw, err)
			}
			sg.BISSync = uint32(mask)
		}
		if i < len(f.metadata) {
			meta, err := parseHex(f.metadata[i])
			if err != nil {
				return c, err
			}
			if len(meta) > 0xFF {
				return c, fmt.Errorf("metadata of subgroup %d is %d bytes, at most 255 allowed", i, len(meta))
			}
			sg.Metadata = meta
		}
		c.Subgroups = append(c.Subgroups, sg)
	}
	return c, nil
}

func newRemoveSourceCmd(opts *commandOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-source <source-id>",
		Short: "Remove Source: stop tracking a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 0, 8)
			if err != nil {
				return fmt.Errorf("invalid source id %q: %w", args[0], err)
			}
			return emitCommand(cmd, opts, bass.RemoveSourceCommand{SourceID: uint8(id)})
		},
	}
}

func newRemoteScanCmd(opts *commandOptions, use string, started bool) *cobra.Command {
	short := "Remote Scan Stopped: the assistant stopped scanning"
	if started {
		short = "Remote Scan Started: the assistant scans on the delegator's behalf"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return emitCommand(cmd, opts, bass.RemoteScanCommand{Started: started})
		},
	}
}

// emitCommand prints c as hex, or writes it to the delegator named by --to.
func emitCommand(cmd *cobra.Command, opts *commandOptions, c bass.Command) error {
	out := cmd.OutOrStdout()
	if opts.to == "" {
		fmt.Fprintln(out, hex.EncodeToString(c.Encode()))
		return nil
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	client, err := dial(cmd.Context(), cmd, opts.to, opts.timeout, logger)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	m, err := attachMirror(cmd.Context(), client, logger, nil)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.session.SendCommand(c, !opts.withoutResponse); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s written to %s\n", c.Opcode(), opts.to)
	return nil
}
