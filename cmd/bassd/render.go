package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/bass/internal/bass"
	"golang.org/x/term"
)

// palette holds the colors used for receive state output. A disabled palette
// renders plain text.
type palette struct {
	header  *color.Color
	ok      *color.Color
	pending *color.Color
	failed  *color.Color
	dim     *color.Color
}

func newPalette(enabled bool) *palette {
	p := &palette{
		header:  color.New(color.FgCyan, color.Bold),
		ok:      color.New(color.FgGreen),
		pending: color.New(color.FgYellow),
		failed:  color.New(color.FgRed, color.Bold),
		dim:     color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.header, p.ok, p.pending, p.failed, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// useColor reports whether stdout is a terminal and --no-color is unset.
func useColor(cmd *cobra.Command) bool {
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		return false
	}
	if cmd.OutOrStdout() != os.Stdout {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func addrTypeName(t uint8) string {
	if t == bass.AddrPublic {
		return "public"
	}
	return "random"
}

func (p *palette) paSync(s bass.PASyncState) string {
	switch s {
	case bass.PASynchronized:
		return p.ok.Sprint(s.String())
	case bass.PASyncFailed, bass.PANoPAST:
		return p.failed.Sprint(s.String())
	default:
		return p.pending.Sprint(s.String())
	}
}

func (p *palette) bisSync(mask uint32) string {
	switch mask {
	case bass.BIGSyncFailed:
		return p.failed.Sprint("failed")
	case 0:
		return p.pending.Sprint("none")
	default:
		return p.ok.Sprintf("0x%08x", mask)
	}
}

// renderState writes one receive state as an indented block.
func renderState(w io.Writer, p *palette, st bass.ReceiveState) {
	fmt.Fprintf(w, "%s  broadcast_id=0x%06x  addr=%s (%s)  sid=%d\n",
		p.header.Sprintf("Source %d", st.ID), st.BroadcastID, st.Addr, addrTypeName(st.AddrType), st.SID)
	fmt.Fprintf(w, "  pa_sync: %s  encryption: %s\n", p.paSync(st.PASync), st.Encryption)
	if st.Encryption == bass.BadCode {
		code, _ := st.BadCode.MarshalText()
		fmt.Fprintf(w, "  bad_code: %s\n", code)
	}
	for i, sg := range st.Subgroups {
		meta := p.dim.Sprint("-")
		if len(sg.Metadata) > 0 {
			text, _ := sg.Metadata.MarshalText()
			meta = string(text)
		}
		fmt.Fprintf(w, "  subgroup %d: bis_sync=%s metadata=%s\n", i, p.bisSync(sg.BISSync), meta)
	}
}

// eventLine is a source event reduced to what the printer needs. It is built
// on the reactor so the printer never touches engine objects.
type eventLine struct {
	Kind  bass.SourceEventKind
	Where string
	Peer  string
	State bass.ReceiveState
}

func describe(ev bass.SourceEvent) eventLine {
	line := eventLine{Kind: ev.Kind, State: ev.State}

	line.Where = fmt.Sprintf("slot %d", ev.Binding)
	if ev.Database != nil && ev.Database.Remote() {
		line.Where = fmt.Sprintf("handle 0x%04x", ev.Binding)
	}

	if ev.Session != nil {
		line.Peer = "session " + shortID(ev.Session.ID().String())
		if t := ev.Session.Transport(); t != nil && t.RemoteAddr() != nil {
			line.Peer += " peer " + t.RemoteAddr().String()
		}
	}
	return line
}

// renderEvent writes an event header followed by the state, or only the
// header for removals.
func renderEvent(w io.Writer, p *palette, line eventLine) {
	header := fmt.Sprintf("[%s] %s", line.Kind, line.Where)
	if line.Peer != "" {
		header += " " + line.Peer
	}
	fmt.Fprintln(w, header)
	if line.Kind != bass.SourceRemoved {
		renderState(w, p, line.State)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
