package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/bass/internal/bass/goble"
	"golang.org/x/term"
)

const (
	progressUpdateInterval = 100 * time.Millisecond
	clearLineSequence      = "\r\033[K"
)

// ProgressPrinter shows "<prefix> (<phase> Ns)" on one line while a slow
// step such as dialing runs.
//
// A ProgressPrinter is single-use: Start at most once, Stop any number of times.
type ProgressPrinter struct {
	out    io.Writer
	prefix string
	phase  atomic.Value // string

	start   sync.Once
	stop    sync.Once
	stopped chan struct{}
	done    chan struct{}
}

// NewProgressPrinter returns a printer writing to out.
func NewProgressPrinter(out io.Writer, prefix, phase string) *ProgressPrinter {
	p := &ProgressPrinter{
		out:     out,
		prefix:  prefix,
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}
	p.phase.Store(phase)
	return p
}

// Start begins updating the line every progressUpdateInterval.
func (p *ProgressPrinter) Start() {
	p.start.Do(func() {
		began := time.Now()
		fmt.Fprintf(p.out, "\r%s (%s...)   ", p.prefix, p.phase.Load().(string))

		go func() {
			defer close(p.done)
			ticker := time.NewTicker(progressUpdateInterval)
			defer ticker.Stop()

			for {
				select {
				case <-p.stopped:
					return
				case <-ticker.C:
					fmt.Fprintf(p.out, "\r%s (%s %ds)   ", p.prefix, p.phase.Load().(string), int(time.Since(began).Seconds()))
				}
			}
		}()
	})
}

// SetPhase changes the phase shown on the next update.
func (p *ProgressPrinter) SetPhase(phase string) {
	p.phase.Store(phase)
}

// Stop ends the updates and clears the line. It is a no-op before Start.
func (p *ProgressPrinter) Stop() {
	p.stop.Do(func() {
		close(p.stopped)
		started := true
		p.start.Do(func() { started = false })
		if started {
			<-p.done
			fmt.Fprint(p.out, clearLineSequence)
		}
	})
}

// dial connects to address within timeout, showing progress on an
// interactive stderr.
func dial(ctx context.Context, cmd *cobra.Command, address string, timeout time.Duration, logger *logrus.Logger) (*goble.Client, error) {
	errOut := cmd.ErrOrStderr()
	if errOut == os.Stderr && term.IsTerminal(int(os.Stderr.Fd())) {
		progress := NewProgressPrinter(errOut, fmt.Sprintf("Connecting to %s", address), "Dialing")
		progress.Start()
		defer progress.Stop()
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return goble.Dial(dialCtx, address, logger)
}
