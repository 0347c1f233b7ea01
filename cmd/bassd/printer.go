package main

import (
	"context"
	"fmt"
	"io"

	"github.com/srg/bass/internal/bass"
	"github.com/srg/bass/internal/groutine"
	"github.com/srg/bass/internal/ringchan"
)

// eventPrinter renders source events on its own goroutine. Observe runs on
// the reactor and never blocks; a slow terminal loses the oldest events.
type eventPrinter struct {
	out     io.Writer
	palette *palette
	ring    *ringchan.Ring[eventLine]
	loop    groutine.Group
}

func newEventPrinter(out io.Writer, buffer int, colored bool) *eventPrinter {
	if buffer < 1 {
		buffer = 1
	}
	return &eventPrinter{
		out:     out,
		palette: newPalette(colored),
		ring:    ringchan.New[eventLine](buffer),
	}
}

// Observe is a bass source observer.
func (p *eventPrinter) Observe(ev bass.SourceEvent) {
	p.ring.Send(describe(ev))
}

// Start begins printing.
func (p *eventPrinter) Start(ctx context.Context) {
	p.loop.Go(ctx, "bassd-printer", func(context.Context) {
		for line := range p.ring.C() {
			renderEvent(p.out, p.palette, line)
		}
	})
}

// Stop prints what is queued and waits for the printer to exit.
func (p *eventPrinter) Stop() {
	p.ring.Close()
	p.loop.Wait()
	if n := p.ring.Dropped(); n > 0 {
		fmt.Fprintf(p.out, "%d events dropped, output too slow\n", n)
	}
}
