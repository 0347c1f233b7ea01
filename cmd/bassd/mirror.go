package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/bass/internal/bass"
	"github.com/srg/bass/internal/bledb"
	"github.com/srg/bass/internal/reactor"
)

func newMirrorCmd() *cobra.Command {
	var (
		once    bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "mirror <device-address>",
		Short: "Follow the receive states of a remote delegator",
		Long: `Connects to a scan delegator, reads every Broadcast Receive State and
prints each change it notifies until interrupted.

Examples:
  # Follow a delegator
  bassd mirror 11:22:33:44:55:66

  # Print the current receive states and exit
  bassd mirror 11:22:33:44:55:66 --once`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := args[0]

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

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := dial(ctx, cmd, address, timeout, logger)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			return runMirror(ctx, cmd, client, client.Disconnected(), logger, cfg.EventBuffer, once)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Print the current receive states and exit")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Connect timeout")
	return cmd
}

// runMirror attaches client and prints receive states until ctx ends or the
// link drops. With once it prints the initial reads and returns.
func runMirror(ctx context.Context, cmd *cobra.Command, client bass.RemoteClient, disconnected <-chan struct{},
	logger *logrus.Logger, buffer int, once bool) error {
	out := cmd.OutOrStdout()
	colored := useColor(cmd)

	printServices(cmd, client.Services())

	if once {
		m, err := attachMirror(ctx, client, logger, nil)
		if err != nil {
			return err
		}
		defer m.Close()

		if err := m.waitReads(ctx); err != nil {
			return err
		}

		var states []bass.ReceiveState
		m.loop.Do(func() { states = m.session.RemoteSources() })
		if len(states) == 0 {
			fmt.Fprintln(out, "No broadcast sources")
		}
		p := newPalette(colored)
		for _, st := range states {
			renderState(out, p, st)
		}
		return nil
	}

	printer := newEventPrinter(out, buffer, colored)
	printer.Start(ctx)
	defer printer.Stop()

	m, err := attachMirror(ctx, client, logger, printer.Observe)
	if err != nil {
		return err
	}
	defer m.Close()

	select {
	case <-ctx.Done():
		return nil
	case <-disconnected:
		return ErrConnectionLost
	}
}

func printServices(cmd *cobra.Command, services []*ble.Service) {
	for _, svc := range services {
		if !svc.UUID.Equal(bass.ServiceUUID) {
			continue
		}
		for _, c := range svc.Characteristics {
			name := bledb.LookupCharacteristic(c.UUID.String())
			if name == "" {
				name = c.UUID.String()
			}
			cmd.PrintErrf("%s at handle 0x%04x\n", name, c.ValueHandle)
		}
	}
}

// mirror is a registry running on its own reactor with one session in the
// mirror role.
type mirror struct {
	loop     *reactor.Loop
	registry *bass.Registry
	session  *bass.Session
	reads    *sync.WaitGroup
}

// trackedClient counts outstanding reads so callers can wait for the
// initial receive state values.
type trackedClient struct {
	bass.RemoteClient
	reads *sync.WaitGroup
}

func (c *trackedClient) Read(ch *ble.Characteristic, done func([]byte, error)) {
	c.reads.Add(1)
	c.RemoteClient.Read(ch, func(value []byte, err error) {
		defer c.reads.Done()
		done(value, err)
	})
}

func attachMirror(ctx context.Context, client bass.RemoteClient, logger *logrus.Logger, observe func(bass.SourceEvent)) (*mirror, error) {
	loop := reactor.NewLoop(ctx, "bassd-mirror", 64, logger)
	m := &mirror{
		loop: loop,
		registry: bass.NewRegistry(
			bass.WithLogger(logger),
			bass.WithExecutor(loop),
			bass.WithSourceObserver(observe),
		),
		reads: &sync.WaitGroup{},
	}

	var err error
	loop.Do(func() {
		m.session, err = m.registry.NewSession(nil, bass.Address{}, true)
		if err != nil {
			return
		}
		err = m.registry.Attach(m.session, &trackedClient{RemoteClient: client, reads: m.reads})
	})
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to attach mirror: %w", err)
	}
	return m, nil
}

// waitReads blocks until every initial read completed and was applied.
func (m *mirror) waitReads(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.reads.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	// reads post their result; one more round trip applies them
	m.loop.Do(func() {})
	return nil
}

func (m *mirror) Close() {
	m.loop.Do(m.registry.Shutdown)
	m.loop.Stop()
}
