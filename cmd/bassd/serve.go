package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/bass/internal/bass"
	"github.com/srg/bass/internal/bass/goble"
	"github.com/srg/bass/internal/iso"
	"github.com/srg/bass/internal/reactor"
	"github.com/srg/bass/pkg/config"
)

func newServeCmd() *cobra.Command {
	var simulateISO bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a scan delegator",
		Long: `Publishes the Broadcast Audio Scan Service, advertises it and prints every
change to the receive states until interrupted.

Examples:
  # Serve with the kernel ISO sockets (Linux)
  bassd serve

  # Serve without ISO support; every requested BIS syncs at once
  bassd serve --simulate-iso --config bassd.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			opener, err := newOpener(simulateISO, logger)
			if err != nil {
				return err
			}

			dev, err := goble.DeviceFactory()
			if err != nil {
				return fmt.Errorf("failed to open BLE device: %w", goble.NormalizeError(err))
			}
			defer func() { _ = dev.Stop() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			printer := newEventPrinter(out, cfg.EventBuffer, useColor(cmd))
			printer.Start(ctx)
			defer printer.Stop()

			d, err := startDelegator(ctx, dev, opener, cfg, logger, printer.Observe)
			if err != nil {
				return err
			}
			defer d.Close()

			fmt.Fprintf(out, "Serving Broadcast Audio Scan as %q with %d receive states\n", cfg.DeviceName, cfg.ReceiveStates)

			err = dev.AdvertiseNameAndServices(ctx, cfg.DeviceName, bass.ServiceUUID)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("advertising failed: %w", goble.NormalizeError(err))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&simulateISO, "simulate-iso", false, "Simulate BIS synchronization in-process")
	return cmd
}

func newOpener(simulate bool, logger *logrus.Logger) (iso.Opener, error) {
	if simulate {
		return iso.NewLoopback().AutoAccept(), nil
	}
	opener, err := iso.NewSocketOpener(logger)
	if err != nil {
		return nil, fmt.Errorf("%w (use --simulate-iso to run without ISO support)", err)
	}
	return opener, nil
}

// delegator is a registry on its own reactor with one local database
// published through a goble.Server.
type delegator struct {
	loop     *reactor.Loop
	registry *bass.Registry
	server   *goble.Server
	db       *bass.Database
}

func startDelegator(ctx context.Context, host goble.Host, opener iso.Opener, cfg *config.Config,
	logger *logrus.Logger, observe func(bass.SourceEvent)) (*delegator, error) {
	loop := reactor.NewLoop(ctx, "bassd-delegator", cfg.EventBuffer, logger)
	d := &delegator{
		loop: loop,
		registry: bass.NewRegistry(
			bass.WithLogger(logger),
			bass.WithExecutor(loop),
			bass.WithISO(opener),
			bass.WithReceiveStates(cfg.ReceiveStates),
			bass.WithQoS(cfg.ISO),
			bass.WithSourceObserver(observe),
		),
		server: goble.NewServer(host, loop, logger),
	}

	var err error
	loop.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%v", r)
			}
		}()
		d.db, err = d.registry.AddDatabase(d.server, cfg.Adapter())
	})
	if err == nil && (d.db == nil || d.server.Service() == nil) {
		err = errors.New("service was not published")
	}
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to publish receive states: %w", err)
	}
	return d, nil
}

func (d *delegator) Close() {
	d.loop.Do(d.registry.Shutdown)
	d.loop.Stop()
}
