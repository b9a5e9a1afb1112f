// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/passport/internal/identity/sweeper"
)

// sweepFlags holds flags for the sweep command.
type sweepFlags struct {
	once bool
}

func newSweepCmd(opts *rootOptions) *cobra.Command {
	flags := &sweepFlags{}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove anonymous identities that have no session",
		Long: `Run the orphan sweeper. Anonymous identities older than the grace
period with no session are deleted. Without --once the sweeper runs until
interrupted and serves metrics and health probes on --metrics-addr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStores(cmd, opts, func(ctx context.Context, s *Stores) error {
				return runSweep(ctx, cmd, opts, s, flags)
			})
		},
	}

	cmd.Flags().BoolVar(&flags.once, "once", false, "run a single pass and exit")
	return cmd
}

func sweeperConfig(opts *rootOptions) sweeper.Config {
	cfg := sweeper.DefaultConfig()
	cfg.Interval = time.Duration(opts.cfg.Sweeper.Interval)
	cfg.Grace = time.Duration(opts.cfg.Sweeper.Grace)
	cfg.Batch = opts.cfg.Sweeper.Batch
	return cfg
}

func runSweep(ctx context.Context, cmd *cobra.Command, opts *rootOptions, s *Stores, flags *sweepFlags) error {
	sweepOpts := []sweeper.Option{sweeper.WithLogger(opts.logger)}

	var obsServer ObservabilityServer
	if !flags.once && opts.cfg.Metrics.Addr != "" {
		obsServer = opts.deps.ObservabilityServerFactory(opts.cfg.Metrics.Addr, s.Ready)
		sweepOpts = append(sweepOpts, sweeper.WithMetrics(obsServer.Metrics()))
	}

	sw, err := sweeper.New(s.Anonymous, s.Sessions, sweeperConfig(opts), sweepOpts...)
	if err != nil {
		return err
	}

	if flags.once {
		res, err := sw.SweepOnce(ctx)
		if err != nil {
			return err
		}
		cmd.Printf("scanned=%d swept=%d kept=%d failed=%d\n", res.Scanned, res.Swept, res.Kept, res.Failed)
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if obsServer != nil {
		errCh, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", opts.cfg.Metrics.Addr).Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, errCh, "observability")
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := obsServer.Stop(shutdownCtx); err != nil {
				slog.Warn("error stopping observability server", "error", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	sw.Start(ctx)
	cmd.Println("Sweeper started")

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	cancel()
	sw.Stop()
	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels the context when a server reports an error.
// It exits when an error arrives, the channel closes, or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown", "server", serverName, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
