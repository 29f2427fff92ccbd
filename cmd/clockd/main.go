// Command clockd runs the reconciliation watchdog for an active run. It
// periodically compares local working participants against the labor
// market's authoritative assignment state and repairs, replays, or
// escalates.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"crowdcore/internal/config"
	"crowdcore/internal/core"
	"crowdcore/internal/hosting"
	"crowdcore/internal/labormarket"
	"crowdcore/internal/logging"
	"crowdcore/internal/watchdog"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "clockd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, flush, err := logging.New(cfg.Debug)
	if err != nil {
		return err
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := core.OpenPersistentStore(core.NewDefaultRulesEngine())
	if err != nil {
		return err
	}
	market, err := newMarket(ctx, cfg)
	if err != nil {
		return err
	}
	notifier, err := labormarket.NewNotifier(cfg.HostBaseURL)
	if err != nil {
		return err
	}
	svc := core.NewService(store, market, core.WithLogger(logger))

	opts := []watchdog.Option{
		watchdog.WithInterval(cfg.SweepInterval),
		watchdog.WithGracePeriod(cfg.GracePeriod),
		watchdog.WithBadDataWindow(cfg.BadDataWindow),
		watchdog.WithLogger(logger),
	}
	if cfg.HostingBaseURL != "" {
		hostClient, err := hosting.New(cfg.HostingBaseURL)
		if err != nil {
			return err
		}
		opts = append(opts, watchdog.WithHosting(hostClient, cfg.RunID))
	}

	w := watchdog.New(svc, market, notifier, cfg.SessionDuration, opts...)
	logger.Info("reconciliation watchdog started",
		"run", cfg.RunID, "interval", cfg.SweepInterval.String())
	return w.Run(ctx)
}

func newMarket(ctx context.Context, cfg config.Config) (labormarket.Client, error) {
	if cfg.Debug {
		return labormarket.NewLocal(), nil
	}
	return labormarket.NewMTurk(ctx, labormarket.MTurkConfig{
		JobID:     cfg.MTurkJobID,
		Region:    cfg.MTurkRegion,
		Sandbox:   cfg.MTurkSandbox,
		AccessKey: cfg.MTurkAccessKey,
		SecretKey: cfg.MTurkSecretKey,
	})
}
