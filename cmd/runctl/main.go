// Command runctl starts a managed run or collects the exported data of a
// prior one.
//
//	runctl run      execute the full run flow and export its data
//	runctl collect  return the existing export, running first if needed
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"crowdcore/internal/blob"
	"crowdcore/internal/config"
	"crowdcore/internal/core"
	"crowdcore/internal/export"
	"crowdcore/internal/hosting"
	"crowdcore/internal/labormarket"
	"crowdcore/internal/logging"
	"crowdcore/internal/runner"
	"crowdcore/pkg/domain"
)

func main() {
	if err := run(os.Args[1:]); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "runctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) != 1 || (args[0] != "run" && args[0] != "collect") {
		return fmt.Errorf("usage: runctl <run|collect>")
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.RunID == "" {
		return fmt.Errorf("CROWDCORE_RUN_ID is required")
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
	blobs, err := blob.Open(ctx)
	if err != nil {
		return err
	}
	market, err := newMarket(ctx, cfg)
	if err != nil {
		return err
	}
	var hostClient hosting.Client
	if !cfg.Debug {
		if hostClient, err = hosting.New(cfg.HostingBaseURL); err != nil {
			return err
		}
	}

	svcOpts := []core.Option{core.WithLogger(logger)}
	if cfg.BaseBonus > 0 {
		bonus := cfg.BaseBonus
		svcOpts = append(svcOpts, core.WithBonus(func(domain.Participant) float64 { return bonus }))
	}
	svc := core.NewService(store, market, svcOpts...)
	exporter := export.New(store, blobs)
	r := runner.New(cfg, svc, market, hostClient, exporter, runner.WithLogger(logger))

	var manifest export.Manifest
	switch args[0] {
	case "run":
		manifest, err = r.Run(ctx)
	case "collect":
		manifest, err = r.Collect(ctx)
	}
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(manifest)
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
