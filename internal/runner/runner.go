// Package runner orchestrates a managed run end to end: set up the
// networks, open initial recruitment, wait for the hosted run to complete,
// tear it down, and export its data.
package runner

import (
	"context"
	"fmt"

	"crowdcore/internal/completion"
	"crowdcore/internal/config"
	"crowdcore/internal/core"
	"crowdcore/internal/export"
	"crowdcore/internal/hosting"
	"crowdcore/internal/labormarket"
)

// Runner drives managed and debug runs.
type Runner struct {
	cfg      config.Config
	svc      *core.Service
	market   labormarket.Client
	hosting  hosting.Client
	exporter *export.Exporter
	logger   core.Logger
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger overrides the logger.
func WithLogger(l core.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// New builds a runner. hostClient may be nil in debug mode, where the
// completion poll is skipped.
func New(cfg config.Config, svc *core.Service, market labormarket.Client, hostClient hosting.Client, exporter *export.Exporter, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		svc:      svc,
		market:   market,
		hosting:  hostClient,
		exporter: exporter,
		logger:   core.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one run and returns the export manifest.
func (r *Runner) Run(ctx context.Context) (export.Manifest, error) {
	if _, err := r.svc.Setup(ctx, r.cfg.PracticeRepeats, r.cfg.ExperimentRepeats, r.cfg.NetworkMaxSize); err != nil {
		return export.Manifest{}, fmt.Errorf("runner: setup: %w", err)
	}
	if r.cfg.InitialRecruits > 0 {
		if err := r.market.Recruit(ctx, r.cfg.InitialRecruits); err != nil {
			return export.Manifest{}, fmt.Errorf("runner: initial recruitment: %w", err)
		}
		r.logger.Info("opened initial recruitment", "count", r.cfg.InitialRecruits)
	}

	if r.cfg.Debug {
		r.logger.Info("debug run, skipping completion poll", "run", r.cfg.RunID)
	} else {
		poller := completion.New(r.hosting, r.cfg.RunID,
			completion.WithInterval(r.cfg.PollInterval),
			completion.WithLogger(r.logger))
		if err := poller.Wait(ctx); err != nil {
			return export.Manifest{}, fmt.Errorf("runner: wait for completion: %w", err)
		}
	}

	manifest, err := r.exporter.Export(ctx, r.cfg.RunID)
	if err != nil {
		return export.Manifest{}, err
	}
	r.logger.Info("run data exported", "run", r.cfg.RunID, "files", len(manifest.Files))
	return manifest, nil
}

// Collect returns the run's exported data, executing the run first if no
// export exists yet.
func (r *Runner) Collect(ctx context.Context) (export.Manifest, error) {
	manifest, ok, err := r.exporter.Existing(ctx, r.cfg.RunID)
	if err != nil {
		return export.Manifest{}, err
	}
	if ok {
		r.logger.Info("returning existing export", "run", r.cfg.RunID)
		return manifest, nil
	}
	return r.Run(ctx)
}
