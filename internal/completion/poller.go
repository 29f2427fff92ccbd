// Package completion watches a hosted run until the hosting platform
// reports it complete, then tears the run down so its data can be
// collected.
package completion

import (
	"context"
	"time"

	"crowdcore/internal/core"
	"crowdcore/internal/hosting"
)

const defaultPollInterval = 30 * time.Second

// Poller polls the hosting platform for run completion.
type Poller struct {
	hosting  hosting.Client
	runID    string
	interval time.Duration
	logger   core.Logger
}

// Option customizes a Poller.
type Option func(*Poller)

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l core.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

// New builds a poller for the given run.
func New(client hosting.Client, runID string, opts ...Option) *Poller {
	p := &Poller{
		hosting:  client,
		runID:    runID,
		interval: defaultPollInterval,
		logger:   core.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait blocks until the run completes or ctx is cancelled. On completion
// it tears the run down and returns nil so the caller can export the run
// data. Status query failures are logged and retried on the next poll.
func (p *Poller) Wait(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		status, err := p.hosting.RunStatus(ctx, p.runID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Warn("run status poll failed", "run", p.runID, "error", err)
		case status.Completed:
			p.logger.Info("run completed", "run", p.runID, "status", status.Status)
			if err := p.hosting.Teardown(ctx, p.runID); err != nil {
				return err
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
