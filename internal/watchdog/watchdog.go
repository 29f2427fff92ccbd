// Package watchdog reconciles the local participant ledger against the
// labor market. Notifications from the market can be lost or delayed; the
// watchdog periodically finds working participants whose session has run
// past its expected duration, asks the market for the authoritative
// assignment status, and repairs, replays, or escalates.
package watchdog

import (
	"context"
	"time"

	"crowdcore/internal/core"
	"crowdcore/internal/labormarket"
)

const (
	defaultInterval = 30 * time.Second
	defaultGrace    = 2 * time.Minute
)

// Notifier redelivers market events to the run host's normal notification
// entry point. Satisfied by labormarket.Notifier.
type Notifier interface {
	PostNotification(ctx context.Context, kind labormarket.NotificationKind, assignmentRef string) error
}

// AutoRecruitDisabler is the slice of the hosting client the watchdog uses
// during emergency shutdown.
type AutoRecruitDisabler interface {
	DisableAutoRecruit(ctx context.Context, runID string) error
}

// Watchdog runs the reconciliation sweep. Not safe for concurrent sweeps;
// Run executes each sweep inline so a slow pass drops ticks instead of
// overlapping them.
type Watchdog struct {
	svc      *core.Service
	market   labormarket.Client
	notifier Notifier

	interval        time.Duration
	sessionDuration time.Duration
	grace           time.Duration
	badDataWindow   int

	hosting AutoRecruitDisabler
	runID   string
	clock   core.Clock
	logger  core.Logger

	escalated    map[string]struct{}
	badDataFired bool
}

// Option customizes a Watchdog.
type Option func(*Watchdog)

// WithInterval sets the sweep interval.
func WithInterval(d time.Duration) Option {
	return func(w *Watchdog) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithGracePeriod sets the slack added to the expected session duration
// before a missing notification is presumed.
func WithGracePeriod(d time.Duration) Option {
	return func(w *Watchdog) {
		if d >= 0 {
			w.grace = d
		}
	}
}

// WithBadDataWindow enables the trailing data-quality check over the n
// most recently terminated participants. Zero disables the check.
func WithBadDataWindow(n int) Option {
	return func(w *Watchdog) { w.badDataWindow = n }
}

// WithHosting wires the hosting client used to stop platform-side
// auto-recruiting during emergency shutdown.
func WithHosting(h AutoRecruitDisabler, runID string) Option {
	return func(w *Watchdog) {
		w.hosting = h
		w.runID = runID
	}
}

// WithClock overrides the time source.
func WithClock(c core.Clock) Option {
	return func(w *Watchdog) {
		if c != nil {
			w.clock = c
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l core.Logger) Option {
	return func(w *Watchdog) {
		if l != nil {
			w.logger = l
		}
	}
}

// New builds a watchdog over the lifecycle service, the labor market, and
// the notification entry point. sessionDuration is the expected working
// time for one participant.
func New(svc *core.Service, market labormarket.Client, notifier Notifier, sessionDuration time.Duration, opts ...Option) *Watchdog {
	w := &Watchdog{
		svc:             svc,
		market:          market,
		notifier:        notifier,
		interval:        defaultInterval,
		sessionDuration: sessionDuration,
		grace:           defaultGrace,
		clock:           core.ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:          core.NopLogger(),
		escalated:       map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run sweeps on a fixed interval until the context is cancelled. An
// in-flight sweep finishes before cancellation is observed.
func (w *Watchdog) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				w.logger.Error("reconciliation sweep failed", "error", err)
			}
		}
	}
}

// Sweep runs both reconciliation checks once. It returns an error only when
// the local store cannot be read; external failures are logged and retried
// on the next sweep.
func (w *Watchdog) Sweep(ctx context.Context) error {
	if err := w.checkMissedNotifications(ctx); err != nil {
		return err
	}
	return w.checkBadDataWindow(ctx)
}

func (w *Watchdog) checkMissedNotifications(ctx context.Context) error {
	working, err := w.svc.WorkingParticipants(ctx)
	if err != nil {
		return err
	}
	now := w.clock.Now()
	deadline := w.sessionDuration + w.grace
	for _, p := range working {
		if now.Sub(p.CreatedAt) <= deadline {
			continue
		}
		status, err := w.market.AssignmentStatus(ctx, p.AssignmentRef)
		if err != nil {
			// Transport errors and timeouts mean "unknown", which is
			// never grounds for escalation on its own.
			w.logger.Warn("assignment status query failed, deferring",
				"participant", p.ID, "assignment", p.AssignmentRef, "error", err)
			continue
		}
		switch status {
		case labormarket.StatusApproved:
			w.repair(ctx, p.ID, core.StatusApproved)
		case labormarket.StatusRejected:
			w.repair(ctx, p.ID, core.StatusRejected)
		case labormarket.StatusSubmitted:
			// The real notification was lost in transit. Replaying it
			// through the host keeps one code path responsible for
			// submission side effects.
			if err := w.notifier.PostNotification(ctx, labormarket.NotificationAssignmentSubmitted, p.AssignmentRef); err != nil {
				w.logger.Warn("submitted-notification replay failed",
					"participant", p.ID, "assignment", p.AssignmentRef, "error", err)
			} else {
				w.logger.Info("replayed lost submitted notification",
					"participant", p.ID, "assignment", p.AssignmentRef)
			}
		default:
			w.escalate(ctx, p)
		}
	}
	return nil
}

func (w *Watchdog) repair(ctx context.Context, participantID string, status core.ParticipantStatus) {
	if err := w.svc.RepairStatus(ctx, participantID, status); err != nil {
		w.logger.Warn("status repair failed",
			"participant", participantID, "status", status, "error", err)
		return
	}
	w.logger.Info("repaired participant status from labor market",
		"participant", participantID, "status", status)
}

// escalate handles a participant whose session expired without the market
// ever seeing a submission. The run is presumed unrecoverable: recruitment
// stops, the participant's job is expired, and an operator alert goes out.
// Each participant escalates at most once.
func (w *Watchdog) escalate(ctx context.Context, p core.Participant) {
	if _, done := w.escalated[p.ID]; done {
		return
	}
	w.escalated[p.ID] = struct{}{}

	w.svc.DisableRecruitment()
	if err := w.market.CloseRecruitment(ctx); err != nil {
		w.logger.Warn("close recruitment failed during shutdown", "error", err)
	}
	if w.hosting != nil {
		if err := w.hosting.DisableAutoRecruit(ctx, w.runID); err != nil {
			w.logger.Warn("disable auto-recruit failed during shutdown",
				"run", w.runID, "error", err)
		}
	}
	if err := w.market.ExpireJob(ctx, p.AssignmentRef); err != nil {
		w.logger.Warn("expire job failed during shutdown",
			"assignment", p.AssignmentRef, "error", err)
	}
	if err := w.notifier.PostNotification(ctx, labormarket.NotificationMissing, p.AssignmentRef); err != nil {
		w.logger.Warn("missing-notification alert delivery failed",
			"assignment", p.AssignmentRef, "error", err)
	}
	w.logger.Error("notification missing, run requires manual intervention",
		"participant", p.ID, "assignment", p.AssignmentRef)
}

// checkBadDataWindow fires when the trailing window of terminated
// participants is fully populated and every entry carries the bad-data
// flag, which points at a systemic defect rather than individual noise.
func (w *Watchdog) checkBadDataWindow(ctx context.Context) error {
	if w.badDataWindow <= 0 || w.badDataFired {
		return nil
	}
	ended, err := w.svc.RecentlyEnded(ctx, w.badDataWindow)
	if err != nil {
		return err
	}
	if len(ended) < w.badDataWindow {
		return nil
	}
	for _, p := range ended {
		if !p.BadData {
			return nil
		}
	}
	w.badDataFired = true

	w.svc.DisableRecruitment()
	if err := w.market.CloseRecruitment(ctx); err != nil {
		w.logger.Warn("close recruitment failed after bad-data window", "error", err)
	}
	open, ok, err := w.svc.MostRecentOpenParticipant(ctx)
	if err != nil {
		return err
	}
	if ok {
		if err := w.market.ExpireJob(ctx, open.AssignmentRef); err != nil {
			w.logger.Warn("expire job failed after bad-data window",
				"assignment", open.AssignmentRef, "error", err)
		}
	}
	w.logger.Error("trailing participants all produced bad data, recruitment closed",
		"window", w.badDataWindow)
	return nil
}
