package core

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"crowdcore/pkg/domain"
	"crowdcore/pkg/hooks"
)

// Recruiter is the labor-market surface the service drives directly:
// requesting replacement participants, the one-way recruitment close, and the
// per-assignment settlement calls made after a submission is judged.
type Recruiter interface {
	Recruit(ctx context.Context, count int) error
	CloseRecruitment(ctx context.Context) error
	ApproveAssignment(ctx context.Context, assignmentRef string) error
	GrantBonus(ctx context.Context, assignmentRef string, amount float64, reason string) error
}

// Service runs the experiment lifecycle: network setup, participant
// admission, the status machine with cascading node failure, and recruitment
// control.
type Service struct {
	store     domain.PersistentStore
	recruiter Recruiter
	policy    hooks.NetworkPolicy
	checks    hooks.Checks
	bonus     hooks.BonusFunc
	clock     Clock
	logger    Logger
	metrics   MetricsRecorder

	recruitmentClosed atomic.Bool
}

// Option customizes service construction.
type Option func(*Service)

// WithClock overrides the wall clock used for lifecycle timestamps.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches an operation metrics recorder.
func WithMetrics(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithPolicy overrides the experiment network choice policy.
func WithPolicy(policy hooks.NetworkPolicy) Option {
	return func(s *Service) {
		if policy != nil {
			s.policy = policy
		}
	}
}

// WithChecks overrides the submission data/attention checks.
func WithChecks(checks hooks.Checks) Option {
	return func(s *Service) {
		if checks != nil {
			s.checks = checks
		}
	}
}

// WithBonus overrides the bonus hook consulted on approval.
func WithBonus(bonus hooks.BonusFunc) Option {
	return func(s *Service) {
		if bonus != nil {
			s.bonus = bonus
		}
	}
}

// NewService constructs a service over the supplied store and recruiter.
func NewService(store domain.PersistentStore, recruiter Recruiter, opts ...Option) *Service {
	s := &Service{
		store:     store,
		recruiter: recruiter,
		policy:    hooks.RandomPolicy{},
		checks:    hooks.PermissiveChecks{},
		bonus:     hooks.NoBonus,
		clock:     systemClock(),
		logger:    NopLogger(),
		metrics:   nopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying persistent store.
func (s *Service) Store() domain.PersistentStore { return s.store }

func (s *Service) observe(ctx context.Context, op string, start time.Time, err error) {
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
}

// Setup batch-creates the run's networks: practiceRepeats practice networks
// followed by experimentRepeats experiment networks, each with capacity
// maxSize. Practice networks sort first by creation order, so admission fills
// them before any experiment network.
func (s *Service) Setup(ctx context.Context, practiceRepeats, experimentRepeats, maxSize int) (created []Network, err error) {
	defer s.observe(ctx, "setup", time.Now(), err)
	if practiceRepeats < 0 || experimentRepeats < 0 {
		return nil, fmt.Errorf("network repeats must be non-negative")
	}
	if practiceRepeats+experimentRepeats == 0 {
		return nil, fmt.Errorf("at least one network required")
	}
	_, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		for i := 0; i < practiceRepeats; i++ {
			n, err := tx.CreateNetwork(Network{Role: RolePractice, MaxSize: maxSize})
			if err != nil {
				return err
			}
			created = append(created, n)
		}
		for i := 0; i < experimentRepeats; i++ {
			n, err := tx.CreateNetwork(Network{Role: RoleExperiment, MaxSize: maxSize})
			if err != nil {
				return err
			}
			created = append(created, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("networks created", "practice", practiceRepeats, "experiment", experimentRepeats, "max_size", maxSize)
	return created, nil
}

// RegisterParticipant records a participant's first contact. If another still
// working participant holds the same assignment reference, the assignment was
// reassigned by the labor market: the earlier participant is abandoned and
// its nodes failed in the same transaction.
func (s *Service) RegisterParticipant(ctx context.Context, assignmentRef, workerRef string) (created Participant, err error) {
	defer s.observe(ctx, "register_participant", time.Now(), err)
	now := s.clock.Now()
	_, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		for _, p := range tx.Snapshot().ListParticipants() {
			if p.AssignmentRef != assignmentRef || p.Status != StatusWorking {
				continue
			}
			s.logger.Warn("assignment reassigned, abandoning earlier participant",
				"assignment_ref", assignmentRef, "participant_id", p.ID)
			end := now
			if _, err := tx.UpdateParticipant(p.ID, func(prev *Participant) error {
				prev.Status = StatusAbandoned
				prev.EndTime = &end
				return nil
			}); err != nil {
				return err
			}
			if err := failParticipantNodes(tx, p.ID, now); err != nil {
				return err
			}
		}
		var err error
		created, err = tx.CreateParticipant(Participant{
			AssignmentRef: assignmentRef,
			WorkerRef:     workerRef,
			Status:        StatusWorking,
		})
		return err
	})
	if err != nil {
		return Participant{}, err
	}
	return created, nil
}

// StatusSummary returns the count of participants per status.
func (s *Service) StatusSummary(ctx context.Context) (map[ParticipantStatus]int, error) {
	summary := make(map[ParticipantStatus]int)
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		for _, p := range view.ListParticipants() {
			summary[p.Status]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}
