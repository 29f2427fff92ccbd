package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"crowdcore/internal/infra/persistence/memory"
	"crowdcore/pkg/hooks"
)

type bonusCall struct {
	assignmentRef string
	amount        float64
}

type fakeRecruiter struct {
	mu        sync.Mutex
	recruited int
	closed    int
	approved  []string
	bonuses   []bonusCall
}

func (f *fakeRecruiter) Recruit(_ context.Context, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recruited += count
	return nil
}

func (f *fakeRecruiter) CloseRecruitment(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeRecruiter) ApproveAssignment(_ context.Context, assignmentRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approved = append(f.approved, assignmentRef)
	return nil
}

func (f *fakeRecruiter) GrantBonus(_ context.Context, assignmentRef string, amount float64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bonuses = append(f.bonuses, bonusCall{assignmentRef: assignmentRef, amount: amount})
	return nil
}

func (f *fakeRecruiter) counts() (recruited, closed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recruited, f.closed
}

func newTestService(t *testing.T, opts ...Option) (*Service, *fakeRecruiter) {
	t.Helper()
	recruiter := &fakeRecruiter{}
	store := memory.NewStore(NewDefaultRulesEngine())
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	now := base
	store.SetNowFunc(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	})
	all := append([]Option{
		WithClock(ClockFunc(func() time.Time { return base })),
		WithPolicy(hooks.RoundRobinPolicy{}),
	}, opts...)
	return NewService(store, recruiter, all...), recruiter
}

func TestSetupCreatesPracticeNetworksFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Setup(ctx, 2, 3, 4)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if len(created) != 5 {
		t.Fatalf("created = %d networks, want 5", len(created))
	}
	networks := svc.Store().ListNetworks()
	for i, n := range networks[:2] {
		if n.Role != RolePractice {
			t.Fatalf("network %d role = %s, want practice", i, n.Role)
		}
	}
	for i, n := range networks[2:] {
		if n.Role != RoleExperiment {
			t.Fatalf("network %d role = %s, want experiment", i+2, n.Role)
		}
		if n.MaxSize != 4 {
			t.Fatalf("max size = %d, want 4", n.MaxSize)
		}
	}

	if _, err := svc.Setup(ctx, 0, 0, 4); err == nil {
		t.Fatalf("expected error for zero networks")
	}
	if _, err := svc.Setup(ctx, -1, 1, 4); err == nil {
		t.Fatalf("expected error for negative repeats")
	}
}

func TestRegisterParticipantFailsReassignedPredecessor(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Setup(ctx, 0, 1, 5); err != nil {
		t.Fatalf("setup: %v", err)
	}

	first, err := svc.RegisterParticipant(ctx, "asgn-1", "worker-1")
	if err != nil {
		t.Fatalf("register first: %v", err)
	}
	if first.Status != StatusWorking {
		t.Fatalf("status = %s, want working", first.Status)
	}
	if _, ok, err := svc.AssignParticipant(ctx, first.ID); err != nil || !ok {
		t.Fatalf("assign first: ok=%v err=%v", ok, err)
	}

	second, err := svc.RegisterParticipant(ctx, "asgn-1", "worker-2")
	if err != nil {
		t.Fatalf("register second: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("expected a new participant record")
	}

	replaced, ok := svc.Store().GetParticipant(first.ID)
	if !ok {
		t.Fatalf("first participant missing")
	}
	if replaced.Status != StatusAbandoned {
		t.Fatalf("replaced status = %s, want abandoned", replaced.Status)
	}
	if replaced.EndTime == nil {
		t.Fatalf("replaced end time not set")
	}
	for _, n := range svc.Store().ListNodes() {
		if n.ParticipantID == first.ID && !n.Failed {
			t.Fatalf("expected replaced participant's nodes to be failed")
		}
	}
}

func TestStatusSummaryCountsByStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Setup(ctx, 0, 2, 5); err != nil {
		t.Fatalf("setup: %v", err)
	}
	a, _ := svc.RegisterParticipant(ctx, "asgn-a", "w-a")
	b, _ := svc.RegisterParticipant(ctx, "asgn-b", "w-b")
	if _, err := svc.RegisterParticipant(ctx, "asgn-c", "w-c"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.SubmissionReceived(ctx, a.ID); err != nil {
		t.Fatalf("submit a: %v", err)
	}
	if err := svc.AssignmentReturned(ctx, b.ID); err != nil {
		t.Fatalf("return b: %v", err)
	}

	summary, err := svc.StatusSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary[StatusApproved] != 1 || summary[StatusReturned] != 1 || summary[StatusWorking] != 1 {
		t.Fatalf("summary = %v", summary)
	}
}
