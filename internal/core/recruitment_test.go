package core

import (
	"context"
	"testing"
)

// Five single-slot networks (two practice, three experiment) filled by five
// participants: each completion while slots remain recruits one replacement,
// and the completion that fills the final network closes recruitment exactly
// once.
func TestRecruitmentClosesExactlyOnceWhenAllNetworksFill(t *testing.T) {
	svc, recruiter := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Setup(ctx, 2, 3, 1); err != nil {
		t.Fatalf("setup: %v", err)
	}

	refs := []string{"asgn-1", "asgn-2", "asgn-3", "asgn-4", "asgn-5"}
	for i, ref := range refs {
		p, err := svc.RegisterParticipant(ctx, ref, "w")
		if err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
		if _, ok, err := svc.AssignParticipant(ctx, p.ID); err != nil || !ok {
			t.Fatalf("assign %d: ok=%v err=%v", i, ok, err)
		}
		if err := svc.SubmissionReceived(ctx, p.ID); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	recruited, closed := recruiter.counts()
	if recruited != 4 {
		t.Fatalf("recruited = %d, want 4 (one per completion while slots remained)", recruited)
	}
	if closed != 1 {
		t.Fatalf("close recruitment fired %d times, want exactly 1", closed)
	}
	if !svc.RecruitmentClosed() {
		t.Fatalf("recruitment close flag not set")
	}
	if svc.OpenNetworksRemain() {
		t.Fatalf("expected all networks full")
	}

	// A stray late completion must not re-close or re-recruit.
	straggler, err := svc.RegisterParticipant(ctx, "asgn-6", "w")
	if err != nil {
		t.Fatalf("register straggler: %v", err)
	}
	if err := svc.AssignmentAbandoned(ctx, straggler.ID); err != nil {
		t.Fatalf("abandon straggler: %v", err)
	}
	recruited, closed = recruiter.counts()
	if recruited != 4 || closed != 1 {
		t.Fatalf("late completion changed recruitment: recruited=%d closed=%d", recruited, closed)
	}
}

func TestDisableRecruitmentSuppressesFurtherCalls(t *testing.T) {
	svc, recruiter := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Setup(ctx, 0, 2, 1); err != nil {
		t.Fatalf("setup: %v", err)
	}
	svc.DisableRecruitment()

	p, _ := svc.RegisterParticipant(ctx, "asgn-1", "w")
	if err := svc.AssignmentReturned(ctx, p.ID); err != nil {
		t.Fatalf("return: %v", err)
	}
	recruited, closed := recruiter.counts()
	if recruited != 0 || closed != 0 {
		t.Fatalf("disabled recruitment still called out: recruited=%d closed=%d", recruited, closed)
	}
}
