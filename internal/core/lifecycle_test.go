package core

import (
	"context"
	"testing"

	"crowdcore/pkg/domain"
)

type scriptedChecks struct {
	attention bool
	data      bool
}

func (c scriptedChecks) DataCheck(domain.Participant) bool      { return c.data }
func (c scriptedChecks) AttentionCheck(domain.Participant) bool { return c.attention }

func TestSubmissionReceivedApprovesAndSettles(t *testing.T) {
	svc, recruiter := newTestService(t, WithBonus(func(domain.Participant) float64 { return 2.5 }))
	ctx := context.Background()
	if _, err := svc.Setup(ctx, 0, 2, 5); err != nil {
		t.Fatalf("setup: %v", err)
	}
	p, err := svc.RegisterParticipant(ctx, "asgn-1", "w-1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, ok, err := svc.AssignParticipant(ctx, p.ID); err != nil || !ok {
		t.Fatalf("assign: ok=%v err=%v", ok, err)
	}

	if err := svc.SubmissionReceived(ctx, p.ID); err != nil {
		t.Fatalf("submission: %v", err)
	}
	got, _ := svc.Store().GetParticipant(p.ID)
	if got.Status != StatusApproved || got.EndTime == nil || got.BadData {
		t.Fatalf("participant = %+v", got)
	}
	if len(recruiter.approved) != 1 || recruiter.approved[0] != "asgn-1" {
		t.Fatalf("approved = %v", recruiter.approved)
	}
	if len(recruiter.bonuses) != 1 || recruiter.bonuses[0].amount != 2.5 {
		t.Fatalf("bonuses = %v", recruiter.bonuses)
	}
	if recruited, _ := recruiter.counts(); recruited != 1 {
		t.Fatalf("recruited = %d, want 1 replacement", recruited)
	}
	for _, n := range svc.Store().ListNodes() {
		if n.ParticipantID == p.ID && n.Failed {
			t.Fatalf("approved participant's node was failed")
		}
	}
}

func TestSubmissionReceivedRejectsOnAttentionFailure(t *testing.T) {
	svc, recruiter := newTestService(t, WithChecks(scriptedChecks{attention: false, data: true}))
	ctx := context.Background()
	if _, err := svc.Setup(ctx, 0, 1, 5); err != nil {
		t.Fatalf("setup: %v", err)
	}
	p, _ := svc.RegisterParticipant(ctx, "asgn-1", "w-1")
	if _, ok, err := svc.AssignParticipant(ctx, p.ID); err != nil || !ok {
		t.Fatalf("assign: ok=%v err=%v", ok, err)
	}

	if err := svc.SubmissionReceived(ctx, p.ID); err != nil {
		t.Fatalf("submission: %v", err)
	}
	got, _ := svc.Store().GetParticipant(p.ID)
	if got.Status != StatusRejected {
		t.Fatalf("status = %s, want rejected", got.Status)
	}
	if got.BadData {
		t.Fatalf("attention failure should not set bad data")
	}
	for _, n := range svc.Store().ListNodes() {
		if n.ParticipantID == p.ID && !n.Failed {
			t.Fatalf("rejected participant's nodes must be failed")
		}
	}
	if len(recruiter.approved) != 0 {
		t.Fatalf("rejected participant must not be approved externally")
	}
	if recruited, _ := recruiter.counts(); recruited != 1 {
		t.Fatalf("recruited = %d, want 1 replacement", recruited)
	}
}

func TestSubmissionReceivedFlagsBadDataOnDataFailure(t *testing.T) {
	svc, _ := newTestService(t, WithChecks(scriptedChecks{attention: true, data: false}))
	ctx := context.Background()
	if _, err := svc.Setup(ctx, 0, 1, 5); err != nil {
		t.Fatalf("setup: %v", err)
	}
	p, _ := svc.RegisterParticipant(ctx, "asgn-1", "w-1")

	if err := svc.SubmissionReceived(ctx, p.ID); err != nil {
		t.Fatalf("submission: %v", err)
	}
	got, _ := svc.Store().GetParticipant(p.ID)
	if got.Status != StatusRejected || !got.BadData {
		t.Fatalf("participant = %+v, want rejected with bad data", got)
	}
}

func TestSubmissionReceivedIgnoresLateDuplicates(t *testing.T) {
	svc, recruiter := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Setup(ctx, 0, 1, 5); err != nil {
		t.Fatalf("setup: %v", err)
	}
	p, _ := svc.RegisterParticipant(ctx, "asgn-1", "w-1")
	if err := svc.SubmissionReceived(ctx, p.ID); err != nil {
		t.Fatalf("first submission: %v", err)
	}
	approvedBefore := len(recruiter.approved)
	recruitedBefore, _ := recruiter.counts()

	if err := svc.SubmissionReceived(ctx, p.ID); err != nil {
		t.Fatalf("duplicate submission: %v", err)
	}
	got, _ := svc.Store().GetParticipant(p.ID)
	if got.Status != StatusApproved {
		t.Fatalf("status = %s, duplicate must not overwrite terminal", got.Status)
	}
	if len(recruiter.approved) != approvedBefore {
		t.Fatalf("duplicate triggered external approval")
	}
	if recruited, _ := recruiter.counts(); recruited != recruitedBefore {
		t.Fatalf("duplicate triggered recruitment")
	}
}

func TestFailParticipantIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Setup(ctx, 0, 2, 5); err != nil {
		t.Fatalf("setup: %v", err)
	}
	p, _ := svc.RegisterParticipant(ctx, "asgn-1", "w-1")
	if _, ok, err := svc.AssignParticipant(ctx, p.ID); err != nil || !ok {
		t.Fatalf("assign: ok=%v err=%v", ok, err)
	}
	if _, ok, err := svc.AssignParticipant(ctx, p.ID); err != nil || !ok {
		t.Fatalf("assign second: ok=%v err=%v", ok, err)
	}

	if err := svc.FailParticipant(ctx, p.ID); err != nil {
		t.Fatalf("fail: %v", err)
	}
	var failedAt []int64
	for _, n := range svc.Store().ListNodes() {
		if !n.Failed || n.FailedAt == nil {
			t.Fatalf("node %s not failed", n.ID)
		}
		failedAt = append(failedAt, n.FailedAt.UnixNano())
	}
	if len(failedAt) != 2 {
		t.Fatalf("nodes = %d, want 2", len(failedAt))
	}

	if err := svc.FailParticipant(ctx, p.ID); err != nil {
		t.Fatalf("second fail: %v", err)
	}
	for i, n := range svc.Store().ListNodes() {
		if n.FailedAt.UnixNano() != failedAt[i] {
			t.Fatalf("failed timestamp rewritten on repeat fail")
		}
	}

	if err := svc.FailParticipant(ctx, "missing"); err == nil {
		t.Fatalf("expected error for unknown participant")
	}
}

func TestMarkBadDataStampsEndTimeWhileOpen(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Setup(ctx, 0, 1, 5); err != nil {
		t.Fatalf("setup: %v", err)
	}
	p, _ := svc.RegisterParticipant(ctx, "asgn-1", "w-1")
	if _, ok, err := svc.AssignParticipant(ctx, p.ID); err != nil || !ok {
		t.Fatalf("assign: ok=%v err=%v", ok, err)
	}

	if err := svc.MarkBadData(ctx, p.ID); err != nil {
		t.Fatalf("mark bad data: %v", err)
	}
	got, _ := svc.Store().GetParticipant(p.ID)
	if !got.BadData || got.EndTime == nil {
		t.Fatalf("participant = %+v", got)
	}
	if got.Status != StatusWorking {
		t.Fatalf("bad data must not change status, got %s", got.Status)
	}
	for _, n := range svc.Store().ListNodes() {
		if n.ParticipantID == p.ID && !n.Failed {
			t.Fatalf("bad data must cascade node failure")
		}
	}
}

func TestRepairStatusWritesTerminalOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Setup(ctx, 0, 1, 5); err != nil {
		t.Fatalf("setup: %v", err)
	}
	p, _ := svc.RegisterParticipant(ctx, "asgn-1", "w-1")
	if _, ok, err := svc.AssignParticipant(ctx, p.ID); err != nil || !ok {
		t.Fatalf("assign: ok=%v err=%v", ok, err)
	}

	if err := svc.RepairStatus(ctx, p.ID, StatusWorking); err == nil {
		t.Fatalf("non-terminal repair must be rejected")
	}
	if err := svc.RepairStatus(ctx, p.ID, StatusRejected); err != nil {
		t.Fatalf("repair: %v", err)
	}
	got, _ := svc.Store().GetParticipant(p.ID)
	if got.Status != StatusRejected || got.EndTime == nil {
		t.Fatalf("participant = %+v", got)
	}
	for _, n := range svc.Store().ListNodes() {
		if n.ParticipantID == p.ID && !n.Failed {
			t.Fatalf("rejected repair must cascade node failure")
		}
	}

	if err := svc.RepairStatus(ctx, p.ID, StatusApproved); err != nil {
		t.Fatalf("repeat repair: %v", err)
	}
	got, _ = svc.Store().GetParticipant(p.ID)
	if got.Status != StatusRejected {
		t.Fatalf("terminal status overwritten by repeat repair: %s", got.Status)
	}
}
