package core

import (
	"context"
	"testing"
)

func TestAssignParticipantFillsPracticeFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Setup(ctx, 1, 2, 2); err != nil {
		t.Fatalf("setup: %v", err)
	}
	networks := svc.Store().ListNetworks()
	practiceID := networks[0].ID

	p, err := svc.RegisterParticipant(ctx, "asgn-1", "w-1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	node, ok, err := svc.AssignParticipant(ctx, p.ID)
	if err != nil || !ok {
		t.Fatalf("assign: ok=%v err=%v", ok, err)
	}
	if node.NetworkID != practiceID {
		t.Fatalf("assigned to %s, want practice network %s", node.NetworkID, practiceID)
	}
}

func TestAssignParticipantSkipsParticipatedNetworks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Setup(ctx, 0, 2, 5); err != nil {
		t.Fatalf("setup: %v", err)
	}
	p, err := svc.RegisterParticipant(ctx, "asgn-1", "w-1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	first, ok, err := svc.AssignParticipant(ctx, p.ID)
	if err != nil || !ok {
		t.Fatalf("first assign: ok=%v err=%v", ok, err)
	}
	second, ok, err := svc.AssignParticipant(ctx, p.ID)
	if err != nil || !ok {
		t.Fatalf("second assign: ok=%v err=%v", ok, err)
	}
	if second.NetworkID == first.NetworkID {
		t.Fatalf("participant re-admitted to network %s", first.NetworkID)
	}
	if _, ok, err := svc.AssignParticipant(ctx, p.ID); err != nil || ok {
		t.Fatalf("third assign should find nothing eligible: ok=%v err=%v", ok, err)
	}
}

func TestAssignParticipantFlipsFullOnLastSlot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Setup(ctx, 0, 1, 2); err != nil {
		t.Fatalf("setup: %v", err)
	}
	networkID := svc.Store().ListNetworks()[0].ID

	for i, ref := range []string{"asgn-1", "asgn-2"} {
		p, err := svc.RegisterParticipant(ctx, ref, "w")
		if err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
		if _, ok, err := svc.AssignParticipant(ctx, p.ID); err != nil || !ok {
			t.Fatalf("assign %d: ok=%v err=%v", i, ok, err)
		}
		network, _ := svc.Store().GetNetwork(networkID)
		wantFull := i == 1
		if network.Full != wantFull {
			t.Fatalf("after admission %d full = %v, want %v", i, network.Full, wantFull)
		}
	}

	late, err := svc.RegisterParticipant(ctx, "asgn-3", "w")
	if err != nil {
		t.Fatalf("register late: %v", err)
	}
	if _, ok, err := svc.AssignParticipant(ctx, late.ID); err != nil || ok {
		t.Fatalf("full network should not admit: ok=%v err=%v", ok, err)
	}
}

func TestAssignParticipantRejectsTerminalParticipant(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Setup(ctx, 0, 1, 5); err != nil {
		t.Fatalf("setup: %v", err)
	}
	p, err := svc.RegisterParticipant(ctx, "asgn-1", "w-1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.AssignmentAbandoned(ctx, p.ID); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if _, ok, err := svc.AssignParticipant(ctx, p.ID); err != nil || ok {
		t.Fatalf("terminal participant admitted: ok=%v err=%v", ok, err)
	}
	if _, _, err := svc.AssignParticipant(ctx, "missing"); err == nil {
		t.Fatalf("expected error for unknown participant")
	}
}
