package domain

import "testing"

func TestParticipantStatusTerminal(t *testing.T) {
	open := []ParticipantStatus{StatusWorking, StatusSubmitted}
	for _, s := range open {
		if s.Terminal() {
			t.Fatalf("expected %s to be open", s)
		}
	}
	terminal := []ParticipantStatus{StatusApproved, StatusRejected, StatusAbandoned, StatusReturned}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
		if (Participant{Status: s}).Open() {
			t.Fatalf("expected participant with status %s to be closed", s)
		}
	}
}

func TestResultMergeAndBlocking(t *testing.T) {
	var r Result
	r.Merge(Result{})
	if len(r.Violations) != 0 {
		t.Fatalf("expected empty result after merging empty")
	}
	r.Merge(Result{Violations: []Violation{{Rule: "warned", Severity: SeverityWarn}}})
	if r.HasBlocking() {
		t.Fatalf("warn severity must not block")
	}
	r.Merge(Result{Violations: []Violation{{Rule: "blocked", Severity: SeverityBlock}}})
	if !r.HasBlocking() {
		t.Fatalf("expected blocking result")
	}
	if (RuleViolationError{Result: r}).Error() == "" {
		t.Fatalf("expected error message")
	}
}
