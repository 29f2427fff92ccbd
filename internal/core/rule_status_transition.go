package core

import (
	"context"
	"fmt"

	"crowdcore/pkg/domain"
)

// StatusTransitionRule blocks illegal participant status transitions. Terminal
// statuses are immutable, working may move to any later state (direct
// working->approved/rejected exists for watchdog repair), and submitted may
// only be judged.
func StatusTransitionRule() domain.Rule {
	return statusTransitionRule{}
}

type statusTransitionRule struct{}

var allowedTransitions = map[domain.ParticipantStatus]map[domain.ParticipantStatus]struct{}{
	domain.StatusWorking: toStatusSet(
		domain.StatusSubmitted,
		domain.StatusAbandoned,
		domain.StatusReturned,
		domain.StatusApproved,
		domain.StatusRejected,
	),
	domain.StatusSubmitted: toStatusSet(
		domain.StatusApproved,
		domain.StatusRejected,
	),
	domain.StatusApproved:  {},
	domain.StatusRejected:  {},
	domain.StatusAbandoned: {},
	domain.StatusReturned:  {},
}

func (statusTransitionRule) Name() string { return "participant_status_transition" }

func (statusTransitionRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityParticipant {
			continue
		}
		after, ok := change.After.(domain.Participant)
		if !ok {
			continue
		}
		if _, known := allowedTransitions[after.Status]; !known {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "participant_status_transition",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("participant %s set to unknown status %s", after.ID, after.Status),
				Entity:   domain.EntityParticipant,
				EntityID: after.ID,
			})
			continue
		}
		if change.Action != domain.ActionUpdate {
			continue
		}
		before, ok := change.Before.(domain.Participant)
		if !ok || before.Status == after.Status {
			continue
		}
		if _, legal := allowedTransitions[before.Status][after.Status]; !legal {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "participant_status_transition",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("participant %s cannot move from %s to %s", after.ID, before.Status, after.Status),
				Entity:   domain.EntityParticipant,
				EntityID: after.ID,
			})
		}
	}
	return res, nil
}

func toStatusSet(statuses ...domain.ParticipantStatus) map[domain.ParticipantStatus]struct{} {
	set := make(map[domain.ParticipantStatus]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return set
}
