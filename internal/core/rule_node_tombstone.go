package core

import (
	"context"
	"fmt"

	"crowdcore/pkg/domain"
)

// NodeTombstoneRule enforces that node failure is one-way and that a node's
// membership never moves between participants or networks.
func NodeTombstoneRule() domain.Rule {
	return nodeTombstoneRule{}
}

type nodeTombstoneRule struct{}

func (nodeTombstoneRule) Name() string { return "node_tombstone" }

func (nodeTombstoneRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityNode || change.Action != domain.ActionUpdate {
			continue
		}
		before, okBefore := change.Before.(domain.Node)
		after, okAfter := change.After.(domain.Node)
		if !okBefore || !okAfter {
			continue
		}
		if before.Failed && !after.Failed {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "node_tombstone",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("node %s cannot be unfailed", after.ID),
				Entity:   domain.EntityNode,
				EntityID: after.ID,
			})
		}
		if before.ParticipantID != after.ParticipantID || before.NetworkID != after.NetworkID {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "node_tombstone",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("node %s membership is immutable", after.ID),
				Entity:   domain.EntityNode,
				EntityID: after.ID,
			})
		}
	}
	return res, nil
}
