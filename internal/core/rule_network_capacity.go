package core

import (
	"context"
	"fmt"

	"crowdcore/pkg/domain"
)

// NetworkCapacityRule blocks admissions past a network's capacity and keeps
// the full flag monotonic: once a network fills during a run it never reopens.
func NetworkCapacityRule() domain.Rule {
	return networkCapacityRule{}
}

type networkCapacityRule struct{}

func (networkCapacityRule) Name() string { return "network_capacity" }

func (networkCapacityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	checkedNetworks := map[string]struct{}{}
	for _, change := range changes {
		switch change.Entity {
		case domain.EntityNetwork:
			if change.Action != domain.ActionUpdate {
				continue
			}
			before, okBefore := change.Before.(domain.Network)
			after, okAfter := change.After.(domain.Network)
			if !okBefore || !okAfter {
				continue
			}
			if before.Full && !after.Full {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "network_capacity",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("network %s full flag cannot revert", after.ID),
					Entity:   domain.EntityNetwork,
					EntityID: after.ID,
				})
			}
			if before.MaxSize != after.MaxSize {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "network_capacity",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("network %s capacity cannot change after creation", after.ID),
					Entity:   domain.EntityNetwork,
					EntityID: after.ID,
				})
			}
		case domain.EntityNode:
			if change.Action != domain.ActionCreate {
				continue
			}
			node, ok := change.After.(domain.Node)
			if !ok {
				continue
			}
			if _, done := checkedNetworks[node.NetworkID]; done {
				continue
			}
			checkedNetworks[node.NetworkID] = struct{}{}
			network, ok := view.FindNetwork(node.NetworkID)
			if !ok {
				continue
			}
			active := 0
			for _, n := range view.NodesByNetwork(node.NetworkID) {
				if !n.Failed {
					active++
				}
			}
			if active > network.MaxSize {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "network_capacity",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("network %s holds %d active nodes over capacity %d", network.ID, active, network.MaxSize),
					Entity:   domain.EntityNetwork,
					EntityID: network.ID,
				})
			}
		}
	}
	return res, nil
}
