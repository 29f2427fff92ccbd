// Package hooks defines the per-experiment customization points consumed by
// the core controller: the network choice policy used during admission and
// the data/attention/bonus judgments applied at submission time.
package hooks

import (
	"crowdcore/pkg/domain"
	"math/rand"
)

// NetworkPolicy selects one network among the eligible experiment networks
// for an arriving participant. Eligible is never empty and is ordered by
// network creation order. Practice networks are never offered to a policy;
// they are always filled first by the allocator itself.
type NetworkPolicy interface {
	Name() string
	ChooseNetwork(eligible []domain.Network, participant domain.Participant) domain.Network
}

// Checks bundles the experiment-specific validity judgments run once a
// participant submits. Both default to accepting everything.
type Checks interface {
	// DataCheck reports whether the participant produced usable data.
	DataCheck(participant domain.Participant) bool
	// AttentionCheck reports whether the participant paid attention.
	AttentionCheck(participant domain.Participant) bool
}

// BonusFunc computes the bonus owed to an approved participant, in the labor
// market's currency unit. The zero bonus suppresses payment entirely.
type BonusFunc func(participant domain.Participant) float64

// RandomPolicy picks uniformly at random, the stock load-balancing behavior.
type RandomPolicy struct {
	// Rand allows deterministic selection in tests; nil uses the global source.
	Rand *rand.Rand
}

// Name returns the policy registry tag.
func (RandomPolicy) Name() string { return "random" }

// ChooseNetwork picks one eligible network uniformly at random.
func (p RandomPolicy) ChooseNetwork(eligible []domain.Network, _ domain.Participant) domain.Network {
	if p.Rand != nil {
		return eligible[p.Rand.Intn(len(eligible))]
	}
	return eligible[rand.Intn(len(eligible))]
}

// RoundRobinPolicy spreads participants across experiment networks by
// admitted-node count, breaking ties by creation order.
type RoundRobinPolicy struct{}

// Name returns the policy registry tag.
func (RoundRobinPolicy) Name() string { return "round_robin" }

// ChooseNetwork returns the first eligible network; combined with the
// allocator's creation-order listing this cycles admissions across networks
// as earlier ones fill.
func (RoundRobinPolicy) ChooseNetwork(eligible []domain.Network, _ domain.Participant) domain.Network {
	return eligible[0]
}

// PermissiveChecks accepts every submission. It is the default Checks
// implementation, matching experiments that define no custom validation.
type PermissiveChecks struct{}

// DataCheck always passes.
func (PermissiveChecks) DataCheck(domain.Participant) bool { return true }

// AttentionCheck always passes.
func (PermissiveChecks) AttentionCheck(domain.Participant) bool { return true }

// NoBonus is the default bonus function.
func NoBonus(domain.Participant) float64 { return 0 }
