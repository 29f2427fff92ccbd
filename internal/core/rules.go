package core

import "crowdcore/pkg/domain"

// NewDefaultRulesEngine returns a rules engine with the stock lifecycle
// invariants registered.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(StatusTransitionRule())
	engine.Register(NetworkCapacityRule())
	engine.Register(NodeTombstoneRule())
	return engine
}
