package core

import "rentcore/pkg/domain"

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in consistency rules.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(LifecycleTransitionRule())
	engine.Register(OccupancyConsistencyRule())
	engine.Register(PaymentUniquenessRule())
	engine.Register(ReferentialIntegrityRule())
	return engine
}
