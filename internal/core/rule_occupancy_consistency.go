package core

import (
	"context"
	"fmt"

	"rentcore/pkg/domain"
)

// OccupancyConsistencyRule returns the rule keeping property occupancy aligned
// with in-force contracts: a property is occupied exactly when one contract
// binds it, and never more than one.
func OccupancyConsistencyRule() domain.Rule {
	return occupancyConsistencyRule{}
}

type occupancyConsistencyRule struct{}

func (occupancyConsistencyRule) Name() string { return "occupancy_consistency" }

func (occupancyConsistencyRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	inForce := make(map[string][]string)
	for _, c := range view.ListContracts() {
		if c.Status.InForce() {
			inForce[c.PropertyID] = append(inForce[c.PropertyID], c.ID)
		}
	}

	res := domain.Result{}
	for _, p := range view.ListProperties() {
		contracts := inForce[p.ID]
		switch {
		case len(contracts) > 1:
			res.Violations = append(res.Violations, occupancyViolation(p.ID,
				fmt.Sprintf("property %s has %d in-force contracts %v", p.ID, len(contracts), contracts)))
		case len(contracts) == 1 && p.OccupancyStatus != domain.OccupancyOccupied:
			res.Violations = append(res.Violations, occupancyViolation(p.ID,
				fmt.Sprintf("property %s is %s while contract %s is in force", p.ID, p.OccupancyStatus, contracts[0])))
		case len(contracts) == 0 && p.OccupancyStatus == domain.OccupancyOccupied:
			res.Violations = append(res.Violations, occupancyViolation(p.ID,
				fmt.Sprintf("property %s is occupied without an in-force contract", p.ID)))
		}
	}
	return res, nil
}

func occupancyViolation(propertyID, message string) domain.Violation {
	return domain.Violation{
		Rule:     "occupancy_consistency",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityProperty,
		EntityID: propertyID,
	}
}
