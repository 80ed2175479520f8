package core

import (
	"context"
	"fmt"

	"rentcore/pkg/domain"
)

// ReferentialIntegrityRule ensures contracts, payments and tickets reference existing parents.
// Closed history may outlive its tenant or contractor.
func ReferentialIntegrityRule() domain.Rule {
	return referentialIntegrityRule{}
}

type referentialIntegrityRule struct{}

func (referentialIntegrityRule) Name() string { return "referential_integrity" }

func (referentialIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, c := range view.ListContracts() {
		if _, ok := view.FindProperty(c.PropertyID); !ok {
			res.Violations = append(res.Violations, integrityViolation(domain.EntityContract, c.ID,
				fmt.Sprintf("contract %s references missing property %s", c.ID, c.PropertyID)))
		}
		if _, ok := view.FindTenant(c.TenantID); !ok && c.Status.InForce() {
			res.Violations = append(res.Violations, integrityViolation(domain.EntityContract, c.ID,
				fmt.Sprintf("contract %s references missing tenant %s", c.ID, c.TenantID)))
		}
	}
	for _, p := range view.ListPayments() {
		if _, ok := view.FindContract(p.ContractID); !ok {
			res.Violations = append(res.Violations, integrityViolation(domain.EntityPayment, p.ID,
				fmt.Sprintf("payment %s references missing contract %s", p.ID, p.ContractID)))
		}
	}
	for _, t := range view.ListTickets() {
		if _, ok := view.FindProperty(t.PropertyID); !ok {
			res.Violations = append(res.Violations, integrityViolation(domain.EntityTicket, t.ID,
				fmt.Sprintf("ticket %s references missing property %s", t.ID, t.PropertyID)))
		}
		if t.ContractorID != nil && t.Status != domain.TicketClosed {
			if _, ok := view.FindContractor(*t.ContractorID); !ok {
				res.Violations = append(res.Violations, integrityViolation(domain.EntityTicket, t.ID,
					fmt.Sprintf("ticket %s references missing contractor %s", t.ID, *t.ContractorID)))
			}
		}
	}
	return res, nil
}

func integrityViolation(entity domain.EntityType, id, message string) domain.Violation {
	return domain.Violation{
		Rule:     "referential_integrity",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   entity,
		EntityID: id,
	}
}
