package core

import (
	"context"
	"fmt"

	"rentcore/pkg/domain"
)

// PaymentUniquenessRule blocks a second payment for the same contract month.
func PaymentUniquenessRule() domain.Rule {
	return paymentUniquenessRule{}
}

type paymentUniquenessRule struct{}

func (paymentUniquenessRule) Name() string { return "payment_uniqueness" }

func (paymentUniquenessRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	seen := make(map[string]string)
	res := domain.Result{}
	for _, p := range view.ListPayments() {
		key := p.ContractID + "/" + domain.MonthKey(p.Month)
		if first, dup := seen[key]; dup {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "payment_uniqueness",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("payment %s duplicates %s for contract %s month %s", p.ID, first, p.ContractID, domain.MonthKey(p.Month)),
				Entity:   domain.EntityPayment,
				EntityID: p.ID,
			})
			continue
		}
		seen[key] = p.ID
	}
	return res, nil
}
