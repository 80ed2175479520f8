package core

import (
	"context"
	"fmt"
	"time"

	"rentcore/pkg/domain"
)

// PaymentPatch carries the fields UpdatePayment may change. Nil fields are left untouched.
type PaymentPatch struct {
	Status *domain.PaymentStatus
	Amount *float64
	PaidAt *time.Time
	Method *domain.PaymentMethod
	Notes  *string
}

// AddPayment records the payment for one contract month. A payment recorded
// as paid gets its paid time stamped and notifies the owner.
func (s *Service) AddPayment(ctx context.Context, p Payment) (Payment, Result, error) {
	var created Payment
	res, err := s.run(ctx, "add_payment", func(tx Transaction) (activity, error) {
		if err := s.check(domain.EntityPayment, p); err != nil {
			return activity{}, err
		}
		view := tx.Snapshot()
		contract, ok := view.FindContract(p.ContractID)
		if !ok {
			return activity{}, domain.NotFoundError{Entity: domain.EntityContract, ID: p.ContractID}
		}
		if p.Status == "" {
			p.Status = domain.PaymentPending
		}
		if p.Status == domain.PaymentPaid {
			p.PaidAt = stampPaid(p.PaidAt, tx.Now())
		} else {
			p.PaidAt = nil
		}
		var err error
		created, err = tx.CreatePayment(p)
		if err != nil {
			return activity{}, err
		}
		if created.Status == domain.PaymentPaid {
			if err := s.notifyPaid(tx, view, contract, created); err != nil {
				return activity{}, err
			}
		}
		return activity{domain.EntityPayment, created.ID, fmt.Sprintf("payment for %s recorded as %s", domain.MonthKey(created.Month), created.Status)}, nil
	})
	return created, res, err
}

// UpdatePayment moves a payment along pending -> overdue -> paid. Paid is
// terminal, and PaidAt is accepted only together with the move to paid.
func (s *Service) UpdatePayment(ctx context.Context, id string, patch PaymentPatch) (Payment, Result, error) {
	var updated Payment
	res, err := s.run(ctx, "update_payment", func(tx Transaction) (activity, error) {
		view := tx.Snapshot()
		current, ok := view.FindPayment(id)
		if !ok {
			return activity{}, domain.NotFoundError{Entity: domain.EntityPayment, ID: id}
		}
		target := current.Status
		if patch.Status != nil {
			target = *patch.Status
			switch target {
			case domain.PaymentPending, domain.PaymentPaid, domain.PaymentOverdue:
			default:
				return activity{}, domain.ValidationError{Entity: domain.EntityPayment, Field: "status", Reason: fmt.Sprintf("unknown status %q", target)}
			}
			if !domain.PaymentTransitionAllowed(current.Status, target) {
				return activity{}, domain.ConflictError{Entity: domain.EntityPayment, ID: id, Reason: fmt.Sprintf("cannot move from %s to %s", current.Status, target)}
			}
		}
		if current.Status == domain.PaymentPaid && (patch.Amount != nil || patch.PaidAt != nil || patch.Method != nil) {
			return activity{}, domain.ConflictError{Entity: domain.EntityPayment, ID: id, Reason: "paid payments are final"}
		}
		if patch.PaidAt != nil && target != domain.PaymentPaid {
			return activity{}, domain.ValidationError{Entity: domain.EntityPayment, Field: "paid_at", Reason: "only a paid payment carries a paid date"}
		}
		becamePaid := current.Status != domain.PaymentPaid && target == domain.PaymentPaid
		var err error
		updated, err = tx.UpdatePayment(id, func(p *Payment) error {
			p.Status = target
			if patch.Amount != nil {
				p.Amount = *patch.Amount
			}
			if patch.Method != nil {
				p.Method = *patch.Method
			}
			if patch.Notes != nil {
				p.Notes = *patch.Notes
			}
			if patch.PaidAt != nil {
				paid := *patch.PaidAt
				p.PaidAt = &paid
			}
			if becamePaid {
				p.PaidAt = stampPaid(p.PaidAt, tx.Now())
			}
			return s.check(domain.EntityPayment, *p)
		})
		if err != nil {
			return activity{}, err
		}
		if becamePaid {
			contract, _ := view.FindContract(updated.ContractID)
			if err := s.notifyPaid(tx, view, contract, updated); err != nil {
				return activity{}, err
			}
		}
		return activity{domain.EntityPayment, id, fmt.Sprintf("payment for %s is %s", domain.MonthKey(updated.Month), updated.Status)}, nil
	})
	return updated, res, err
}

func stampPaid(paidAt *time.Time, now time.Time) *time.Time {
	if paidAt != nil {
		t := *paidAt
		return &t
	}
	return &now
}

func (s *Service) notifyPaid(tx Transaction, view TransactionView, contract Contract, p Payment) error {
	property, ok := view.FindProperty(contract.PropertyID)
	if !ok {
		return nil
	}
	return notify(tx, ownerOf(view, property), domain.NotifyPaymentReceived, "Payment received",
		fmt.Sprintf("Rent for %s on %s was paid (%.2f %s)", domain.MonthKey(p.Month), property.Title, p.Amount, contract.Currency), "")
}
