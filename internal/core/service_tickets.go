package core

import (
	"context"
	"fmt"
	"time"

	"rentcore/pkg/domain"
)

// TicketPatch carries the fields UpdateTicket may change. ContractorID set to
// an empty string unassigns the contractor. ConfirmClose allows closing a
// ticket that has no invoice.
type TicketPatch struct {
	Status        *domain.TicketStatus
	ContractorID  *string
	InvoiceURL    *string
	Urgency       *domain.Urgency
	EstimatedCost *float64
	Description   *string
	ConfirmClose  bool
}

// repeatsClose reports whether the patch closes t again and every other field
// it carries already holds the stored value.
func (p TicketPatch) repeatsClose(t Ticket) bool {
	if p.Status == nil || *p.Status != domain.TicketClosed {
		return false
	}
	if p.ContractorID != nil {
		stored := ""
		if t.ContractorID != nil {
			stored = *t.ContractorID
		}
		if *p.ContractorID != stored {
			return false
		}
	}
	return (p.InvoiceURL == nil || *p.InvoiceURL == t.InvoiceURL) &&
		(p.Urgency == nil || *p.Urgency == t.Urgency) &&
		(p.EstimatedCost == nil || *p.EstimatedCost == t.EstimatedCost) &&
		(p.Description == nil || *p.Description == t.Description)
}

// AddTicket opens a maintenance ticket. The tenant must hold an in-force
// contract on the property.
func (s *Service) AddTicket(ctx context.Context, t Ticket) (Ticket, Result, error) {
	var created Ticket
	res, err := s.run(ctx, "add_ticket", func(tx Transaction) (activity, error) {
		if t.Urgency == "" {
			t.Urgency = s.defaultUrgency
		}
		if err := s.check(domain.EntityTicket, t); err != nil {
			return activity{}, err
		}
		view := tx.Snapshot()
		property, ok := view.FindProperty(t.PropertyID)
		if !ok {
			return activity{}, domain.NotFoundError{Entity: domain.EntityProperty, ID: t.PropertyID}
		}
		if !tenantHoldsContract(view, t.TenantID, t.PropertyID, tx.Now()) {
			return activity{}, domain.AuthorizationError{ActorID: t.TenantID, Reason: "no active contract on property " + t.PropertyID}
		}
		if t.ContractorID != nil {
			if _, ok := view.FindContractor(*t.ContractorID); !ok {
				return activity{}, domain.NotFoundError{Entity: domain.EntityContractor, ID: *t.ContractorID}
			}
		}
		t.Status = domain.TicketOpen
		t.ClosedAt = nil
		if t.Currency == "" {
			t.Currency = property.Currency
		}
		var err error
		created, err = tx.CreateTicket(t)
		if err != nil {
			return activity{}, err
		}
		if err := notify(tx, ownerOf(view, property), domain.NotifyTicketCreated, "New maintenance ticket",
			fmt.Sprintf("%s (%s urgency) on %s", created.Title, created.Urgency, property.Title), ""); err != nil {
			return activity{}, err
		}
		return activity{domain.EntityTicket, created.ID, "ticket " + created.Title + " opened"}, nil
	})
	return created, res, err
}

// tenantHoldsContract reports whether an unexpired in-force contract links tenant and property.
func tenantHoldsContract(view domain.RuleView, tenantID, propertyID string, now time.Time) bool {
	for _, c := range view.ListContracts() {
		if c.PropertyID == propertyID && c.TenantID == tenantID && domain.EffectiveContractStatus(c, now).InForce() {
			return true
		}
	}
	return false
}

// UpdateTicket applies patch to a ticket. Status only moves forward; closing
// needs an invoice or ConfirmClose. Repeating a close with values the closed
// ticket already holds is a no-op, while any other change to a closed ticket
// is a conflict.
func (s *Service) UpdateTicket(ctx context.Context, id string, patch TicketPatch) (Ticket, Result, error) {
	var updated Ticket
	res, err := s.run(ctx, "update_ticket", func(tx Transaction) (activity, error) {
		view := tx.Snapshot()
		current, ok := view.FindTicket(id)
		if !ok {
			return activity{}, domain.NotFoundError{Entity: domain.EntityTicket, ID: id}
		}
		if current.Status == domain.TicketClosed {
			if patch.repeatsClose(current) {
				updated = current
				return activity{}, nil
			}
			return activity{}, domain.ConflictError{Entity: domain.EntityTicket, ID: id, Reason: "ticket is closed"}
		}

		target := current.Status
		if patch.Status != nil {
			target = *patch.Status
			if domain.TicketRank(target) < 0 {
				return activity{}, domain.ValidationError{Entity: domain.EntityTicket, Field: "status", Reason: fmt.Sprintf("unknown status %q", target)}
			}
			if !domain.TicketTransitionAllowed(current.Status, target) {
				return activity{}, domain.ConflictError{Entity: domain.EntityTicket, ID: id, Reason: fmt.Sprintf("cannot move from %s back to %s", current.Status, target)}
			}
		}
		if patch.Urgency != nil && !patch.Urgency.Valid() {
			return activity{}, domain.ValidationError{Entity: domain.EntityTicket, Field: "urgency", Reason: fmt.Sprintf("unknown urgency %q", *patch.Urgency)}
		}
		if patch.ContractorID != nil && *patch.ContractorID != "" {
			if _, ok := view.FindContractor(*patch.ContractorID); !ok {
				return activity{}, domain.NotFoundError{Entity: domain.EntityContractor, ID: *patch.ContractorID}
			}
		}
		if target == domain.TicketClosed {
			invoice := current.InvoiceURL
			if patch.InvoiceURL != nil {
				invoice = *patch.InvoiceURL
			}
			if invoice == "" && !patch.ConfirmClose {
				return activity{}, domain.ValidationError{Entity: domain.EntityTicket, Field: "invoice_url", Reason: "closing requires an invoice or explicit confirmation"}
			}
		}

		now := tx.Now()
		var err error
		updated, err = tx.UpdateTicket(id, func(t *Ticket) error {
			t.Status = target
			if patch.ContractorID != nil {
				if *patch.ContractorID == "" {
					t.ContractorID = nil
				} else {
					cid := *patch.ContractorID
					t.ContractorID = &cid
				}
			}
			if patch.InvoiceURL != nil {
				t.InvoiceURL = *patch.InvoiceURL
			}
			if patch.Urgency != nil {
				t.Urgency = *patch.Urgency
			}
			if patch.EstimatedCost != nil {
				t.EstimatedCost = *patch.EstimatedCost
			}
			if patch.Description != nil {
				t.Description = *patch.Description
			}
			if target == domain.TicketClosed {
				t.ClosedAt = &now
			}
			return s.check(domain.EntityTicket, *t)
		})
		if err != nil {
			return activity{}, err
		}
		if target != current.Status {
			if err := notify(tx, updated.TenantID, domain.NotifyTicketStatus, "Ticket update",
				fmt.Sprintf("%s is now %s", updated.Title, updated.Status), ""); err != nil {
				return activity{}, err
			}
		}
		return activity{domain.EntityTicket, id, fmt.Sprintf("ticket %s is %s", updated.Title, updated.Status)}, nil
	})
	return updated, res, err
}
