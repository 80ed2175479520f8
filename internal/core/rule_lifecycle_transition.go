package core

import (
	"context"
	"fmt"

	"rentcore/pkg/domain"
)

// LifecycleTransitionRule blocks unknown states and illegal state transitions on stateful entities.
func LifecycleTransitionRule() domain.Rule {
	return lifecycleTransitionRule{}
}

type lifecycleTransitionRule struct{}

type lifecycleMachine struct {
	entity    domain.EntityType
	label     string
	terminal  map[string]struct{}
	valid     map[string]struct{}
	allowed   func(from, to string) bool
	extractor func(payload domain.ChangePayload) (id string, state string, ok bool)
}

var lifecycleMachines = map[domain.EntityType]lifecycleMachine{
	domain.EntityProperty: {
		entity: domain.EntityProperty,
		label:  "property",
		valid: toSet(
			string(domain.OccupancyAvailable),
			string(domain.OccupancyOccupied),
			string(domain.OccupancyMaintenance),
		),
		extractor: func(payload domain.ChangePayload) (string, string, bool) {
			p, ok := domain.DecodePayload[domain.Property](payload)
			if !ok {
				return "", "", false
			}
			return p.ID, string(p.OccupancyStatus), true
		},
	},
	domain.EntityContract: {
		entity:   domain.EntityContract,
		label:    "contract",
		terminal: toSet(string(domain.ContractExpired), string(domain.ContractTerminated)),
		valid: toSet(
			string(domain.ContractActive),
			string(domain.ContractRenewed),
			string(domain.ContractExpired),
			string(domain.ContractTerminated),
		),
		allowed: func(from, to string) bool {
			return !(from == string(domain.ContractRenewed) && to == string(domain.ContractActive))
		},
		extractor: func(payload domain.ChangePayload) (string, string, bool) {
			c, ok := domain.DecodePayload[domain.Contract](payload)
			if !ok {
				return "", "", false
			}
			return c.ID, string(c.Status), true
		},
	},
	domain.EntityPayment: {
		entity:   domain.EntityPayment,
		label:    "payment",
		terminal: toSet(string(domain.PaymentPaid)),
		valid: toSet(
			string(domain.PaymentPending),
			string(domain.PaymentPaid),
			string(domain.PaymentOverdue),
		),
		allowed: func(from, to string) bool {
			return domain.PaymentTransitionAllowed(domain.PaymentStatus(from), domain.PaymentStatus(to))
		},
		extractor: func(payload domain.ChangePayload) (string, string, bool) {
			p, ok := domain.DecodePayload[domain.Payment](payload)
			if !ok {
				return "", "", false
			}
			return p.ID, string(p.Status), true
		},
	},
	domain.EntityTicket: {
		entity:   domain.EntityTicket,
		label:    "ticket",
		terminal: toSet(string(domain.TicketClosed)),
		valid: toSet(
			string(domain.TicketOpen),
			string(domain.TicketInProgress),
			string(domain.TicketClosed),
		),
		allowed: func(from, to string) bool {
			return domain.TicketTransitionAllowed(domain.TicketStatus(from), domain.TicketStatus(to))
		},
		extractor: func(payload domain.ChangePayload) (string, string, bool) {
			t, ok := domain.DecodePayload[domain.Ticket](payload)
			if !ok {
				return "", "", false
			}
			return t.ID, string(t.Status), true
		},
	},
}

func (lifecycleTransitionRule) Name() string { return "lifecycle_transition" }

func (lifecycleTransitionRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		machine, ok := lifecycleMachines[change.Entity]
		if !ok {
			continue
		}

		afterID, afterState, ok := machine.extractor(change.After)
		if !ok {
			continue
		}
		if _, valid := machine.valid[afterState]; !valid {
			res.Violations = append(res.Violations, lifecycleViolation(machine, afterID,
				fmt.Sprintf("%s %s is set to invalid state %q", machine.label, afterID, afterState)))
			continue
		}

		_, beforeState, ok := machine.extractor(change.Before)
		if !ok || beforeState == afterState {
			continue
		}
		if _, terminal := machine.terminal[beforeState]; terminal {
			res.Violations = append(res.Violations, lifecycleViolation(machine, afterID,
				fmt.Sprintf("cannot move %s %s from terminal state %s to %s", machine.label, afterID, beforeState, afterState)))
			continue
		}
		if machine.allowed != nil && !machine.allowed(beforeState, afterState) {
			res.Violations = append(res.Violations, lifecycleViolation(machine, afterID,
				fmt.Sprintf("cannot move %s %s from %s back to %s", machine.label, afterID, beforeState, afterState)))
		}
	}
	return res, nil
}

func lifecycleViolation(machine lifecycleMachine, id, message string) domain.Violation {
	return domain.Violation{
		Rule:     "lifecycle_transition",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   machine.entity,
		EntityID: id,
	}
}

func toSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
