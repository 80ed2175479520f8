package core

import (
	"context"
	"time"

	"rentcore/pkg/domain"
)

// ContractView is a contract with its read-time status.
type ContractView struct {
	Contract
	EffectiveStatus domain.ContractStatus `json:"effective_status"`
}

// PaymentView is a payment with its read-time status.
type PaymentView struct {
	Payment
	EffectiveStatus domain.PaymentStatus `json:"effective_status"`
}

// TenantOverview gathers what a tenant sees about their tenancy.
type TenantOverview struct {
	Tenant   Tenant               `json:"tenant"`
	Contract *ContractView        `json:"contract,omitempty"`
	Property *Property            `json:"property,omitempty"`
	Payments []PaymentView        `json:"payments"`
	Schedule []domain.Installment `json:"schedule"`
	Tickets  []Ticket             `json:"tickets"`
	AsOf     time.Time            `json:"as_of"`
}

// OwnerDashboard summarises an owner's portfolio.
type OwnerDashboard struct {
	OwnerID              string                         `json:"owner_id,omitempty"`
	Properties           int                            `json:"properties"`
	PropertiesByStatus   map[domain.OccupancyStatus]int `json:"properties_by_status"`
	Contracts            int                            `json:"contracts"`
	ActiveContracts      int                            `json:"active_contracts"`
	ExpiredContracts     int                            `json:"expired_contracts"`
	MonthlyIncome        float64                        `json:"monthly_income"`
	PendingPayments      int                            `json:"pending_payments"`
	OverduePayments      int                            `json:"overdue_payments"`
	OpenTickets          int                            `json:"open_tickets"`
	InProgressTickets    int                            `json:"in_progress_tickets"`
	OccupancyRatePercent float64                        `json:"occupancy_rate_percent"`
	AsOf                 time.Time                      `json:"as_of"`
}

// PlatformStats is the super-admin view across all owners.
type PlatformStats struct {
	Owners              int            `json:"owners"`
	Tenants             int            `json:"tenants"`
	Contractors         int            `json:"contractors"`
	UnreadNotifications int            `json:"unread_notifications"`
	Dashboard           OwnerDashboard `json:"dashboard"`
}

// TenantOverview returns the tenant, their current contract and property,
// payments with derived statuses, the full installment schedule, and tickets
// raised on that property. It is recomputed from a fresh snapshot on every call.
func (s *Service) TenantOverview(ctx context.Context, tenantID string) (TenantOverview, error) {
	now := s.clock.Now()
	var out TenantOverview
	err := s.store.View(ctx, func(view TransactionView) error {
		tenant, ok := view.FindTenant(tenantID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityTenant, ID: tenantID}
		}
		out = TenantOverview{Tenant: tenant, Payments: []PaymentView{}, Tickets: []Ticket{}, AsOf: now}
		contract, ok := currentContract(view, tenantID)
		if !ok {
			return nil
		}
		out.Contract = &ContractView{Contract: contract, EffectiveStatus: domain.EffectiveContractStatus(contract, now)}
		if property, ok := view.FindProperty(contract.PropertyID); ok {
			property.OccupancyStatus = effectiveOccupancy(view, property, now)
			out.Property = &property
		}
		var payments []Payment
		for _, p := range view.ListPayments() {
			if p.ContractID != contract.ID {
				continue
			}
			payments = append(payments, p)
			out.Payments = append(out.Payments, PaymentView{Payment: p, EffectiveStatus: domain.EffectivePaymentStatus(p, contract, now)})
		}
		out.Schedule = domain.PaymentSchedule(contract, payments, now)
		for _, t := range view.ListTickets() {
			if t.TenantID == tenantID && t.PropertyID == contract.PropertyID {
				out.Tickets = append(out.Tickets, t)
			}
		}
		return nil
	})
	return out, err
}

// currentContract picks the tenant's in-force contract, or failing that the most recently started one.
func currentContract(view TransactionView, tenantID string) (Contract, bool) {
	var best Contract
	found := false
	for _, c := range view.ListContracts() {
		if c.TenantID != tenantID {
			continue
		}
		switch {
		case !found:
			best, found = c, true
		case c.Status.InForce() && !best.Status.InForce():
			best = c
		case c.Status.InForce() == best.Status.InForce() && c.StartDate.After(best.StartDate):
			best = c
		}
	}
	return best, found
}

// OwnerDashboard aggregates the portfolio of ownerID, or of every owner when ownerID is empty.
func (s *Service) OwnerDashboard(ctx context.Context, ownerID string) (OwnerDashboard, error) {
	now := s.clock.Now()
	var out OwnerDashboard
	err := s.store.View(ctx, func(view TransactionView) error {
		if ownerID != "" {
			if _, ok := view.FindOwner(ownerID); !ok {
				return domain.NotFoundError{Entity: domain.EntityOwner, ID: ownerID}
			}
		}
		out = dashboard(view, ownerID, now)
		return nil
	})
	return out, err
}

func dashboard(view TransactionView, ownerID string, now time.Time) OwnerDashboard {
	out := OwnerDashboard{
		OwnerID: ownerID,
		PropertiesByStatus: map[domain.OccupancyStatus]int{
			domain.OccupancyAvailable:   0,
			domain.OccupancyOccupied:    0,
			domain.OccupancyMaintenance: 0,
		},
		AsOf: now,
	}
	owned := make(map[string]struct{})
	for _, p := range view.ListProperties() {
		if ownerID != "" && p.OwnerID != ownerID {
			continue
		}
		owned[p.ID] = struct{}{}
		out.Properties++
		out.PropertiesByStatus[effectiveOccupancy(view, p, now)]++
	}

	contracts := make(map[string]Contract)
	for _, c := range view.ListContracts() {
		if _, ok := owned[c.PropertyID]; !ok {
			continue
		}
		contracts[c.ID] = c
		out.Contracts++
		switch domain.EffectiveContractStatus(c, now) {
		case domain.ContractActive, domain.ContractRenewed:
			out.ActiveContracts++
		case domain.ContractExpired:
			out.ExpiredContracts++
		}
	}

	thisMonth := domain.MonthKey(now)
	for _, p := range view.ListPayments() {
		c, ok := contracts[p.ContractID]
		if !ok {
			continue
		}
		switch domain.EffectivePaymentStatus(p, c, now) {
		case domain.PaymentPaid:
			if p.PaidAt != nil && domain.MonthKey(*p.PaidAt) == thisMonth {
				out.MonthlyIncome += p.Amount
			}
		case domain.PaymentPending:
			out.PendingPayments++
		case domain.PaymentOverdue:
			out.OverduePayments++
		}
	}

	for _, t := range view.ListTickets() {
		if _, ok := owned[t.PropertyID]; !ok {
			continue
		}
		switch t.Status {
		case domain.TicketOpen:
			out.OpenTickets++
		case domain.TicketInProgress:
			out.InProgressTickets++
		}
	}

	if out.Properties > 0 {
		out.OccupancyRatePercent = float64(out.PropertiesByStatus[domain.OccupancyOccupied]) * 100 / float64(out.Properties)
	}
	return out
}

// PlatformStats returns platform-wide totals for the super-admin.
func (s *Service) PlatformStats(ctx context.Context) (PlatformStats, error) {
	now := s.clock.Now()
	var out PlatformStats
	err := s.store.View(ctx, func(view TransactionView) error {
		out = PlatformStats{
			Owners:      len(view.ListOwners()),
			Tenants:     len(view.ListTenants()),
			Contractors: len(view.ListContractors()),
			Dashboard:   dashboard(view, "", now),
		}
		for _, n := range view.ListNotifications() {
			if !n.Read {
				out.UnreadNotifications++
			}
		}
		return nil
	})
	return out, err
}
