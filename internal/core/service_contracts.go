package core

import (
	"context"
	"time"

	"rentcore/pkg/domain"
)

// AddContract binds a tenant to a vacant property. The contract starts active
// and the property becomes occupied in the same transaction.
func (s *Service) AddContract(ctx context.Context, c Contract) (Contract, Result, error) {
	var created Contract
	res, err := s.run(ctx, "add_contract", func(tx Transaction) (activity, error) {
		if err := s.check(domain.EntityContract, c); err != nil {
			return activity{}, err
		}
		view := tx.Snapshot()
		if _, ok := view.FindProperty(c.PropertyID); !ok {
			return activity{}, domain.NotFoundError{Entity: domain.EntityProperty, ID: c.PropertyID}
		}
		if _, ok := view.FindTenant(c.TenantID); !ok {
			return activity{}, domain.NotFoundError{Entity: domain.EntityTenant, ID: c.TenantID}
		}
		if !c.EndDate.After(c.StartDate) {
			return activity{}, domain.ConflictError{Entity: domain.EntityContract, Reason: "end date must be after start date"}
		}
		now := tx.Now()
		if err := releaseLapsed(tx, c.PropertyID); err != nil {
			return activity{}, err
		}
		if existing, ok := findInForce(view, c.PropertyID, now); ok {
			return activity{}, domain.ConflictError{Entity: domain.EntityProperty, ID: c.PropertyID, Reason: "already under contract " + existing.ID}
		}
		property, _ := view.FindProperty(c.PropertyID)
		if property.OccupancyStatus == domain.OccupancyMaintenance {
			return activity{}, domain.ConflictError{Entity: domain.EntityProperty, ID: property.ID, Reason: "under maintenance"}
		}

		c.Status = domain.ContractActive
		c.TerminatedAt, c.RenewedAt = nil, nil
		if c.Currency == "" {
			c.Currency = property.Currency
		}
		for i := range c.Documents {
			if c.Documents[i].AddedAt.IsZero() {
				c.Documents[i].AddedAt = now
			}
		}
		var err error
		created, err = tx.CreateContract(c)
		if err != nil {
			return activity{}, err
		}
		if _, err := tx.UpdateProperty(property.ID, func(p *Property) error {
			p.OccupancyStatus = domain.OccupancyOccupied
			return nil
		}); err != nil {
			return activity{}, err
		}
		if err := notify(tx, created.TenantID, domain.NotifyContractCreated, "New contract",
			"Your contract for "+property.Title+" is active", ""); err != nil {
			return activity{}, err
		}
		return activity{domain.EntityContract, created.ID, "contract for property " + property.ID + " created"}, nil
	})
	return created, res, err
}

// TerminateContract ends an in-force contract. The property returns to
// available, or to maintenance when the owner flagged it.
func (s *Service) TerminateContract(ctx context.Context, id string) (Contract, Result, error) {
	var updated Contract
	res, err := s.run(ctx, "terminate_contract", func(tx Transaction) (activity, error) {
		current, ok := tx.Snapshot().FindContract(id)
		if !ok {
			return activity{}, domain.NotFoundError{Entity: domain.EntityContract, ID: id}
		}
		now := tx.Now()
		if status := domain.EffectiveContractStatus(current, now); !status.InForce() {
			return activity{}, domain.ConflictError{Entity: domain.EntityContract, ID: id, Reason: "already " + string(status)}
		}
		var err error
		updated, err = tx.UpdateContract(id, func(c *Contract) error {
			c.Status = domain.ContractTerminated
			c.TerminatedAt = &now
			return nil
		})
		if err != nil {
			return activity{}, err
		}
		property, err := tx.UpdateProperty(current.PropertyID, func(p *Property) error {
			p.OccupancyStatus = vacantStatus(*p)
			return nil
		})
		if err != nil {
			return activity{}, err
		}
		if err := notify(tx, current.TenantID, domain.NotifyContractTerminated, "Contract terminated",
			"Your contract for "+property.Title+" was terminated", ""); err != nil {
			return activity{}, err
		}
		return activity{domain.EntityContract, id, "contract terminated; property " + string(property.OccupancyStatus)}, nil
	})
	return updated, res, err
}

// RenewContract extends an in-force contract to newEnd and marks it renewed.
func (s *Service) RenewContract(ctx context.Context, id string, newEnd time.Time) (Contract, Result, error) {
	var updated Contract
	res, err := s.run(ctx, "renew_contract", func(tx Transaction) (activity, error) {
		current, ok := tx.Snapshot().FindContract(id)
		if !ok {
			return activity{}, domain.NotFoundError{Entity: domain.EntityContract, ID: id}
		}
		now := tx.Now()
		if status := domain.EffectiveContractStatus(current, now); !status.InForce() {
			return activity{}, domain.ConflictError{Entity: domain.EntityContract, ID: id, Reason: "cannot renew a " + string(status) + " contract"}
		}
		if !newEnd.After(current.EndDate) {
			return activity{}, domain.ConflictError{Entity: domain.EntityContract, ID: id, Reason: "new end date must be after the current one"}
		}
		var err error
		updated, err = tx.UpdateContract(id, func(c *Contract) error {
			c.Status = domain.ContractRenewed
			c.EndDate = newEnd
			c.RenewedAt = &now
			return nil
		})
		if err != nil {
			return activity{}, err
		}
		return activity{domain.EntityContract, id, "contract renewed until " + newEnd.Format(time.DateOnly)}, nil
	})
	return updated, res, err
}

// AddDocumentToContract appends doc to the contract's document list.
func (s *Service) AddDocumentToContract(ctx context.Context, contractID string, doc Document) (Contract, Result, error) {
	var updated Contract
	res, err := s.run(ctx, "add_contract_document", func(tx Transaction) (activity, error) {
		if err := s.check(domain.EntityContract, doc); err != nil {
			return activity{}, err
		}
		if doc.AddedAt.IsZero() {
			doc.AddedAt = tx.Now()
		}
		var err error
		updated, err = tx.UpdateContract(contractID, func(c *Contract) error {
			c.Documents = append(c.Documents, doc)
			return nil
		})
		if err != nil {
			return activity{}, err
		}
		return activity{domain.EntityContract, contractID, "document " + doc.Name + " attached"}, nil
	})
	return updated, res, err
}
