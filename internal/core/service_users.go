package core

import (
	"context"
	"fmt"

	"rentcore/pkg/domain"
)

// AddOwner registers an owner profile. In single-owner deployments a second owner is a conflict.
func (s *Service) AddOwner(ctx context.Context, o Owner) (Owner, Result, error) {
	var created Owner
	res, err := s.run(ctx, "add_owner", func(tx Transaction) (activity, error) {
		if err := s.check(domain.EntityOwner, o); err != nil {
			return activity{}, err
		}
		if s.singleOwner {
			if owners := tx.Snapshot().ListOwners(); len(owners) > 0 {
				return activity{}, domain.ConflictError{Entity: domain.EntityOwner, ID: owners[0].ID, Reason: "deployment already has an owner"}
			}
		}
		var err error
		created, err = tx.CreateOwner(o)
		if err != nil {
			return activity{}, err
		}
		return activity{domain.EntityOwner, created.ID, "owner " + created.FullName + " added"}, nil
	})
	return created, res, err
}

// UpdateOwner applies mutator to an owner profile.
func (s *Service) UpdateOwner(ctx context.Context, id string, mutator func(*Owner) error) (Owner, Result, error) {
	var updated Owner
	res, err := s.run(ctx, "update_owner", func(tx Transaction) (activity, error) {
		var err error
		updated, err = tx.UpdateOwner(id, func(o *Owner) error {
			if err := mutator(o); err != nil {
				return err
			}
			return s.check(domain.EntityOwner, *o)
		})
		if err != nil {
			return activity{}, err
		}
		return activity{domain.EntityOwner, id, "owner " + updated.FullName + " updated"}, nil
	})
	return updated, res, err
}

// AddTenant registers a tenant profile.
func (s *Service) AddTenant(ctx context.Context, t Tenant) (Tenant, Result, error) {
	var created Tenant
	res, err := s.run(ctx, "add_tenant", func(tx Transaction) (activity, error) {
		if err := s.check(domain.EntityTenant, t); err != nil {
			return activity{}, err
		}
		var err error
		created, err = tx.CreateTenant(t)
		if err != nil {
			return activity{}, err
		}
		return activity{domain.EntityTenant, created.ID, "tenant " + created.FullName + " added"}, nil
	})
	return created, res, err
}

// UpdateTenant applies mutator to a tenant profile.
func (s *Service) UpdateTenant(ctx context.Context, id string, mutator func(*Tenant) error) (Tenant, Result, error) {
	var updated Tenant
	res, err := s.run(ctx, "update_tenant", func(tx Transaction) (activity, error) {
		var err error
		updated, err = tx.UpdateTenant(id, func(t *Tenant) error {
			if err := mutator(t); err != nil {
				return err
			}
			return s.check(domain.EntityTenant, *t)
		})
		if err != nil {
			return activity{}, err
		}
		return activity{domain.EntityTenant, id, "tenant " + updated.FullName + " updated"}, nil
	})
	return updated, res, err
}

// DeleteUser removes an owner or tenant together with their notifications.
// Users still bound by an in-force contract cannot be removed.
func (s *Service) DeleteUser(ctx context.Context, id string, kind domain.UserKind) (Result, error) {
	return s.run(ctx, "delete_user", func(tx Transaction) (activity, error) {
		var entity domain.EntityType
		var err error
		switch kind {
		case domain.UserOwner:
			entity, err = domain.EntityOwner, tx.DeleteOwner(id)
		case domain.UserTenant:
			entity, err = domain.EntityTenant, tx.DeleteTenant(id)
		default:
			return activity{}, domain.ValidationError{Entity: "user", Field: "kind", Reason: fmt.Sprintf("unknown user kind %q", kind)}
		}
		if err != nil {
			return activity{}, err
		}
		for _, n := range tx.Snapshot().ListNotifications() {
			if n.UserID != id {
				continue
			}
			if err := tx.DeleteNotification(n.ID); err != nil {
				return activity{}, err
			}
		}
		return activity{entity, id, string(kind) + " deleted"}, nil
	})
}

// AddContractor registers a service provider.
func (s *Service) AddContractor(ctx context.Context, c Contractor) (Contractor, Result, error) {
	var created Contractor
	res, err := s.run(ctx, "add_contractor", func(tx Transaction) (activity, error) {
		if err := s.check(domain.EntityContractor, c); err != nil {
			return activity{}, err
		}
		var err error
		created, err = tx.CreateContractor(c)
		if err != nil {
			return activity{}, err
		}
		return activity{domain.EntityContractor, created.ID, "contractor " + created.Name + " added"}, nil
	})
	return created, res, err
}

// UpdateContractor applies mutator to a contractor.
func (s *Service) UpdateContractor(ctx context.Context, id string, mutator func(*Contractor) error) (Contractor, Result, error) {
	var updated Contractor
	res, err := s.run(ctx, "update_contractor", func(tx Transaction) (activity, error) {
		var err error
		updated, err = tx.UpdateContractor(id, func(c *Contractor) error {
			if err := mutator(c); err != nil {
				return err
			}
			return s.check(domain.EntityContractor, *c)
		})
		if err != nil {
			return activity{}, err
		}
		return activity{domain.EntityContractor, id, "contractor " + updated.Name + " updated"}, nil
	})
	return updated, res, err
}

// DeleteContractor removes a contractor that no open ticket depends on.
func (s *Service) DeleteContractor(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_contractor", func(tx Transaction) (activity, error) {
		if err := tx.DeleteContractor(id); err != nil {
			return activity{}, err
		}
		return activity{domain.EntityContractor, id, "contractor deleted"}, nil
	})
}
