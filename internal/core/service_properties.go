package core

import (
	"context"
	"fmt"

	"rentcore/pkg/domain"
)

// AddProperty registers a property. Occupancy defaults to available; a
// supplied maintenance status also raises the maintenance flag.
func (s *Service) AddProperty(ctx context.Context, p Property) (Property, Result, error) {
	var created Property
	res, err := s.run(ctx, "add_property", func(tx Transaction) (activity, error) {
		if err := s.check(domain.EntityProperty, p); err != nil {
			return activity{}, err
		}
		view := tx.Snapshot()
		if p.OwnerID != "" {
			if _, ok := view.FindOwner(p.OwnerID); !ok {
				return activity{}, domain.NotFoundError{Entity: domain.EntityOwner, ID: p.OwnerID}
			}
		} else if s.singleOwner {
			if owners := view.ListOwners(); len(owners) == 1 {
				p.OwnerID = owners[0].ID
			}
		}
		switch {
		case p.OccupancyStatus == domain.OccupancyMaintenance:
			p.MaintenanceFlag = true
		case p.OccupancyStatus == "":
			p.OccupancyStatus = vacantStatus(p)
		}
		var err error
		created, err = tx.CreateProperty(p)
		if err != nil {
			return activity{}, err
		}
		return activity{domain.EntityProperty, created.ID, "property " + created.Title + " added"}, nil
	})
	return created, res, err
}

// UpdateProperty applies mutator to the descriptive fields of a property.
// Occupancy and the maintenance flag change only through their own operations.
func (s *Service) UpdateProperty(ctx context.Context, id string, mutator func(*Property) error) (Property, Result, error) {
	var updated Property
	res, err := s.run(ctx, "update_property", func(tx Transaction) (activity, error) {
		var err error
		updated, err = tx.UpdateProperty(id, func(p *Property) error {
			status, flag := p.OccupancyStatus, p.MaintenanceFlag
			if err := mutator(p); err != nil {
				return err
			}
			if p.OccupancyStatus != status || p.MaintenanceFlag != flag {
				return domain.ValidationError{Entity: domain.EntityProperty, Field: "occupancy_status", Reason: "changes through the status operations only"}
			}
			return s.check(domain.EntityProperty, *p)
		})
		if err != nil {
			return activity{}, err
		}
		return activity{domain.EntityProperty, id, "property " + updated.Title + " updated"}, nil
	})
	return updated, res, err
}

// UpdatePropertyStatus is the owner's manual occupancy change. Only contracts
// occupy a property, and a property under contract cannot be released here.
func (s *Service) UpdatePropertyStatus(ctx context.Context, id string, status domain.OccupancyStatus) (Property, Result, error) {
	var updated Property
	res, err := s.run(ctx, "update_property_status", func(tx Transaction) (activity, error) {
		switch status {
		case domain.OccupancyAvailable, domain.OccupancyMaintenance:
		case domain.OccupancyOccupied:
			return activity{}, domain.ValidationError{Entity: domain.EntityProperty, Field: "occupancy_status", Reason: "occupied is set by contracts only"}
		default:
			return activity{}, domain.ValidationError{Entity: domain.EntityProperty, Field: "occupancy_status", Reason: fmt.Sprintf("unknown status %q", status)}
		}
		view := tx.Snapshot()
		if _, ok := view.FindProperty(id); !ok {
			return activity{}, domain.NotFoundError{Entity: domain.EntityProperty, ID: id}
		}
		if err := releaseLapsed(tx, id); err != nil {
			return activity{}, err
		}
		if c, ok := findInForce(view, id, tx.Now()); ok {
			return activity{}, domain.ConflictError{Entity: domain.EntityProperty, ID: id, Reason: "contract " + c.ID + " is in force"}
		}
		var err error
		updated, err = tx.UpdateProperty(id, func(p *Property) error {
			p.OccupancyStatus = status
			p.MaintenanceFlag = status == domain.OccupancyMaintenance
			return nil
		})
		if err != nil {
			return activity{}, err
		}
		return activity{domain.EntityProperty, id, "property status set to " + string(status)}, nil
	})
	return updated, res, err
}

// FlagPropertyMaintenance sets or clears the owner's maintenance override. A
// vacant property follows the flag immediately; an occupied one returns to it
// when its contract ends.
func (s *Service) FlagPropertyMaintenance(ctx context.Context, id string, flag bool) (Property, Result, error) {
	var updated Property
	res, err := s.run(ctx, "flag_property_maintenance", func(tx Transaction) (activity, error) {
		if _, ok := tx.Snapshot().FindProperty(id); !ok {
			return activity{}, domain.NotFoundError{Entity: domain.EntityProperty, ID: id}
		}
		if err := releaseLapsed(tx, id); err != nil {
			return activity{}, err
		}
		_, occupied := findInForce(tx.Snapshot(), id, tx.Now())
		var err error
		updated, err = tx.UpdateProperty(id, func(p *Property) error {
			p.MaintenanceFlag = flag
			if !occupied {
				p.OccupancyStatus = vacantStatus(*p)
			}
			return nil
		})
		if err != nil {
			return activity{}, err
		}
		return activity{domain.EntityProperty, id, fmt.Sprintf("maintenance flag set to %t", flag)}, nil
	})
	return updated, res, err
}
