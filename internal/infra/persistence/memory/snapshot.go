package memory

import (
	"fmt"

	"rentcore/pkg/domain"
)

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Properties    map[string]Property     `json:"properties"`
	Owners        map[string]Owner        `json:"owners"`
	Tenants       map[string]Tenant       `json:"tenants"`
	Contracts     map[string]Contract     `json:"contracts"`
	Payments      map[string]Payment      `json:"payments"`
	Tickets       map[string]Ticket       `json:"tickets"`
	Contractors   map[string]Contractor   `json:"contractors"`
	Notifications map[string]Notification `json:"notifications"`
	Activity      map[string]ActivityLog  `json:"activity"`
}

// BucketNames lists the snapshot buckets in the order durable backends persist them.
var BucketNames = []string{
	"properties",
	"owners",
	"tenants",
	"contracts",
	"payments",
	"tickets",
	"contractors",
	"notifications",
	"activity",
}

// Bucket returns a pointer to the map stored under name so backends can
// encode or decode a single bucket without knowing its element type.
func (s *Snapshot) Bucket(name string) (any, error) {
	switch name {
	case "properties":
		return &s.Properties, nil
	case "owners":
		return &s.Owners, nil
	case "tenants":
		return &s.Tenants, nil
	case "contracts":
		return &s.Contracts, nil
	case "payments":
		return &s.Payments, nil
	case "tickets":
		return &s.Tickets, nil
	case "contractors":
		return &s.Contractors, nil
	case "notifications":
		return &s.Notifications, nil
	case "activity":
		return &s.Activity, nil
	}
	return nil, fmt.Errorf("unknown snapshot bucket %q", name)
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	return Snapshot{
		Properties:    cloneMap(state.properties, same[Property]),
		Owners:        cloneMap(state.owners, same[Owner]),
		Tenants:       cloneMap(state.tenants, same[Tenant]),
		Contracts:     cloneMap(state.contracts, cloneContract),
		Payments:      cloneMap(state.payments, clonePayment),
		Tickets:       cloneMap(state.tickets, cloneTicket),
		Contractors:   cloneMap(state.contractors, same[Contractor]),
		Notifications: cloneMap(state.notifications, same[Notification]),
		Activity:      cloneMap(state.activity, same[ActivityLog]),
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	st := memoryState{
		properties:    cloneMap(s.Properties, same[Property]),
		owners:        cloneMap(s.Owners, same[Owner]),
		tenants:       cloneMap(s.Tenants, same[Tenant]),
		contracts:     cloneMap(s.Contracts, cloneContract),
		payments:      cloneMap(s.Payments, clonePayment),
		tickets:       cloneMap(s.Tickets, cloneTicket),
		contractors:   cloneMap(s.Contractors, same[Contractor]),
		notifications: cloneMap(s.Notifications, same[Notification]),
		activity:      cloneMap(s.Activity, same[ActivityLog]),
	}
	st.seq = st.highestSeq()
	return st
}

func ensure[T any](m map[string]T) map[string]T {
	if m == nil {
		return map[string]T{}
	}
	return m
}

// migrateSnapshot fills missing buckets, drops records whose parents are
// gone and defaults blank statuses so older snapshots load cleanly.
//
//nolint:gocyclo // one pass over every bucket keeps snapshot repair in a single place.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	snapshot.Properties = ensure(snapshot.Properties)
	snapshot.Owners = ensure(snapshot.Owners)
	snapshot.Tenants = ensure(snapshot.Tenants)
	snapshot.Contracts = ensure(snapshot.Contracts)
	snapshot.Payments = ensure(snapshot.Payments)
	snapshot.Tickets = ensure(snapshot.Tickets)
	snapshot.Contractors = ensure(snapshot.Contractors)
	snapshot.Notifications = ensure(snapshot.Notifications)
	snapshot.Activity = ensure(snapshot.Activity)

	for id, c := range snapshot.Contracts {
		if _, ok := snapshot.Properties[c.PropertyID]; !ok {
			delete(snapshot.Contracts, id)
			continue
		}
		if c.Status == "" {
			c.Status = domain.ContractActive
		}
		snapshot.Contracts[id] = c
	}

	inForce := make(map[string]bool)
	for _, c := range snapshot.Contracts {
		if c.Status.InForce() {
			inForce[c.PropertyID] = true
		}
	}
	for id, p := range snapshot.Properties {
		switch {
		case inForce[id]:
			p.OccupancyStatus = domain.OccupancyOccupied
		case p.MaintenanceFlag:
			p.OccupancyStatus = domain.OccupancyMaintenance
		case p.OccupancyStatus == "" || p.OccupancyStatus == domain.OccupancyOccupied:
			p.OccupancyStatus = domain.OccupancyAvailable
		}
		snapshot.Properties[id] = p
	}

	for id, p := range snapshot.Payments {
		if _, ok := snapshot.Contracts[p.ContractID]; !ok {
			delete(snapshot.Payments, id)
			continue
		}
		p.Month = domain.MonthStart(p.Month)
		if p.Status == "" {
			p.Status = domain.PaymentPending
		}
		snapshot.Payments[id] = p
	}

	for id, t := range snapshot.Tickets {
		if _, ok := snapshot.Properties[t.PropertyID]; !ok {
			delete(snapshot.Tickets, id)
			continue
		}
		if t.Status == "" {
			t.Status = domain.TicketOpen
		}
		if t.Urgency == "" {
			t.Urgency = domain.UrgencyMedium
		}
		if t.ContractorID != nil {
			if _, ok := snapshot.Contractors[*t.ContractorID]; !ok {
				t.ContractorID = nil
			}
		}
		snapshot.Tickets[id] = t
	}
	return snapshot
}
