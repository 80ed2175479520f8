package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rentcore/pkg/domain"
)

// stepClock advances by step on every reading so records created in sequence
// get distinct, ordered timestamps.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newStepClock(start time.Time) *stepClock {
	return &stepClock{now: start, step: time.Second}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func (c *stepClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	clock    *stepClock
	svc      *Service
	owner    Owner
	tenant   Tenant
	property Property
}

// newFixture seeds one owner, one tenant and one available property, with the
// clock in March 2024.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	clock := newStepClock(time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC))
	opts = append([]Option{WithClock(clock)}, opts...)
	f := &fixture{t: t, ctx: context.Background(), clock: clock, svc: NewInMemoryService(nil, opts...)}

	var err error
	f.owner, _, err = f.svc.AddOwner(f.ctx, Owner{FullName: "Olivia Owner", Email: "olivia@example.com"})
	require.NoError(t, err)
	f.tenant = f.addTenant("Tomas Tenant", "T-100")
	f.property = f.addProperty("Loft 1")
	return f
}

func (f *fixture) addTenant(name, doc string) Tenant {
	f.t.Helper()
	tenant, _, err := f.svc.AddTenant(f.ctx, Tenant{FullName: name, DocumentID: doc})
	require.NoError(f.t, err)
	return tenant
}

func (f *fixture) addProperty(title string) Property {
	f.t.Helper()
	p, _, err := f.svc.AddProperty(f.ctx, Property{
		Title:      title,
		Address:    "1 Main St",
		Type:       domain.PropertyApartment,
		SizeM2:     48,
		Rooms:      2,
		Bathrooms:  1,
		RentAmount: 1000,
		Currency:   "USD",
	})
	require.NoError(f.t, err)
	return p
}

// contract2024 binds tenantID to propertyID for calendar 2024, rent due on the 5th.
func contract2024(propertyID, tenantID string) Contract {
	return Contract{
		PropertyID:    propertyID,
		TenantID:      tenantID,
		StartDate:     date(2024, time.January, 1),
		EndDate:       date(2024, time.December, 31),
		MonthlyAmount: 1000,
		PaymentDay:    5,
	}
}

func (f *fixture) addContract() Contract {
	f.t.Helper()
	c, _, err := f.svc.AddContract(f.ctx, contract2024(f.property.ID, f.tenant.ID))
	require.NoError(f.t, err)
	return c
}

func (f *fixture) findProperty(id string) Property {
	f.t.Helper()
	var p Property
	require.NoError(f.t, f.svc.Store().View(f.ctx, func(view TransactionView) error {
		var ok bool
		p, ok = view.FindProperty(id)
		require.True(f.t, ok, "property %s", id)
		return nil
	}))
	return p
}

func (f *fixture) findContract(id string) Contract {
	f.t.Helper()
	var c Contract
	require.NoError(f.t, f.svc.Store().View(f.ctx, func(view TransactionView) error {
		var ok bool
		c, ok = view.FindContract(id)
		require.True(f.t, ok, "contract %s", id)
		return nil
	}))
	return c
}

func (f *fixture) openTicket(title string) Ticket {
	f.t.Helper()
	ticket, _, err := f.svc.AddTicket(f.ctx, Ticket{PropertyID: f.property.ID, TenantID: f.tenant.ID, Title: title})
	require.NoError(f.t, err)
	return ticket
}

func ptr[T any](v T) *T { return &v }
