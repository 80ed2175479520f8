package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcore/pkg/domain"
)

func TestAddContractOccupiesProperty(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, domain.OccupancyAvailable, f.property.OccupancyStatus)

	c := f.addContract()

	assert.Equal(t, domain.ContractActive, c.Status)
	assert.Equal(t, "USD", c.Currency, "currency defaults to the property's")
	assert.Equal(t, domain.OccupancyOccupied, f.findProperty(f.property.ID).OccupancyStatus)

	notes, err := f.svc.Notifications(f.ctx, f.tenant.ID, false)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotifyContractCreated, notes[0].Type)
}

func TestSecondContractOnOccupiedPropertyConflicts(t *testing.T) {
	f := newFixture(t)
	f.addContract()
	other := f.addTenant("Second Tenant", "T-200")

	_, _, err := f.svc.AddContract(f.ctx, contract2024(f.property.ID, other.ID))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
	var contracts []Contract
	require.NoError(t, f.svc.Store().View(f.ctx, func(view TransactionView) error {
		contracts = view.ListContracts()
		return nil
	}))
	assert.Len(t, contracts, 1, "rejected contract must not be stored")
}

func TestTerminateContractFreesProperty(t *testing.T) {
	f := newFixture(t)
	c := f.addContract()

	terminated, _, err := f.svc.TerminateContract(f.ctx, c.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.ContractTerminated, terminated.Status)
	require.NotNil(t, terminated.TerminatedAt)
	assert.Equal(t, domain.OccupancyAvailable, f.findProperty(f.property.ID).OccupancyStatus)

	_, _, err = f.svc.TerminateContract(f.ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrConflict, "terminated is final")

	// the property can be let again
	other := f.addTenant("Next Tenant", "T-300")
	_, _, err = f.svc.AddContract(f.ctx, contract2024(f.property.ID, other.ID))
	assert.NoError(t, err)
}

func TestTerminateReturnsFlaggedPropertyToMaintenance(t *testing.T) {
	f := newFixture(t)
	c := f.addContract()

	p, _, err := f.svc.FlagPropertyMaintenance(f.ctx, f.property.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.OccupancyOccupied, p.OccupancyStatus, "contract keeps the property occupied")

	_, _, err = f.svc.TerminateContract(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OccupancyMaintenance, f.findProperty(f.property.ID).OccupancyStatus)
}

func TestDuplicatePaymentForMonthConflicts(t *testing.T) {
	f := newFixture(t)
	c := f.addContract()
	payment := Payment{ContractID: c.ID, Month: date(2024, time.February, 1), Amount: 1000, Method: domain.MethodTransfer}

	first, _, err := f.svc.AddPayment(f.ctx, payment)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, first.Status)

	// a different day within the same month is the same cycle
	payment.Month = date(2024, time.February, 17)
	_, _, err = f.svc.AddPayment(f.ctx, payment)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestTicketWithoutContractIsUnauthorized(t *testing.T) {
	f := newFixture(t)
	stranger := f.addTenant("No Contract", "T-400")

	_, _, err := f.svc.AddTicket(f.ctx, Ticket{PropertyID: f.property.ID, TenantID: stranger.ID, Title: "Leaking tap"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	var authErr domain.AuthorizationError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, stranger.ID, authErr.ActorID)
}

func TestTicketAfterContractEndsIsUnauthorized(t *testing.T) {
	f := newFixture(t)
	f.addContract()
	f.clock.Set(date(2025, time.January, 15))

	_, _, err := f.svc.AddTicket(f.ctx, Ticket{PropertyID: f.property.ID, TenantID: f.tenant.ID, Title: "Heating"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "an expired contract no longer authorises tickets")
}

func TestAddContractValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(*Contract)
		want   error
	}{
		{"missing property", func(c *Contract) { c.PropertyID = "nope" }, domain.ErrNotFound},
		{"missing tenant", func(c *Contract) { c.TenantID = "nope" }, domain.ErrNotFound},
		{"zero rent", func(c *Contract) { c.MonthlyAmount = 0 }, domain.ErrValidation},
		{"payment day out of range", func(c *Contract) { c.PaymentDay = 32 }, domain.ErrValidation},
		{"end before start", func(c *Contract) { c.EndDate = c.StartDate.AddDate(0, 0, -1) }, domain.ErrConflict},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := contract2024(f.property.ID, f.tenant.ID)
			tc.mutate(&c)
			_, _, err := f.svc.AddContract(f.ctx, c)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Equal(t, domain.OccupancyAvailable, f.findProperty(f.property.ID).OccupancyStatus)
}

func TestAddContractRejectsPropertyUnderMaintenance(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.UpdatePropertyStatus(f.ctx, f.property.ID, domain.OccupancyMaintenance)
	require.NoError(t, err)

	_, _, err = f.svc.AddContract(f.ctx, contract2024(f.property.ID, f.tenant.ID))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestAddContractReplacesLapsedContract(t *testing.T) {
	f := newFixture(t)
	old := f.addContract()
	f.clock.Set(date(2025, time.February, 1))
	next := f.addTenant("Next Tenant", "T-500")

	c := contract2024(f.property.ID, next.ID)
	c.StartDate, c.EndDate = date(2025, time.February, 1), date(2026, time.January, 31)
	_, _, err := f.svc.AddContract(f.ctx, c)
	require.NoError(t, err)

	assert.Equal(t, domain.ContractExpired, f.findContract(old.ID).Status)
	assert.Equal(t, domain.OccupancyOccupied, f.findProperty(f.property.ID).OccupancyStatus)
}

func TestLapsedContractNoLongerHoldsProperty(t *testing.T) {
	f := newFixture(t)
	c := f.addContract()
	f.clock.Set(date(2025, time.June, 1))

	_, _, err := f.svc.TerminateContract(f.ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrConflict, "an expired contract is terminal")
	_, _, err = f.svc.RenewContract(f.ctx, c.ID, date(2025, time.December, 31))
	assert.ErrorIs(t, err, domain.ErrConflict)

	p, _, err := f.svc.UpdatePropertyStatus(f.ctx, f.property.ID, domain.OccupancyMaintenance)
	require.NoError(t, err, "the owner regains control once the contract lapses")
	assert.Equal(t, domain.OccupancyMaintenance, p.OccupancyStatus)
	assert.True(t, p.MaintenanceFlag)
	assert.Equal(t, domain.ContractExpired, f.findContract(c.ID).Status)
	assert.Nil(t, f.findContract(c.ID).TerminatedAt)
}

func TestMaintenanceFlagAfterContractLapses(t *testing.T) {
	f := newFixture(t)
	c := f.addContract()
	f.clock.Set(date(2025, time.June, 1))

	p, _, err := f.svc.FlagPropertyMaintenance(f.ctx, f.property.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.OccupancyMaintenance, p.OccupancyStatus, "a lapsed contract no longer keeps the property occupied")
	assert.Equal(t, domain.ContractExpired, f.findContract(c.ID).Status)

	_, _, err = f.svc.FlagPropertyMaintenance(f.ctx, "missing", true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddContractValidatesDocuments(t *testing.T) {
	f := newFixture(t)
	c := contract2024(f.property.ID, f.tenant.ID)
	c.Documents = []Document{{Name: "lease.pdf"}}
	_, _, err := f.svc.AddContract(f.ctx, c)
	assert.ErrorIs(t, err, domain.ErrValidation, "documents need a url")

	c.Documents = []Document{{Name: "lease.pdf", URL: "https://files/lease.pdf"}}
	created, _, err := f.svc.AddContract(f.ctx, c)
	require.NoError(t, err)
	require.Len(t, created.Documents, 1)
	assert.False(t, created.Documents[0].AddedAt.IsZero())
}

func TestRenewContract(t *testing.T) {
	f := newFixture(t)
	c := f.addContract()

	_, _, err := f.svc.RenewContract(f.ctx, c.ID, c.EndDate)
	assert.ErrorIs(t, err, domain.ErrConflict, "end date must move forward")

	renewed, _, err := f.svc.RenewContract(f.ctx, c.ID, date(2025, time.December, 31))
	require.NoError(t, err)
	assert.Equal(t, domain.ContractRenewed, renewed.Status)
	assert.True(t, renewed.Status.InForce())
	require.NotNil(t, renewed.RenewedAt)
	assert.Equal(t, domain.OccupancyOccupied, f.findProperty(f.property.ID).OccupancyStatus)

	_, _, err = f.svc.TerminateContract(f.ctx, c.ID)
	require.NoError(t, err)
	_, _, err = f.svc.RenewContract(f.ctx, c.ID, date(2026, time.December, 31))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestAddDocumentToContract(t *testing.T) {
	f := newFixture(t)
	c := f.addContract()

	updated, _, err := f.svc.AddDocumentToContract(f.ctx, c.ID, Document{Name: "lease.pdf", URL: "https://files/lease.pdf"})
	require.NoError(t, err)
	require.Len(t, updated.Documents, 1)
	assert.False(t, updated.Documents[0].AddedAt.IsZero())

	_, _, err = f.svc.AddDocumentToContract(f.ctx, "missing", Document{Name: "x", URL: "y"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, _, err = f.svc.AddDocumentToContract(f.ctx, c.ID, Document{Name: "no url"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPropertyStatusOperations(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.UpdatePropertyStatus(f.ctx, f.property.ID, domain.OccupancyOccupied)
	assert.ErrorIs(t, err, domain.ErrValidation, "only contracts occupy")
	_, _, err = f.svc.UpdatePropertyStatus(f.ctx, f.property.ID, "demolished")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, _, err = f.svc.UpdatePropertyStatus(f.ctx, "missing", domain.OccupancyAvailable)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	p, _, err := f.svc.FlagPropertyMaintenance(f.ctx, f.property.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.OccupancyMaintenance, p.OccupancyStatus)
	p, _, err = f.svc.FlagPropertyMaintenance(f.ctx, f.property.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.OccupancyAvailable, p.OccupancyStatus)

	f.addContract()
	_, _, err = f.svc.UpdatePropertyStatus(f.ctx, f.property.ID, domain.OccupancyAvailable)
	assert.ErrorIs(t, err, domain.ErrConflict, "cannot release a property under contract")
}

func TestUpdatePropertyKeepsOccupancy(t *testing.T) {
	f := newFixture(t)

	updated, _, err := f.svc.UpdateProperty(f.ctx, f.property.ID, func(p *Property) error {
		p.RentAmount = 1200
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1200.0, updated.RentAmount)

	_, _, err = f.svc.UpdateProperty(f.ctx, f.property.ID, func(p *Property) error {
		p.OccupancyStatus = domain.OccupancyOccupied
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = f.svc.UpdateProperty(f.ctx, f.property.ID, func(p *Property) error {
		p.Rooms = 0
		return nil
	})
	var verr domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "rooms", verr.Field)
}

func TestAddPropertyDefaults(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, f.owner.ID, f.property.OwnerID, "sole owner is assigned")

	p, _, err := f.svc.AddProperty(f.ctx, Property{Title: "Garage", SizeM2: 12, Rooms: 1, RentAmount: 100, OccupancyStatus: domain.OccupancyMaintenance})
	require.NoError(t, err)
	assert.True(t, p.MaintenanceFlag)

	_, _, err = f.svc.AddProperty(f.ctx, Property{Title: "Orphan", SizeM2: 12, Rooms: 1, RentAmount: 100, OwnerID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = f.svc.AddProperty(f.ctx, Property{SizeM2: 12, Rooms: 1, RentAmount: 100})
	var verr domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)
	assert.Equal(t, "is required", verr.Reason)
}

func TestInvariantsHoldAcrossLifecycle(t *testing.T) {
	f := newFixture(t)
	second := f.addProperty("Loft 2")
	otherTenant := f.addTenant("Other", "T-600")

	c1 := f.addContract()
	_, _, err := f.svc.AddContract(f.ctx, contract2024(second.ID, otherTenant.ID))
	require.NoError(t, err)
	_, _, err = f.svc.AddContract(f.ctx, contract2024(second.ID, f.tenant.ID))
	require.ErrorIs(t, err, domain.ErrConflict)
	_, _, err = f.svc.TerminateContract(f.ctx, c1.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Store().View(f.ctx, func(view TransactionView) error {
		inForce := map[string]int{}
		for _, c := range view.ListContracts() {
			if c.Status.InForce() {
				inForce[c.PropertyID]++
			}
		}
		for _, p := range view.ListProperties() {
			assert.LessOrEqual(t, inForce[p.ID], 1, "property %s", p.Title)
			assert.Equal(t, inForce[p.ID] == 1, p.OccupancyStatus == domain.OccupancyOccupied, "property %s", p.Title)
		}
		return nil
	}))
}
