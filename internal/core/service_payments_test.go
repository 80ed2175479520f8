package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcore/pkg/domain"
)

func TestAddPaymentPaidNotifiesOwner(t *testing.T) {
	f := newFixture(t)
	c := f.addContract()

	p, _, err := f.svc.AddPayment(f.ctx, Payment{ContractID: c.ID, Month: date(2024, time.January, 20), Amount: 1000, Status: domain.PaymentPaid, Method: domain.MethodCash})
	require.NoError(t, err)

	assert.Equal(t, date(2024, time.January, 1), p.Month, "month is normalised")
	require.NotNil(t, p.PaidAt)
	assert.Equal(t, 2024, p.PaidAt.Year())

	notes, err := f.svc.Notifications(f.ctx, f.owner.ID, true)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotifyPaymentReceived, notes[0].Type)
	assert.Contains(t, notes[0].Message, "2024-01")
}

func TestAddPaymentChecks(t *testing.T) {
	f := newFixture(t)
	c := f.addContract()

	_, _, err := f.svc.AddPayment(f.ctx, Payment{ContractID: "missing", Month: date(2024, time.May, 1), Amount: 10})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, _, err = f.svc.AddPayment(f.ctx, Payment{ContractID: c.ID, Month: date(2024, time.May, 1)})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, _, err = f.svc.AddPayment(f.ctx, Payment{ContractID: c.ID, Month: date(2024, time.May, 1), Amount: 10, Method: "barter"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	pending, _, err := f.svc.AddPayment(f.ctx, Payment{ContractID: c.ID, Month: date(2024, time.May, 1), Amount: 10, PaidAt: ptr(date(2024, time.May, 2))})
	require.NoError(t, err)
	assert.Nil(t, pending.PaidAt, "unpaid payments carry no paid time")
}

func TestUpdatePaymentLifecycle(t *testing.T) {
	f := newFixture(t)
	c := f.addContract()
	p, _, err := f.svc.AddPayment(f.ctx, Payment{ContractID: c.ID, Month: date(2024, time.February, 1), Amount: 1000})
	require.NoError(t, err)

	overdue, _, err := f.svc.UpdatePayment(f.ctx, p.ID, PaymentPatch{Status: ptr(domain.PaymentOverdue)})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentOverdue, overdue.Status)

	_, _, err = f.svc.UpdatePayment(f.ctx, p.ID, PaymentPatch{Status: ptr(domain.PaymentPending)})
	assert.ErrorIs(t, err, domain.ErrConflict, "overdue only moves to paid")

	paidAt := date(2024, time.March, 2)
	paid, _, err := f.svc.UpdatePayment(f.ctx, p.ID, PaymentPatch{Status: ptr(domain.PaymentPaid), PaidAt: &paidAt, Method: ptr(domain.MethodCard)})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	assert.True(t, paid.PaidAt.Equal(paidAt))

	_, _, err = f.svc.UpdatePayment(f.ctx, p.ID, PaymentPatch{Status: ptr(domain.PaymentPending)})
	assert.ErrorIs(t, err, domain.ErrConflict, "paid is terminal")
	_, _, err = f.svc.UpdatePayment(f.ctx, p.ID, PaymentPatch{Amount: ptr(1.0)})
	assert.ErrorIs(t, err, domain.ErrConflict)

	noted, _, err := f.svc.UpdatePayment(f.ctx, p.ID, PaymentPatch{Notes: ptr("receipt 42")})
	require.NoError(t, err)
	assert.Equal(t, "receipt 42", noted.Notes)

	count, err := f.svc.UnreadCount(f.ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "the owner hears about the payment once")
}

func TestUpdatePaymentRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	c := f.addContract()
	p, _, err := f.svc.AddPayment(f.ctx, Payment{ContractID: c.ID, Month: date(2024, time.April, 1), Amount: 1000})
	require.NoError(t, err)

	_, _, err = f.svc.UpdatePayment(f.ctx, p.ID, PaymentPatch{Status: ptr(domain.PaymentStatus("refunded"))})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, _, err = f.svc.UpdatePayment(f.ctx, "missing", PaymentPatch{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdatePaymentPaidAtNeedsPaidStatus(t *testing.T) {
	f := newFixture(t)
	c := f.addContract()
	p, _, err := f.svc.AddPayment(f.ctx, Payment{ContractID: c.ID, Month: date(2024, time.March, 1), Amount: 1000})
	require.NoError(t, err)

	paidAt := date(2024, time.March, 2)
	_, _, err = f.svc.UpdatePayment(f.ctx, p.ID, PaymentPatch{PaidAt: &paidAt})
	assert.ErrorIs(t, err, domain.ErrValidation, "a pending payment has no paid date")
	_, _, err = f.svc.UpdatePayment(f.ctx, p.ID, PaymentPatch{Status: ptr(domain.PaymentOverdue), PaidAt: &paidAt})
	assert.ErrorIs(t, err, domain.ErrValidation)

	var stored Payment
	require.NoError(t, f.svc.Store().View(f.ctx, func(view TransactionView) error {
		stored, _ = view.FindPayment(p.ID)
		return nil
	}))
	assert.Equal(t, domain.PaymentPending, stored.Status)
	assert.Nil(t, stored.PaidAt)

	paid, _, err := f.svc.UpdatePayment(f.ctx, p.ID, PaymentPatch{Status: ptr(domain.PaymentPaid), PaidAt: &paidAt})
	require.NoError(t, err)
	require.NotNil(t, paid.PaidAt)
	assert.True(t, paid.PaidAt.Equal(paidAt))
}
