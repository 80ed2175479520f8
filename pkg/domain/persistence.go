package domain

import (
	"context"
	"time"
)

// TransactionView provides read-only access to a state snapshot.
type TransactionView interface {
	RuleView
	ListOwners() []Owner
	ListTenants() []Tenant
	ListContractors() []Contractor
	ListNotifications() []Notification
	ListActivity() []ActivityLog
	FindOwner(id string) (Owner, bool)
	FindPayment(id string) (Payment, bool)
	FindTicket(id string) (Ticket, bool)
	FindNotification(id string) (Notification, bool)
}

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	Now() time.Time

	CreateProperty(Property) (Property, error)
	UpdateProperty(id string, mutator func(*Property) error) (Property, error)
	DeleteProperty(id string) error
	CreateOwner(Owner) (Owner, error)
	UpdateOwner(id string, mutator func(*Owner) error) (Owner, error)
	DeleteOwner(id string) error
	CreateTenant(Tenant) (Tenant, error)
	UpdateTenant(id string, mutator func(*Tenant) error) (Tenant, error)
	DeleteTenant(id string) error
	CreateContract(Contract) (Contract, error)
	UpdateContract(id string, mutator func(*Contract) error) (Contract, error)
	CreatePayment(Payment) (Payment, error)
	UpdatePayment(id string, mutator func(*Payment) error) (Payment, error)
	CreateTicket(Ticket) (Ticket, error)
	UpdateTicket(id string, mutator func(*Ticket) error) (Ticket, error)
	CreateContractor(Contractor) (Contractor, error)
	UpdateContractor(id string, mutator func(*Contractor) error) (Contractor, error)
	DeleteContractor(id string) error
	CreateNotification(Notification) (Notification, error)
	UpdateNotification(id string, mutator func(*Notification) error) (Notification, error)
	DeleteNotification(id string) error
	AppendActivity(ActivityLog) (ActivityLog, error)
}

// PersistentStore is the abstraction over the authoritative store and its
// durable backends.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	NowFunc() func() time.Time
	Close() error
}
