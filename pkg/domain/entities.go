// Package domain defines the rental entities, status vocabularies, error
// taxonomy, and rule evaluation primitives shared by every rentcore layer.
package domain

import "time"

// EntityType identifies the type of record stored in the domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	EntityProperty     EntityType = "property"
	EntityOwner        EntityType = "owner"
	EntityTenant       EntityType = "tenant"
	EntityContract     EntityType = "contract"
	EntityPayment      EntityType = "payment"
	EntityTicket       EntityType = "ticket"
	EntityContractor   EntityType = "contractor"
	EntityNotification EntityType = "notification"
	EntityActivity     EntityType = "activity_log"
)

// OccupancyStatus is the usage state of a property.
type OccupancyStatus string

// Occupancy states. Occupied is only ever reached through a contract.
const (
	OccupancyAvailable   OccupancyStatus = "available"
	OccupancyOccupied    OccupancyStatus = "occupied"
	OccupancyMaintenance OccupancyStatus = "maintenance"
)

// PropertyType classifies the rented unit.
type PropertyType string

// Supported property types.
const (
	PropertyApartment  PropertyType = "apartment"
	PropertyHouse      PropertyType = "house"
	PropertyStudio     PropertyType = "studio"
	PropertyCommercial PropertyType = "commercial"
	PropertyRoom       PropertyType = "room"
)

// ContractStatus enumerates the stored contract lifecycle states.
type ContractStatus string

// Contract statuses. Expired is normally derived at read time; see EffectiveContractStatus.
const (
	ContractActive     ContractStatus = "active"
	ContractRenewed    ContractStatus = "renewed"
	ContractExpired    ContractStatus = "expired"
	ContractTerminated ContractStatus = "terminated"
)

// InForce reports whether a contract in this stored status still binds its
// tenant to the property.
func (s ContractStatus) InForce() bool {
	return s == ContractActive || s == ContractRenewed
}

// PaymentStatus enumerates payment states.
type PaymentStatus string

// Payment statuses. Paid is terminal.
const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
)

// PaymentMethod describes how rent was settled.
type PaymentMethod string

// Accepted payment methods.
const (
	MethodCash     PaymentMethod = "cash"
	MethodTransfer PaymentMethod = "transfer"
	MethodCard     PaymentMethod = "card"
	MethodCheck    PaymentMethod = "check"
	MethodOther    PaymentMethod = "other"
)

// TicketStatus enumerates the maintenance ticket workflow.
type TicketStatus string

// Ticket statuses in workflow order.
const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketClosed     TicketStatus = "closed"
)

// Urgency ranks a ticket.
type Urgency string

// Ticket urgency levels.
const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Valid reports whether u is a known urgency level.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}

// UserKind distinguishes the deletable user roles.
type UserKind string

// User kinds accepted by user deletion.
const (
	UserOwner  UserKind = "owner"
	UserTenant UserKind = "tenant"
)

// MaxTicketPhotos caps the photo list attached to a ticket.
const MaxTicketPhotos = 5

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Seq is the store's insertion counter; it orders records created at the same instant.
	Seq uint64 `json:"seq,omitempty"`
}

// Property is a rentable unit owned by an owner.
type Property struct {
	Base
	OwnerID         string          `json:"owner_id"`
	Title           string          `json:"title" validate:"required"`
	Address         string          `json:"address"`
	City            string          `json:"city"`
	State           string          `json:"state"`
	PostalCode      string          `json:"postal_code"`
	Country         string          `json:"country"`
	Type            PropertyType    `json:"type" validate:"omitempty,oneof=apartment house studio commercial room"`
	SizeM2          float64         `json:"size_m2" validate:"gt=0"`
	Rooms           int             `json:"rooms" validate:"gt=0"`
	Bathrooms       int             `json:"bathrooms" validate:"gte=0"`
	RentAmount      float64         `json:"rent_amount" validate:"gt=0"`
	Currency        string          `json:"currency" validate:"omitempty,len=3"`
	OccupancyStatus OccupancyStatus `json:"occupancy_status" validate:"omitempty,oneof=available occupied maintenance"`
	// MaintenanceFlag is the owner override; while set the property returns to
	// maintenance instead of available when its contract ends.
	MaintenanceFlag bool `json:"maintenance_flag"`
}

// Owner is the landlord profile.
type Owner struct {
	Base
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
	Company  string `json:"company"`
}

// Tenant is a renter profile. Tenants never own properties.
type Tenant struct {
	Base
	FullName   string `json:"full_name" validate:"required"`
	DocumentID string `json:"document_id" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone"`
}

// Document is a named file attached to a contract.
type Document struct {
	Name    string    `json:"name" validate:"required"`
	URL     string    `json:"url" validate:"required"`
	AddedAt time.Time `json:"added_at"`
}

// Contract binds exactly one tenant to exactly one property for a date range.
type Contract struct {
	Base
	PropertyID    string         `json:"property_id" validate:"required"`
	TenantID      string         `json:"tenant_id" validate:"required"`
	StartDate     time.Time      `json:"start_date" validate:"required"`
	EndDate       time.Time      `json:"end_date" validate:"required"`
	MonthlyAmount float64        `json:"monthly_amount" validate:"gt=0"`
	Currency      string         `json:"currency" validate:"omitempty,len=3"`
	PaymentDay    int            `json:"payment_day" validate:"min=1,max=31"`
	Status        ContractStatus `json:"status"`
	Documents     []Document     `json:"documents" validate:"omitempty,dive"`
	TerminatedAt  *time.Time     `json:"terminated_at,omitempty"`
	RenewedAt     *time.Time     `json:"renewed_at,omitempty"`
}

// Payment is the single record for one calendar month of rent under a contract.
type Payment struct {
	Base
	ContractID string        `json:"contract_id" validate:"required"`
	Month      time.Time     `json:"month" validate:"required"`
	Amount     float64       `json:"amount" validate:"gt=0"`
	PaidAt     *time.Time    `json:"paid_at,omitempty"`
	Method     PaymentMethod `json:"method" validate:"omitempty,oneof=cash transfer card check other"`
	Status     PaymentStatus `json:"status" validate:"omitempty,oneof=pending paid overdue"`
	Notes      string        `json:"notes,omitempty"`
}

// Ticket is a tenant-raised maintenance request against a property.
type Ticket struct {
	Base
	PropertyID    string       `json:"property_id" validate:"required"`
	TenantID      string       `json:"tenant_id" validate:"required"`
	Title         string       `json:"title" validate:"required"`
	Description   string       `json:"description"`
	Photos        []string     `json:"photos" validate:"max=5"`
	EstimatedCost float64      `json:"estimated_cost" validate:"gte=0"`
	Currency      string       `json:"currency" validate:"omitempty,len=3"`
	Urgency       Urgency      `json:"urgency" validate:"omitempty,oneof=low medium high"`
	Status        TicketStatus `json:"status"`
	ContractorID  *string      `json:"contractor_id,omitempty"`
	InvoiceURL    string       `json:"invoice_url,omitempty"`
	ClosedAt      *time.Time   `json:"closed_at,omitempty"`
}

// Contractor is a service provider that tickets may reference.
type Contractor struct {
	Base
	Name      string `json:"name" validate:"required"`
	Specialty string `json:"specialty"`
	Phone     string `json:"phone"`
	Email     string `json:"email" validate:"omitempty,email"`
}

// Notification is a message raised for a user by a domain side effect.
type Notification struct {
	Base
	UserID  string `json:"user_id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
	Read    bool   `json:"read"`
}

// Notification types raised by the service.
const (
	NotifyContractCreated    = "contract_created"
	NotifyContractTerminated = "contract_terminated"
	NotifyPaymentReceived    = "payment_received"
	NotifyTicketCreated      = "ticket_created"
	NotifyTicketStatus       = "ticket_status"
)

// ActivityLog records a committed domain operation.
type ActivityLog struct {
	Base
	Action   string     `json:"action"`
	Entity   EntityType `json:"entity"`
	EntityID string     `json:"entity_id"`
	Summary  string     `json:"summary"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before ChangePayload
	After  ChangePayload
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}
