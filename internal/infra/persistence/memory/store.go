// Package memory provides the authoritative in-memory transactional store.
// Durable backends embed it and snapshot its state after each commit.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"rentcore/pkg/domain"

	"github.com/google/uuid"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Property aliases domain.Property for in-memory persistence operations.
	Property = domain.Property
	// Owner aliases domain.Owner.
	Owner = domain.Owner
	// Tenant aliases domain.Tenant.
	Tenant = domain.Tenant
	// Contract aliases domain.Contract.
	Contract = domain.Contract
	// Payment aliases domain.Payment.
	Payment = domain.Payment
	// Ticket aliases domain.Ticket.
	Ticket = domain.Ticket
	// Contractor aliases domain.Contractor.
	Contractor = domain.Contractor
	// Notification aliases domain.Notification.
	Notification = domain.Notification
	// ActivityLog aliases domain.ActivityLog.
	ActivityLog = domain.ActivityLog
)

type memoryState struct {
	properties    map[string]Property
	owners        map[string]Owner
	tenants       map[string]Tenant
	contracts     map[string]Contract
	payments      map[string]Payment
	tickets       map[string]Ticket
	contractors   map[string]Contractor
	notifications map[string]Notification
	activity      map[string]ActivityLog
	seq           uint64
}

func newMemoryState() memoryState {
	return memoryState{
		properties:    make(map[string]Property),
		owners:        make(map[string]Owner),
		tenants:       make(map[string]Tenant),
		contracts:     make(map[string]Contract),
		payments:      make(map[string]Payment),
		tickets:       make(map[string]Ticket),
		contractors:   make(map[string]Contractor),
		notifications: make(map[string]Notification),
		activity:      make(map[string]ActivityLog),
	}
}

func cloneMap[T any](in map[string]T, clone func(T) T) map[string]T {
	out := make(map[string]T, len(in))
	for k, v := range in {
		out[k] = clone(v)
	}
	return out
}

func (s memoryState) clone() memoryState {
	return memoryState{
		properties:    cloneMap(s.properties, same[Property]),
		owners:        cloneMap(s.owners, same[Owner]),
		tenants:       cloneMap(s.tenants, same[Tenant]),
		contracts:     cloneMap(s.contracts, cloneContract),
		payments:      cloneMap(s.payments, clonePayment),
		tickets:       cloneMap(s.tickets, cloneTicket),
		contractors:   cloneMap(s.contractors, same[Contractor]),
		notifications: cloneMap(s.notifications, same[Notification]),
		activity:      cloneMap(s.activity, same[ActivityLog]),
		seq:           s.seq,
	}
}

func maxSeq[T any](m map[string]T, base func(*T) *domain.Base, seq uint64) uint64 {
	for _, v := range m {
		if b := base(&v); b.Seq > seq {
			seq = b.Seq
		}
	}
	return seq
}

// highestSeq recovers the insertion counter from loaded records.
func (s memoryState) highestSeq() uint64 {
	seq := maxSeq(s.properties, propertyBase, 0)
	seq = maxSeq(s.owners, ownerBase, seq)
	seq = maxSeq(s.tenants, tenantBase, seq)
	seq = maxSeq(s.contracts, contractBase, seq)
	seq = maxSeq(s.payments, paymentBase, seq)
	seq = maxSeq(s.tickets, ticketBase, seq)
	seq = maxSeq(s.contractors, contractorBase, seq)
	seq = maxSeq(s.notifications, notificationBase, seq)
	return maxSeq(s.activity, activityBase, seq)
}

func same[T any](v T) T { return v }

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func cloneContract(c Contract) Contract {
	cp := c
	cp.Documents = append([]domain.Document(nil), c.Documents...)
	cp.TerminatedAt = cloneTime(c.TerminatedAt)
	cp.RenewedAt = cloneTime(c.RenewedAt)
	return cp
}

func clonePayment(p Payment) Payment {
	cp := p
	cp.PaidAt = cloneTime(p.PaidAt)
	return cp
}

func cloneTicket(t Ticket) Ticket {
	cp := t
	cp.Photos = append([]string(nil), t.Photos...)
	if t.ContractorID != nil {
		id := *t.ContractorID
		cp.ContractorID = &id
	}
	cp.ClosedAt = cloneTime(t.ClosedAt)
	return cp
}

// Store provides an in-memory transactional store for the rental domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *domain.RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *domain.RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *domain.RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc replaces the time provider. Nil restores the wall clock.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		fn = func() time.Time { return time.Now().UTC() }
	}
	s.nowFn = fn
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

type transaction struct {
	store   *Store
	state   memoryState
	changes []domain.Change
	now     time.Time
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Nothing is committed when fn fails or a rule raises a blocking violation.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	var result domain.Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return domain.Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change domain.Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() domain.TransactionView {
	return newTransactionView(&tx.state)
}

// Now returns the timestamp stamped on every record touched by the transaction.
func (tx *transaction) Now() time.Time { return tx.now }

func insert[T any](tx *transaction, m map[string]T, entity domain.EntityType, v T, base func(*T) *domain.Base, clone func(T) T) (T, error) {
	b := base(&v)
	if b.ID == "" {
		b.ID = tx.store.newID()
	}
	if _, exists := m[b.ID]; exists {
		var zero T
		return zero, domain.ConflictError{Entity: entity, ID: b.ID, Reason: "already exists"}
	}
	tx.state.seq++
	b.Seq = tx.state.seq
	b.CreatedAt = tx.now
	b.UpdatedAt = tx.now
	m[b.ID] = clone(v)
	tx.recordChange(domain.Change{Entity: entity, Action: domain.ActionCreate, After: domain.PayloadOf(v)})
	return clone(v), nil
}

func update[T any](tx *transaction, m map[string]T, entity domain.EntityType, id string, mutator func(*T) error, base func(*T) *domain.Base, clone func(T) T) (T, error) {
	var zero T
	current, ok := m[id]
	if !ok {
		return zero, domain.NotFoundError{Entity: entity, ID: id}
	}
	before := clone(current)
	working := clone(current)
	if err := mutator(&working); err != nil {
		return zero, err
	}
	b := base(&working)
	b.ID = id
	b.CreatedAt = base(&before).CreatedAt
	b.Seq = base(&before).Seq
	b.UpdatedAt = tx.now
	m[id] = clone(working)
	tx.recordChange(domain.Change{Entity: entity, Action: domain.ActionUpdate, Before: domain.PayloadOf(before), After: domain.PayloadOf(working)})
	return clone(working), nil
}

func remove[T any](tx *transaction, m map[string]T, entity domain.EntityType, id string) error {
	current, ok := m[id]
	if !ok {
		return domain.NotFoundError{Entity: entity, ID: id}
	}
	delete(m, id)
	tx.recordChange(domain.Change{Entity: entity, Action: domain.ActionDelete, Before: domain.PayloadOf(current)})
	return nil
}

func propertyBase(p *Property) *domain.Base         { return &p.Base }
func ownerBase(o *Owner) *domain.Base               { return &o.Base }
func tenantBase(t *Tenant) *domain.Base             { return &t.Base }
func contractBase(c *Contract) *domain.Base         { return &c.Base }
func paymentBase(p *Payment) *domain.Base           { return &p.Base }
func ticketBase(t *Ticket) *domain.Base             { return &t.Base }
func contractorBase(c *Contractor) *domain.Base     { return &c.Base }
func notificationBase(n *Notification) *domain.Base { return &n.Base }
func activityBase(a *ActivityLog) *domain.Base      { return &a.Base }

// CreateProperty stores a new property. A blank occupancy status defaults to available.
func (tx *transaction) CreateProperty(p Property) (Property, error) {
	if p.OccupancyStatus == "" {
		p.OccupancyStatus = domain.OccupancyAvailable
	}
	return insert(tx, tx.state.properties, domain.EntityProperty, p, propertyBase, same[Property])
}

// UpdateProperty mutates a property using the provided mutator function.
func (tx *transaction) UpdateProperty(id string, mutator func(*Property) error) (Property, error) {
	return update(tx, tx.state.properties, domain.EntityProperty, id, mutator, propertyBase, same[Property])
}

// DeleteProperty removes a property that no in-force contract references.
func (tx *transaction) DeleteProperty(id string) error {
	for _, c := range tx.state.contracts {
		if c.PropertyID == id && c.Status.InForce() {
			return domain.ConflictError{Entity: domain.EntityProperty, ID: id, Reason: "still referenced by contract " + c.ID}
		}
	}
	return remove(tx, tx.state.properties, domain.EntityProperty, id)
}

// CreateOwner stores a new owner profile.
func (tx *transaction) CreateOwner(o Owner) (Owner, error) {
	return insert(tx, tx.state.owners, domain.EntityOwner, o, ownerBase, same[Owner])
}

// UpdateOwner mutates an owner profile.
func (tx *transaction) UpdateOwner(id string, mutator func(*Owner) error) (Owner, error) {
	return update(tx, tx.state.owners, domain.EntityOwner, id, mutator, ownerBase, same[Owner])
}

// DeleteOwner removes an owner unless one of their properties is under an in-force contract.
func (tx *transaction) DeleteOwner(id string) error {
	for _, c := range tx.state.contracts {
		if !c.Status.InForce() {
			continue
		}
		if p, ok := tx.state.properties[c.PropertyID]; ok && p.OwnerID == id {
			return domain.ConflictError{Entity: domain.EntityOwner, ID: id, Reason: "property " + p.ID + " has in-force contract " + c.ID}
		}
	}
	return remove(tx, tx.state.owners, domain.EntityOwner, id)
}

// CreateTenant stores a new tenant profile.
func (tx *transaction) CreateTenant(t Tenant) (Tenant, error) {
	return insert(tx, tx.state.tenants, domain.EntityTenant, t, tenantBase, same[Tenant])
}

// UpdateTenant mutates a tenant profile.
func (tx *transaction) UpdateTenant(id string, mutator func(*Tenant) error) (Tenant, error) {
	return update(tx, tx.state.tenants, domain.EntityTenant, id, mutator, tenantBase, same[Tenant])
}

// DeleteTenant removes a tenant that no in-force contract references.
func (tx *transaction) DeleteTenant(id string) error {
	for _, c := range tx.state.contracts {
		if c.TenantID == id && c.Status.InForce() {
			return domain.ConflictError{Entity: domain.EntityTenant, ID: id, Reason: "still referenced by contract " + c.ID}
		}
	}
	return remove(tx, tx.state.tenants, domain.EntityTenant, id)
}

// CreateContract stores a contract record.
func (tx *transaction) CreateContract(c Contract) (Contract, error) {
	if c.Status == "" {
		c.Status = domain.ContractActive
	}
	return insert(tx, tx.state.contracts, domain.EntityContract, c, contractBase, cloneContract)
}

// UpdateContract mutates a contract record.
func (tx *transaction) UpdateContract(id string, mutator func(*Contract) error) (Contract, error) {
	return update(tx, tx.state.contracts, domain.EntityContract, id, mutator, contractBase, cloneContract)
}

// CreatePayment stores a payment, normalizing its month and refusing a second
// payment for the same contract month.
func (tx *transaction) CreatePayment(p Payment) (Payment, error) {
	p.Month = domain.MonthStart(p.Month)
	if p.Status == "" {
		p.Status = domain.PaymentPending
	}
	key := domain.MonthKey(p.Month)
	for _, existing := range tx.state.payments {
		if existing.ContractID == p.ContractID && domain.MonthKey(existing.Month) == key {
			return Payment{}, domain.ConflictError{Entity: domain.EntityPayment, ID: existing.ID, Reason: "payment for " + key + " already recorded"}
		}
	}
	return insert(tx, tx.state.payments, domain.EntityPayment, p, paymentBase, clonePayment)
}

// UpdatePayment mutates a payment record.
func (tx *transaction) UpdatePayment(id string, mutator func(*Payment) error) (Payment, error) {
	return update(tx, tx.state.payments, domain.EntityPayment, id, func(p *Payment) error {
		if err := mutator(p); err != nil {
			return err
		}
		p.Month = domain.MonthStart(p.Month)
		return nil
	}, paymentBase, clonePayment)
}

// CreateTicket stores a ticket record.
func (tx *transaction) CreateTicket(t Ticket) (Ticket, error) {
	if t.Status == "" {
		t.Status = domain.TicketOpen
	}
	return insert(tx, tx.state.tickets, domain.EntityTicket, t, ticketBase, cloneTicket)
}

// UpdateTicket mutates a ticket record.
func (tx *transaction) UpdateTicket(id string, mutator func(*Ticket) error) (Ticket, error) {
	return update(tx, tx.state.tickets, domain.EntityTicket, id, mutator, ticketBase, cloneTicket)
}

// CreateContractor stores a contractor record.
func (tx *transaction) CreateContractor(c Contractor) (Contractor, error) {
	return insert(tx, tx.state.contractors, domain.EntityContractor, c, contractorBase, same[Contractor])
}

// UpdateContractor mutates a contractor record.
func (tx *transaction) UpdateContractor(id string, mutator func(*Contractor) error) (Contractor, error) {
	return update(tx, tx.state.contractors, domain.EntityContractor, id, mutator, contractorBase, same[Contractor])
}

// DeleteContractor removes a contractor not assigned to any unclosed ticket.
func (tx *transaction) DeleteContractor(id string) error {
	for _, t := range tx.state.tickets {
		if t.ContractorID != nil && *t.ContractorID == id && t.Status != domain.TicketClosed {
			return domain.ConflictError{Entity: domain.EntityContractor, ID: id, Reason: "assigned to ticket " + t.ID}
		}
	}
	return remove(tx, tx.state.contractors, domain.EntityContractor, id)
}

// CreateNotification stores a notification.
func (tx *transaction) CreateNotification(n Notification) (Notification, error) {
	return insert(tx, tx.state.notifications, domain.EntityNotification, n, notificationBase, same[Notification])
}

// UpdateNotification mutates a notification.
func (tx *transaction) UpdateNotification(id string, mutator func(*Notification) error) (Notification, error) {
	return update(tx, tx.state.notifications, domain.EntityNotification, id, mutator, notificationBase, same[Notification])
}

// DeleteNotification removes a notification.
func (tx *transaction) DeleteNotification(id string) error {
	return remove(tx, tx.state.notifications, domain.EntityNotification, id)
}

// AppendActivity records an activity log entry.
func (tx *transaction) AppendActivity(a ActivityLog) (ActivityLog, error) {
	return insert(tx, tx.state.activity, domain.EntityActivity, a, activityBase, same[ActivityLog])
}

// Read helpers ---------------------------------------------------------------

func sortedValues[T any](m map[string]T, clone func(T) T, base func(*T) *domain.Base) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, clone(v))
	}
	sort.Slice(out, func(i, j int) bool {
		bi, bj := base(&out[i]), base(&out[j])
		if !bi.CreatedAt.Equal(bj.CreatedAt) {
			return bi.CreatedAt.Before(bj.CreatedAt)
		}
		if bi.Seq != bj.Seq {
			return bi.Seq < bj.Seq
		}
		return bi.ID < bj.ID
	})
	return out
}

func find[T any](m map[string]T, id string, clone func(T) T) (T, bool) {
	v, ok := m[id]
	if !ok {
		var zero T
		return zero, false
	}
	return clone(v), true
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) domain.TransactionView {
	return transactionView{state: state}
}

// ListProperties returns all properties ordered by creation time.
func (v transactionView) ListProperties() []Property {
	return sortedValues(v.state.properties, same[Property], propertyBase)
}

// ListOwners returns all owners ordered by creation time.
func (v transactionView) ListOwners() []Owner {
	return sortedValues(v.state.owners, same[Owner], ownerBase)
}

// ListTenants returns all tenants ordered by creation time.
func (v transactionView) ListTenants() []Tenant {
	return sortedValues(v.state.tenants, same[Tenant], tenantBase)
}

// ListContracts returns all contracts ordered by creation time.
func (v transactionView) ListContracts() []Contract {
	return sortedValues(v.state.contracts, cloneContract, contractBase)
}

// ListPayments returns all payments ordered by creation time.
func (v transactionView) ListPayments() []Payment {
	return sortedValues(v.state.payments, clonePayment, paymentBase)
}

// ListTickets returns all tickets ordered by creation time.
func (v transactionView) ListTickets() []Ticket {
	return sortedValues(v.state.tickets, cloneTicket, ticketBase)
}

// ListContractors returns all contractors ordered by creation time.
func (v transactionView) ListContractors() []Contractor {
	return sortedValues(v.state.contractors, same[Contractor], contractorBase)
}

// ListNotifications returns all notifications ordered by creation time.
func (v transactionView) ListNotifications() []Notification {
	return sortedValues(v.state.notifications, same[Notification], notificationBase)
}

// ListActivity returns the activity log ordered by creation time.
func (v transactionView) ListActivity() []ActivityLog {
	return sortedValues(v.state.activity, same[ActivityLog], activityBase)
}

func (v transactionView) FindProperty(id string) (Property, bool) {
	return find(v.state.properties, id, same[Property])
}

func (v transactionView) FindOwner(id string) (Owner, bool) {
	return find(v.state.owners, id, same[Owner])
}

func (v transactionView) FindTenant(id string) (Tenant, bool) {
	return find(v.state.tenants, id, same[Tenant])
}

func (v transactionView) FindContract(id string) (Contract, bool) {
	return find(v.state.contracts, id, cloneContract)
}

func (v transactionView) FindPayment(id string) (Payment, bool) {
	return find(v.state.payments, id, clonePayment)
}

func (v transactionView) FindTicket(id string) (Ticket, bool) {
	return find(v.state.tickets, id, cloneTicket)
}

func (v transactionView) FindContractor(id string) (Contractor, bool) {
	return find(v.state.contractors, id, same[Contractor])
}

func (v transactionView) FindNotification(id string) (Notification, bool) {
	return find(v.state.notifications, id, same[Notification])
}
