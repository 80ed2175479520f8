package core

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"rentcore/internal/blob"
	"rentcore/internal/infra/persistence/memory"
	"rentcore/pkg/domain"
)

// Service exposes the transactional rental operations. Every mutating call
// runs in exactly one store transaction and either fully commits or changes nothing.
type Service struct {
	store          PersistentStore
	clock          Clock
	logger         Logger
	audit          AuditRecorder
	metrics        MetricsRecorder
	tracer         Tracer
	blobs          blob.Store
	validate       *validator.Validate
	defaultUrgency domain.Urgency
	singleOwner    bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source. Stores that accept a time provider use it too.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithAuditRecorder installs an audit sink.
func WithAuditRecorder(rec AuditRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.audit = rec
		}
	}
}

// WithMetricsRecorder installs a metrics sink.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithTracer installs a tracer.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithBlobStore sets where uploaded documents, photos and invoices are written.
func WithBlobStore(store blob.Store) Option {
	return func(s *Service) { s.blobs = store }
}

// WithDefaultUrgency sets the urgency given to tickets created without one.
func WithDefaultUrgency(u domain.Urgency) Option {
	return func(s *Service) {
		if u.Valid() {
			s.defaultUrgency = u
		}
	}
}

// WithSingleOwner toggles the one-owner-per-deployment restriction.
func WithSingleOwner(enabled bool) Option {
	return func(s *Service) { s.singleOwner = enabled }
}

type nowSetter interface {
	SetNowFunc(func() time.Time)
}

// NewService constructs a service over store.
func NewService(store PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:          store,
		logger:         noopLogger{},
		audit:          noopAudit{},
		metrics:        noopMetrics{},
		tracer:         noopTracer{},
		validate:       newValidator(),
		defaultUrgency: domain.UrgencyMedium,
		singleOwner:    true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock != nil {
		if setter, ok := store.(nowSetter); ok {
			setter.SetNowFunc(s.clock.Now)
		}
	} else {
		s.clock = ClockFunc(store.NowFunc())
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store. A nil
// engine selects the default consistency rules.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// Now returns the service clock reading.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

// activity names the entity an operation touched; a zero value records nothing.
type activity struct {
	entity  domain.EntityType
	id      string
	summary string
}

// run executes fn in one transaction, appends its activity entry, and reports
// the outcome to the tracer, metrics, audit and logger.
func (s *Service) run(ctx context.Context, op string, fn func(tx Transaction) (activity, error)) (Result, error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	var act activity
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		act, err = fn(tx)
		if err != nil {
			return err
		}
		if act.entity == "" {
			return nil
		}
		_, err = tx.AppendActivity(ActivityLog{Action: op, Entity: act.entity, EntityID: act.id, Summary: act.summary})
		return err
	})
	duration := time.Since(started)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	if err != nil {
		s.recordAuditError(ctx, op, act.id, duration, err)
		if isDomainError(err) {
			s.logger.Warn("operation rejected", "operation", op, "error", err)
		} else {
			s.logger.Error("operation failed", "operation", op, "error", err)
		}
		return res, err
	}
	s.recordAuditSuccess(ctx, op, act.id, duration)
	for _, v := range res.Violations {
		s.logger.Info("rule finding", "operation", op, "rule", v.Rule, "severity", v.Severity, "message", v.Message)
	}
	s.logger.Debug("operation committed", "operation", op, "entity", act.entity, "entity_id", act.id)
	return res, nil
}

func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrConflict) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrUnauthorized)
}

type operationMeta struct {
	entity domain.EntityType
	action domain.Action
}

var auditedOperations = map[string]operationMeta{
	"add_property":                {domain.EntityProperty, domain.ActionCreate},
	"update_property":             {domain.EntityProperty, domain.ActionUpdate},
	"update_property_status":      {domain.EntityProperty, domain.ActionUpdate},
	"flag_property_maintenance":   {domain.EntityProperty, domain.ActionUpdate},
	"add_owner":                   {domain.EntityOwner, domain.ActionCreate},
	"update_owner":                {domain.EntityOwner, domain.ActionUpdate},
	"add_tenant":                  {domain.EntityTenant, domain.ActionCreate},
	"update_tenant":               {domain.EntityTenant, domain.ActionUpdate},
	"delete_user":                 {"", domain.ActionDelete},
	"add_contract":                {domain.EntityContract, domain.ActionCreate},
	"terminate_contract":          {domain.EntityContract, domain.ActionUpdate},
	"renew_contract":              {domain.EntityContract, domain.ActionUpdate},
	"add_contract_document":       {domain.EntityContract, domain.ActionUpdate},
	"add_payment":                 {domain.EntityPayment, domain.ActionCreate},
	"update_payment":              {domain.EntityPayment, domain.ActionUpdate},
	"add_ticket":                  {domain.EntityTicket, domain.ActionCreate},
	"update_ticket":               {domain.EntityTicket, domain.ActionUpdate},
	"attach_ticket_photo":         {domain.EntityTicket, domain.ActionUpdate},
	"add_contractor":              {domain.EntityContractor, domain.ActionCreate},
	"update_contractor":           {domain.EntityContractor, domain.ActionUpdate},
	"delete_contractor":           {domain.EntityContractor, domain.ActionDelete},
	"mark_notification_read":      {domain.EntityNotification, domain.ActionUpdate},
	"mark_all_notifications_read": {domain.EntityNotification, domain.ActionUpdate},
	"delete_notification":         {domain.EntityNotification, domain.ActionDelete},
}

func (s *Service) recordAuditSuccess(ctx context.Context, op, entityID string, duration time.Duration) {
	s.recordAudit(ctx, op, entityID, duration, nil)
}

func (s *Service) recordAuditError(ctx context.Context, op, entityID string, duration time.Duration, err error) {
	s.recordAudit(ctx, op, entityID, duration, err)
}

func (s *Service) recordAudit(ctx context.Context, op, entityID string, duration time.Duration, err error) {
	meta, ok := auditedOperations[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// check validates struct tags on value and maps the first failure to a ValidationError.
func (s *Service) check(entity domain.EntityType, value any) error {
	err := s.validate.Struct(value)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return domain.ValidationError{Entity: entity, Field: fe.Field(), Reason: describeTag(fe)}
	}
	return domain.ValidationError{Entity: entity, Reason: err.Error()}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte", "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "len":
		return "must have length " + fe.Param()
	}
	return "failed " + fe.Tag()
}

// ownerOf resolves who is notified about a property: its owner, or the sole
// owner of a single-owner deployment.
func ownerOf(view TransactionView, p Property) string {
	if p.OwnerID != "" {
		return p.OwnerID
	}
	owners := view.ListOwners()
	if len(owners) == 1 {
		return owners[0].ID
	}
	return ""
}

func notify(tx Transaction, userID, kind, title, message, url string) error {
	if userID == "" {
		return nil
	}
	_, err := tx.CreateNotification(Notification{UserID: userID, Type: kind, Title: title, Message: message, URL: url})
	return err
}

// findInForce returns the contract still binding propertyID at now. Contracts
// whose end date has passed read as expired and bind nothing.
func findInForce(view domain.RuleView, propertyID string, now time.Time) (Contract, bool) {
	for _, c := range view.ListContracts() {
		if c.PropertyID == propertyID && domain.EffectiveContractStatus(c, now).InForce() {
			return c, true
		}
	}
	return Contract{}, false
}

// releaseLapsed stores the expiry of contracts on propertyID that have run
// past their end date and hands the property back to its vacant status.
// Expiry stays read-time only until an operation on the property needs it.
func releaseLapsed(tx Transaction, propertyID string) error {
	now := tx.Now()
	lapsed := false
	for _, c := range tx.Snapshot().ListContracts() {
		if c.PropertyID != propertyID || !c.Status.InForce() {
			continue
		}
		if domain.EffectiveContractStatus(c, now) != domain.ContractExpired {
			continue
		}
		if _, err := tx.UpdateContract(c.ID, func(c *Contract) error {
			c.Status = domain.ContractExpired
			return nil
		}); err != nil {
			return err
		}
		lapsed = true
	}
	if !lapsed {
		return nil
	}
	if _, stillBound := findInForce(tx.Snapshot(), propertyID, now); stillBound {
		return nil
	}
	_, err := tx.UpdateProperty(propertyID, func(p *Property) error {
		p.OccupancyStatus = vacantStatus(*p)
		return nil
	})
	return err
}

// effectiveOccupancy is the read-time occupancy of p: an occupied property
// whose contracts have all lapsed reads as vacant.
func effectiveOccupancy(view domain.RuleView, p Property, now time.Time) domain.OccupancyStatus {
	if p.OccupancyStatus != domain.OccupancyOccupied {
		return p.OccupancyStatus
	}
	if _, ok := findInForce(view, p.ID, now); ok {
		return p.OccupancyStatus
	}
	return vacantStatus(p)
}

// vacantStatus is the occupancy a property falls back to when no contract binds it.
func vacantStatus(p Property) domain.OccupancyStatus {
	if p.MaintenanceFlag {
		return domain.OccupancyMaintenance
	}
	return domain.OccupancyAvailable
}
