package core

import "rentcore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Base               = domain.Base
	Property           = domain.Property
	Owner              = domain.Owner
	Tenant             = domain.Tenant
	Contract           = domain.Contract
	Document           = domain.Document
	Payment            = domain.Payment
	Ticket             = domain.Ticket
	Contractor         = domain.Contractor
	Notification       = domain.Notification
	ActivityLog        = domain.ActivityLog
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
