// Package fraudcase models the case and case-event entities produced by the
// Action Executor.
package fraudcase

import "time"

// Type identifies the kind of case an action opened.
type Type string

const (
	TypeCardFreeze     Type = "CARD_FREEZE"
	TypeDispute        Type = "DISPUTE"
	TypeContactCustomer Type = "CONTACT_CUSTOMER"
	TypeFalsePositive  Type = "FALSE_POSITIVE"
)

// Status is the lifecycle state of a case.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
	StatusClosedFalsePositive Status = "CLOSED_FALSE_POSITIVE"
)

// Case is a unit of work opened by the Action Executor in response to a
// triage decision or analyst action.
type Case struct {
	ID         string
	CustomerID string
	TxnID      string // optional
	Type       Type
	Status     Status
	ReasonCode string
	Events     []Event
}

// Event is an append-only audit entry attached to a Case.
type Event struct {
	CaseID  string
	Actor   string
	Action  string
	TS      time.Time
	Payload string // redacted, schema-free JSON blob
}

// Event action names used by the Action Executor (spec.md §4.9).
const (
	ActionCardFrozen      = "CARD_FROZEN"
	ActionDisputeOpened   = "DISPUTE_OPENED"
	ActionCustomerContacted = "CUSTOMER_CONTACTED"
	ActionMarkedFalsePositive = "MARKED_FALSE_POSITIVE"
)
