// Package alert models a fraud alert and its status lifecycle.
package alert

import "time"

// Risk is the alert's initial triage-independent risk bucket.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Status is the lifecycle state of an alert.
type Status string

const (
	StatusOpen                        Status = "OPEN"
	StatusInvestigating                Status = "INVESTIGATING"
	StatusResolved                     Status = "RESOLVED"
	StatusClosedFalsePositive          Status = "CLOSED_FALSE_POSITIVE"
	StatusContacted                    Status = "CONTACTED"
	StatusInvestigatingDisputeOpened   Status = "INVESTIGATING_DISPUTE_OPENED"
)

// validTransitions enumerates the allowed status transitions per spec.md §3.
var validTransitions = map[Status][]Status{
	StatusOpen: {
		StatusInvestigating,
	},
	StatusInvestigating: {
		StatusResolved,
		StatusClosedFalsePositive,
		StatusContacted,
		StatusInvestigatingDisputeOpened,
	},
}

// CanTransition reports whether moving from `from` to `to` is allowed.
func CanTransition(from, to Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Alert is the case an analyst is investigating.
type Alert struct {
	ID           string
	CustomerID   string
	SuspectTxnID string
	Risk         Risk
	Status       Status
	CreatedAt    time.Time
}
