// Package actionexecutor applies a triage decision (or an analyst's
// override) to customer-facing state: freezing a card, opening a dispute,
// contacting a customer, or marking an alert a false positive. Every
// method is idempotent via the caller-supplied Idempotency-Key and, for
// freeze_card, gated by an OTP or a lead-role override (spec.md §4.9, §3
// invariant 6).
package actionexecutor

import (
	"context"

	"github.com/riskops/triage/domain/fraudcase"
)

// Store is the subset of infrastructure/database.Store the Action
// Executor drives; each method is already one atomic unit of work.
type Store interface {
	FreezeCard(ctx context.Context, cardID, alertID, actor string) (alreadyFrozen bool, c fraudcase.Case, err error)
	OpenDispute(ctx context.Context, txnID, customerID, alertID, reasonCode, actor string) (fraudcase.Case, error)
	ContactCustomer(ctx context.Context, alertID, customerID, suspectTxnID, actor string) (fraudcase.Case, error)
	MarkFalsePositive(ctx context.Context, alertID, customerID, suspectTxnID, actor string) (fraudcase.Case, error)
	GetOpenDisputeForTxn(ctx context.Context, txnID string) (fraudcase.Case, bool, error)
}

// FreezeCardRequest is the decoded POST /actions/freeze_card body plus the
// caller's role (spec.md §6).
type FreezeCardRequest struct {
	CardID         string
	AlertID        string
	Actor          string
	Role           string
	OTP            string
	IdempotencyKey string
}

// FreezeCardResult is the response payload for a freeze_card call,
// cached verbatim under IdempotencyKey (spec.md §3 invariant 3,
// §8 property 3).
type FreezeCardResult struct {
	Status string `json:"status"` // FROZEN or PENDING_OTP
	CardID string `json:"cardId"`
	CaseID string `json:"caseId,omitempty"`
}

type OpenDisputeRequest struct {
	TxnID          string
	CustomerID     string
	AlertID        string
	ReasonCode     string
	Actor          string
	IdempotencyKey string
}

type OpenDisputeResult struct {
	Status string `json:"status"`
	CaseID string `json:"caseId"`
	TxnID  string `json:"txnId"`
}

type ContactCustomerRequest struct {
	AlertID        string
	CustomerID     string
	SuspectTxnID   string
	Actor          string
	IdempotencyKey string
}

type ContactCustomerResult struct {
	Status string `json:"status"`
	CaseID string `json:"caseId"`
}

type MarkFalsePositiveRequest struct {
	AlertID        string
	CustomerID     string
	SuspectTxnID   string
	Actor          string
	IdempotencyKey string
}

type MarkFalsePositiveResult struct {
	Status string `json:"status"`
	CaseID string `json:"caseId"`
}
