package actionexecutor

import (
	"context"

	"github.com/riskops/triage/domain/fraudcase"
	svcerrors "github.com/riskops/triage/infrastructure/errors"
	"github.com/riskops/triage/pkg/logger"
)

// Idempotency is the subset of infrastructure/cache.IdempotencyStore the
// executor needs.
type Idempotency interface {
	Get(ctx context.Context, op, idempotencyKey string, result interface{}) (bool, error)
	Put(ctx context.Context, op, idempotencyKey string, result interface{}) error
}

// OTPVerifier is the subset of infrastructure/cache.OTPStore the executor
// needs.
type OTPVerifier interface {
	Verify(ctx context.Context, cardID, code string) bool
}

// Executor applies triage decisions and analyst overrides to customer
// state (spec.md §4.9).
type Executor struct {
	store       Store
	idempotency Idempotency
	otp         OTPVerifier
	leadRole    string
	log         *logger.Logger
}

func NewExecutor(store Store, idempotency Idempotency, otp OTPVerifier, leadRole string, log *logger.Logger) *Executor {
	return &Executor{store: store, idempotency: idempotency, otp: otp, leadRole: leadRole, log: log}
}

const opFreezeCard = "freeze_card"
const opOpenDispute = "open_dispute"
const opContactCustomer = "contact_customer"
const opMarkFalsePositive = "mark_false_positive"

// FreezeCard implements spec.md §4.9's freeze_card: idempotent on replay,
// idempotent on an already-FROZEN card, and gated by either a verified OTP
// or a lead-role override (§3 invariant 6).
func (e *Executor) FreezeCard(ctx context.Context, req FreezeCardRequest) (*FreezeCardResult, error) {
	var cached FreezeCardResult
	if hit, err := e.idempotency.Get(ctx, opFreezeCard, req.IdempotencyKey, &cached); err != nil {
		e.log.WithError(err).Warn("idempotency lookup failed for freeze_card")
	} else if hit {
		return &cached, nil
	}

	if req.Role != e.leadRole {
		if req.OTP == "" {
			result := &FreezeCardResult{Status: "PENDING_OTP", CardID: req.CardID}
			e.put(ctx, opFreezeCard, req.IdempotencyKey, result)
			return result, nil
		}
		if !e.otp.Verify(ctx, req.CardID, req.OTP) {
			return nil, svcerrors.OTPInvalid()
		}
	}

	alreadyFrozen, c, err := e.store.FreezeCard(ctx, req.CardID, req.AlertID, req.Actor)
	if err != nil {
		return nil, err
	}

	result := &FreezeCardResult{Status: "FROZEN", CardID: req.CardID}
	if !alreadyFrozen {
		result.CaseID = c.ID
	}
	e.put(ctx, opFreezeCard, req.IdempotencyKey, result)
	return result, nil
}

// OpenDispute implements spec.md §4.9's open_dispute: a pre-existing
// non-terminal DISPUTE case for the same transaction is returned as-is
// rather than duplicated.
func (e *Executor) OpenDispute(ctx context.Context, req OpenDisputeRequest) (*OpenDisputeResult, error) {
	var cached OpenDisputeResult
	if hit, err := e.idempotency.Get(ctx, opOpenDispute, req.IdempotencyKey, &cached); err != nil {
		e.log.WithError(err).Warn("idempotency lookup failed for open_dispute")
	} else if hit {
		return &cached, nil
	}

	var c fraudcase.Case
	if existing, found, err := e.store.GetOpenDisputeForTxn(ctx, req.TxnID); err != nil {
		return nil, err
	} else if found {
		c = existing
	} else {
		created, err := e.store.OpenDispute(ctx, req.TxnID, req.CustomerID, req.AlertID, req.ReasonCode, req.Actor)
		if err != nil {
			return nil, err
		}
		c = created
	}

	result := &OpenDisputeResult{Status: "OPEN", CaseID: c.ID, TxnID: req.TxnID}
	e.put(ctx, opOpenDispute, req.IdempotencyKey, result)
	return result, nil
}

// ContactCustomer implements spec.md §4.9's contact_customer.
func (e *Executor) ContactCustomer(ctx context.Context, req ContactCustomerRequest) (*ContactCustomerResult, error) {
	var cached ContactCustomerResult
	if hit, err := e.idempotency.Get(ctx, opContactCustomer, req.IdempotencyKey, &cached); err != nil {
		e.log.WithError(err).Warn("idempotency lookup failed for contact_customer")
	} else if hit {
		return &cached, nil
	}

	c, err := e.store.ContactCustomer(ctx, req.AlertID, req.CustomerID, req.SuspectTxnID, req.Actor)
	if err != nil {
		return nil, err
	}

	result := &ContactCustomerResult{Status: "CLOSED", CaseID: c.ID}
	e.put(ctx, opContactCustomer, req.IdempotencyKey, result)
	return result, nil
}

// MarkFalsePositive implements spec.md §4.9's mark_false_positive.
func (e *Executor) MarkFalsePositive(ctx context.Context, req MarkFalsePositiveRequest) (*MarkFalsePositiveResult, error) {
	var cached MarkFalsePositiveResult
	if hit, err := e.idempotency.Get(ctx, opMarkFalsePositive, req.IdempotencyKey, &cached); err != nil {
		e.log.WithError(err).Warn("idempotency lookup failed for mark_false_positive")
	} else if hit {
		return &cached, nil
	}

	c, err := e.store.MarkFalsePositive(ctx, req.AlertID, req.CustomerID, req.SuspectTxnID, req.Actor)
	if err != nil {
		return nil, err
	}

	result := &MarkFalsePositiveResult{Status: "CLOSED_FALSE_POSITIVE", CaseID: c.ID}
	e.put(ctx, opMarkFalsePositive, req.IdempotencyKey, result)
	return result, nil
}

func (e *Executor) put(ctx context.Context, op, key string, result interface{}) {
	if err := e.idempotency.Put(ctx, op, key, result); err != nil {
		e.log.WithError(err).Warn("failed to persist idempotency result for " + op)
	}
}
