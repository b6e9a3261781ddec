package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/riskops/triage/domain/alert"
	"github.com/riskops/triage/domain/card"
	"github.com/riskops/triage/domain/fraudcase"
	svcerrors "github.com/riskops/triage/infrastructure/errors"
)

// FreezeCard implements the freeze_card unit of work (spec.md §4.9, §3
// invariant 6): card status, Case, and CaseEvent are written atomically.
// If the card is already FROZEN, no write happens and alreadyFrozen=true
// is returned so the caller can answer with idempotent success.
func (s *Store) FreezeCard(ctx context.Context, cardID, alertID, actor string) (alreadyFrozen bool, c fraudcase.Case, err error) {
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		var status string
		if selErr := tx.GetContext(ctx, &status, `SELECT status FROM cards WHERE id = $1 FOR UPDATE`, cardID); selErr != nil {
			if selErr == sql.ErrNoRows {
				return notFound("card", cardID)
			}
			return selErr
		}
		if status == string(card.StatusFrozen) {
			alreadyFrozen = true
			return nil
		}
		if status != string(card.StatusActive) {
			return svcerrors.Conflict("card is not eligible to be frozen", cardID)
		}

		if _, updErr := tx.ExecContext(ctx, `UPDATE cards SET status = $1 WHERE id = $2`, string(card.StatusFrozen), cardID); updErr != nil {
			return updErr
		}

		var customerID string
		if selErr := tx.GetContext(ctx, &customerID, `SELECT customer_id FROM cards WHERE id = $1`, cardID); selErr != nil {
			return selErr
		}

		newCase, caseErr := insertCaseTx(ctx, tx, fraudcase.Case{
			CustomerID: customerID,
			Type:       fraudcase.TypeCardFreeze,
			Status:     fraudcase.StatusOpen,
			ReasonCode: "TRIAGE_FREEZE_CARD",
		})
		if caseErr != nil {
			return caseErr
		}
		if evErr := insertCaseEventTx(ctx, tx, fraudcase.Event{CaseID: newCase.ID, Actor: actor, Action: fraudcase.ActionCardFrozen}); evErr != nil {
			return evErr
		}

		if alertID != "" {
			if trErr := transitionAlertTx(ctx, tx, alertID, alert.StatusResolved); trErr != nil {
				return trErr
			}
		}

		c = newCase
		return nil
	})
	return alreadyFrozen, c, wrapErr("freeze_card", err)
}

// OpenDispute implements the open_dispute unit of work (spec.md §4.9).
func (s *Store) OpenDispute(ctx context.Context, txnID, customerID, alertID, reasonCode, actor string) (fraudcase.Case, error) {
	var result fraudcase.Case
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		newCase, caseErr := insertCaseTx(ctx, tx, fraudcase.Case{
			CustomerID: customerID,
			TxnID:      txnID,
			Type:       fraudcase.TypeDispute,
			Status:     fraudcase.StatusOpen,
			ReasonCode: reasonCode,
		})
		if caseErr != nil {
			return caseErr
		}
		if evErr := insertCaseEventTx(ctx, tx, fraudcase.Event{CaseID: newCase.ID, Actor: actor, Action: fraudcase.ActionDisputeOpened}); evErr != nil {
			return evErr
		}
		if alertID != "" {
			if trErr := transitionAlertTx(ctx, tx, alertID, alert.StatusInvestigatingDisputeOpened); trErr != nil {
				return trErr
			}
		}
		result = newCase
		return nil
	})
	return result, wrapErr("open_dispute", err)
}

// ContactCustomer implements the contact_customer unit of work (spec.md
// §4.9).
func (s *Store) ContactCustomer(ctx context.Context, alertID, customerID, suspectTxnID, actor string) (fraudcase.Case, error) {
	var result fraudcase.Case
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		newCase, caseErr := insertCaseTx(ctx, tx, fraudcase.Case{
			CustomerID: customerID,
			TxnID:      suspectTxnID,
			Type:       fraudcase.TypeContactCustomer,
			Status:     fraudcase.StatusClosed,
			ReasonCode: "CUSTOMER_CONTACTED",
		})
		if caseErr != nil {
			return caseErr
		}
		if evErr := insertCaseEventTx(ctx, tx, fraudcase.Event{CaseID: newCase.ID, Actor: actor, Action: fraudcase.ActionCustomerContacted}); evErr != nil {
			return evErr
		}
		if trErr := transitionAlertTx(ctx, tx, alertID, alert.StatusContacted); trErr != nil {
			return trErr
		}
		result = newCase
		return nil
	})
	return result, wrapErr("contact_customer", err)
}

// MarkFalsePositive implements the mark_false_positive unit of work
// (spec.md §4.9).
func (s *Store) MarkFalsePositive(ctx context.Context, alertID, customerID, suspectTxnID, actor string) (fraudcase.Case, error) {
	var result fraudcase.Case
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		newCase, caseErr := insertCaseTx(ctx, tx, fraudcase.Case{
			CustomerID: customerID,
			TxnID:      suspectTxnID,
			Type:       fraudcase.TypeFalsePositive,
			Status:     fraudcase.StatusClosedFalsePositive,
			ReasonCode: "TRIAGE_FALSE_POSITIVE",
		})
		if caseErr != nil {
			return caseErr
		}
		if evErr := insertCaseEventTx(ctx, tx, fraudcase.Event{CaseID: newCase.ID, Actor: actor, Action: fraudcase.ActionMarkedFalsePositive}); evErr != nil {
			return evErr
		}
		if trErr := transitionAlertTx(ctx, tx, alertID, alert.StatusClosedFalsePositive); trErr != nil {
			return trErr
		}
		result = newCase
		return nil
	})
	return result, wrapErr("mark_false_positive", err)
}

// transitionAlertTx moves alertID to status `to` within tx, rejecting the
// write if the current status doesn't allow it (spec.md §3 status
// lifecycle). Terminal-to-terminal calls (e.g. a replayed idempotent
// action) are tolerated as no-ops rather than errors.
func transitionAlertTx(ctx context.Context, tx *sqlx.Tx, alertID string, to alert.Status) error {
	var current string
	if err := tx.GetContext(ctx, &current, `SELECT status FROM alerts WHERE id = $1 FOR UPDATE`, alertID); err != nil {
		if err == sql.ErrNoRows {
			return notFound("alert", alertID)
		}
		return err
	}
	if alert.Status(current) == to {
		return nil
	}
	if !alert.CanTransition(alert.Status(current), to) {
		return svcerrors.Conflict("alert status transition not allowed", alertID)
	}
	_, err := tx.ExecContext(ctx, `UPDATE alerts SET status = $1 WHERE id = $2`, string(to), alertID)
	return err
}
