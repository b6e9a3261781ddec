package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/riskops/triage/actionexecutor"
	svcerrors "github.com/riskops/triage/infrastructure/errors"
)

type freezeCardBody struct {
	CardID  string `json:"cardId"`
	AlertID string `json:"alertId"`
	OTP     string `json:"otp"`
}

type openDisputeBody struct {
	TxnID      string `json:"txnId"`
	CustomerID string `json:"customerId"`
	AlertID    string `json:"alertId"`
	ReasonCode string `json:"reasonCode"`
}

type contactCustomerBody struct {
	AlertID      string `json:"alertId"`
	CustomerID   string `json:"customerId"`
	SuspectTxnID string `json:"suspectTxnId"`
}

type markFalsePositiveBody struct {
	AlertID      string `json:"alertId"`
	CustomerID   string `json:"customerId"`
	SuspectTxnID string `json:"suspectTxnId"`
}

// handleAction implements spec.md §6 "Actions": one of freeze_card,
// open_dispute, contact_customer, mark_false_positive, every call
// idempotent on the Idempotency-Key header.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		writeError(w, svcerrors.Validation("Idempotency-Key header is required", "Idempotency-Key"))
		return
	}
	actor := claimsFrom(r).Subject
	role := claimsFrom(r).Role

	switch kind {
	case "freeze_card":
		var body freezeCardBody
		if err := decodeJSON(r, &body); err != nil || body.CardID == "" {
			writeError(w, svcerrors.Validation("cardId is required", "cardId"))
			return
		}
		result, err := s.executor.FreezeCard(r.Context(), actionexecutor.FreezeCardRequest{
			CardID: body.CardID, AlertID: body.AlertID, Actor: actor, Role: role, OTP: body.OTP, IdempotencyKey: idempotencyKey,
		})
		s.writeActionResult(w, kind, result, err)

	case "open_dispute":
		var body openDisputeBody
		if err := decodeJSON(r, &body); err != nil || body.TxnID == "" {
			writeError(w, svcerrors.Validation("txnId is required", "txnId"))
			return
		}
		result, err := s.executor.OpenDispute(r.Context(), actionexecutor.OpenDisputeRequest{
			TxnID: body.TxnID, CustomerID: body.CustomerID, AlertID: body.AlertID, ReasonCode: body.ReasonCode, Actor: actor, IdempotencyKey: idempotencyKey,
		})
		s.writeActionResult(w, kind, result, err)

	case "contact_customer":
		var body contactCustomerBody
		if err := decodeJSON(r, &body); err != nil || body.AlertID == "" {
			writeError(w, svcerrors.Validation("alertId is required", "alertId"))
			return
		}
		result, err := s.executor.ContactCustomer(r.Context(), actionexecutor.ContactCustomerRequest{
			AlertID: body.AlertID, CustomerID: body.CustomerID, SuspectTxnID: body.SuspectTxnID, Actor: actor, IdempotencyKey: idempotencyKey,
		})
		s.writeActionResult(w, kind, result, err)

	case "mark_false_positive":
		var body markFalsePositiveBody
		if err := decodeJSON(r, &body); err != nil || body.AlertID == "" {
			writeError(w, svcerrors.Validation("alertId is required", "alertId"))
			return
		}
		result, err := s.executor.MarkFalsePositive(r.Context(), actionexecutor.MarkFalsePositiveRequest{
			AlertID: body.AlertID, CustomerID: body.CustomerID, SuspectTxnID: body.SuspectTxnID, Actor: actor, IdempotencyKey: idempotencyKey,
		})
		s.writeActionResult(w, kind, result, err)

	default:
		writeError(w, svcerrors.Validation("unknown action kind", "kind"))
	}
}

func (s *Server) writeActionResult(w http.ResponseWriter, kind string, result interface{}, err error) {
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordAction(kind, "error")
		}
		writeError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordAction(kind, "ok")
	}
	writeJSON(w, http.StatusOK, result)
}
