package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/riskops/triage/actionexecutor"
	"github.com/riskops/triage/domain/fraudcase"
)

type fakeActionStore struct {
	frozen map[string]bool
}

func newFakeActionStore() *fakeActionStore { return &fakeActionStore{frozen: map[string]bool{}} }

func (s *fakeActionStore) FreezeCard(ctx context.Context, cardID, alertID, actor string) (bool, fraudcase.Case, error) {
	if s.frozen[cardID] {
		return true, fraudcase.Case{}, nil
	}
	s.frozen[cardID] = true
	return false, fraudcase.Case{ID: "case-" + cardID, Type: fraudcase.TypeCardFreeze}, nil
}

func (s *fakeActionStore) OpenDispute(ctx context.Context, txnID, customerID, alertID, reasonCode, actor string) (fraudcase.Case, error) {
	return fraudcase.Case{ID: "case-" + txnID, TxnID: txnID, Type: fraudcase.TypeDispute, Status: fraudcase.StatusOpen}, nil
}

func (s *fakeActionStore) ContactCustomer(ctx context.Context, alertID, customerID, suspectTxnID, actor string) (fraudcase.Case, error) {
	return fraudcase.Case{ID: "case-contact-" + alertID}, nil
}

func (s *fakeActionStore) MarkFalsePositive(ctx context.Context, alertID, customerID, suspectTxnID, actor string) (fraudcase.Case, error) {
	return fraudcase.Case{ID: "case-fp-" + alertID}, nil
}

func (s *fakeActionStore) GetOpenDisputeForTxn(ctx context.Context, txnID string) (fraudcase.Case, bool, error) {
	return fraudcase.Case{}, false, nil
}

type fakeIdempotency struct {
	stored map[string][]byte
}

func newFakeIdempotency() *fakeIdempotency { return &fakeIdempotency{stored: map[string][]byte{}} }

func (f *fakeIdempotency) Get(ctx context.Context, op, key string, result interface{}) (bool, error) {
	raw, ok := f.stored[op+":"+key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, result)
}

func (f *fakeIdempotency) Put(ctx context.Context, op, key string, result interface{}) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	f.stored[op+":"+key] = raw
	return nil
}

type fakeOTP struct{ valid map[string]bool }

func (f *fakeOTP) Verify(ctx context.Context, cardID, code string) bool {
	return f.valid[cardID+":"+code]
}

func serverForActions(t *testing.T) *Server {
	t.Helper()
	executor := actionexecutor.NewExecutor(newFakeActionStore(), newFakeIdempotency(), &fakeOTP{valid: map[string]bool{"card-1:123456": true}}, "lead", testLogger())
	return &Server{executor: executor, auth: testAuth(), log: testLogger()}
}

func actionRequest(t *testing.T, kind, idempotencyKey, body string, role string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/actions/"+kind, jsonBody(body))
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("kind", kind)
	req = req.WithContext(contextWithRouteCtx(req, rctx))
	claims := &Claims{Subject: "analyst-1", Role: role}
	req = req.WithContext(context.WithValue(req.Context(), claimsCtxKey, claims))
	return req
}

func TestHandleActionRequiresIdempotencyKey(t *testing.T) {
	s := serverForActions(t)
	req := actionRequest(t, "freeze_card", "", `{"cardId":"card-1","alertId":"alert-1"}`, "agent")
	rec := httptest.NewRecorder()
	s.handleAction(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key, got %d", rec.Code)
	}
}

func TestHandleActionFreezeCardRequiresOTPWithoutLeadRole(t *testing.T) {
	s := serverForActions(t)
	req := actionRequest(t, "freeze_card", "idem-1", `{"cardId":"card-1","alertId":"alert-1"}`, "agent")
	rec := httptest.NewRecorder()
	s.handleAction(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out actionexecutor.FreezeCardResult
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != "PENDING_OTP" {
		t.Fatalf("expected PENDING_OTP without an OTP or lead role, got %+v", out)
	}
}

func TestHandleActionFreezeCardSucceedsWithValidOTP(t *testing.T) {
	s := serverForActions(t)
	req := actionRequest(t, "freeze_card", "idem-2", `{"cardId":"card-1","alertId":"alert-1","otp":"123456"}`, "agent")
	rec := httptest.NewRecorder()
	s.handleAction(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out actionexecutor.FreezeCardResult
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != "FROZEN" {
		t.Fatalf("expected FROZEN with a valid OTP, got %+v", out)
	}
}

func TestHandleActionFreezeCardIsIdempotentOnReplay(t *testing.T) {
	s := serverForActions(t)
	req1 := actionRequest(t, "freeze_card", "idem-3", `{"cardId":"card-1","alertId":"alert-1","otp":"123456"}`, "agent")
	rec1 := httptest.NewRecorder()
	s.handleAction(rec1, req1)

	req2 := actionRequest(t, "freeze_card", "idem-3", `{"cardId":"card-1","alertId":"alert-1","otp":"123456"}`, "agent")
	rec2 := httptest.NewRecorder()
	s.handleAction(rec2, req2)

	if rec1.Body.String() != rec2.Body.String() {
		t.Fatalf("expected the replayed call to return the cached result verbatim, got %s vs %s", rec1.Body.String(), rec2.Body.String())
	}
}

func TestHandleActionRejectsUnknownKind(t *testing.T) {
	s := serverForActions(t)
	req := actionRequest(t, "self_destruct", "idem-4", `{}`, "agent")
	rec := httptest.NewRecorder()
	s.handleAction(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown action kind, got %d", rec.Code)
	}
}

func TestHandleActionOpenDisputeSucceeds(t *testing.T) {
	s := serverForActions(t)
	req := actionRequest(t, "open_dispute", "idem-5", `{"txnId":"txn-1","customerId":"cust-1","alertId":"alert-1","reasonCode":"unauthorized"}`, "agent")
	rec := httptest.NewRecorder()
	s.handleAction(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out actionexecutor.OpenDisputeResult
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != "OPEN" || out.CaseID == "" {
		t.Fatalf("unexpected result: %+v", out)
	}
}
