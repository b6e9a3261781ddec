package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func serverForAlerts(t *testing.T) (*Server, sqlmock.Sqlmock, func()) {
	t.Helper()
	store, mock, closeFn := newTestStore(t)
	s := &Server{store: store, auth: testAuth(), log: testLogger()}
	return s, mock, closeFn
}

func TestHandleListAlertsEmbedsCustomerAndTransactionSummaries(t *testing.T) {
	s, mock, closeFn := serverForAlerts(t)
	defer closeFn()

	created := time.Now().UTC()
	alertRows := sqlmock.NewRows([]string{"id", "customer_id", "suspect_txn_id", "risk", "status", "created_at"}).
		AddRow("alert-1", "cust-1", "txn-1", "high", "OPEN", created)
	mock.ExpectQuery(`SELECT id, customer_id, suspect_txn_id, risk, status, created_at FROM alerts ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(defaultAlertsLimit).
		WillReturnRows(alertRows)

	custRows := sqlmock.NewRows([]string{"id", "name", "email_masked", "kyc_level", "created_at"}).
		AddRow("cust-1", "Jane Doe", "j***@example.com", "verified", created)
	mock.ExpectQuery(`SELECT id, name, email_masked, kyc_level, created_at FROM customers WHERE id = \$1`).
		WithArgs("cust-1").
		WillReturnRows(custRows)

	txnRows := sqlmock.NewRows([]string{"id", "customer_id", "card_id", "mcc", "merchant", "amount_minor_units", "currency", "ts", "device_id", "country", "city"}).
		AddRow("txn-1", "cust-1", "card-1", "5411", "Acme Corp", int64(4200), "USD", created, "device-1", "US", "NYC")
	mock.ExpectQuery(`SELECT id, customer_id, card_id, mcc, merchant, amount_minor_units, currency, ts, device_id, country, city\s+FROM transactions WHERE id = \$1`).
		WithArgs("txn-1").
		WillReturnRows(txnRows)

	req := httptest.NewRequest(http.MethodGet, "/alerts", nil)
	rec := httptest.NewRecorder()
	s.handleListAlerts(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out []alertDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(out))
	}
	if out[0].Customer.Name != "Jane Doe" || out[0].SuspectTxn.Merchant != "Acme Corp" {
		t.Fatalf("unexpected embedded summaries: %+v", out[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestHandleListAlertsDegradesSummariesOnLookupFailure(t *testing.T) {
	s, mock, closeFn := serverForAlerts(t)
	defer closeFn()

	created := time.Now().UTC()
	alertRows := sqlmock.NewRows([]string{"id", "customer_id", "suspect_txn_id", "risk", "status", "created_at"}).
		AddRow("alert-2", "cust-missing", "txn-missing", "low", "OPEN", created)
	mock.ExpectQuery(`SELECT id, customer_id, suspect_txn_id, risk, status, created_at FROM alerts ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(defaultAlertsLimit).
		WillReturnRows(alertRows)
	mock.ExpectQuery(`SELECT id, name, email_masked, kyc_level, created_at FROM customers WHERE id = \$1`).
		WithArgs("cust-missing").
		WillReturnError(sqlNoRows())
	mock.ExpectQuery(`SELECT id, customer_id, card_id, mcc, merchant, amount_minor_units, currency, ts, device_id, country, city\s+FROM transactions WHERE id = \$1`).
		WithArgs("txn-missing").
		WillReturnError(sqlNoRows())

	req := httptest.NewRequest(http.MethodGet, "/alerts", nil)
	rec := httptest.NewRecorder()
	s.handleListAlerts(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 even when summaries can't resolve, got %d: %s", rec.Code, rec.Body.String())
	}
	var out []alertDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != 1 || out[0].Customer.Name != "" || out[0].SuspectTxn.Merchant != "" {
		t.Fatalf("expected zero-value summaries on lookup failure, got %+v", out)
	}
}
