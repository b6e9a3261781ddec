package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskops/triage/domain/transaction"
)

type fakeRiskSignalsStore struct {
	suspect transaction.Transaction
	history []transaction.Transaction
	getErr  error
	listErr error
}

func (f *fakeRiskSignalsStore) ListTransactionsSince(ctx context.Context, customerID string, since time.Time, limit int) ([]transaction.Transaction, error) {
	return f.history, f.listErr
}

func (f *fakeRiskSignalsStore) GetTransaction(ctx context.Context, txnID string) (transaction.Transaction, error) {
	return f.suspect, f.getErr
}

func TestComputeRiskSignalsQuietHistoryScoresLow(t *testing.T) {
	now := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)
	suspect := transaction.Transaction{ID: "txn-now", CustomerID: "cust-1", Merchant: "Acme Corp", MCC: "5411", AmountMinorUnits: 4_200, TS: now, DeviceID: "device-1", Country: "US", City: "NYC"}

	var history []transaction.Transaction
	for i := 0; i < 30; i++ {
		history = append(history, transaction.Transaction{
			ID: "hist", CustomerID: "cust-1", Merchant: "Acme Corp", MCC: "5411",
			AmountMinorUnits: 4_000, TS: now.Add(-time.Duration(i) * 24 * time.Hour), DeviceID: "device-1", Country: "US", City: "NYC",
		})
	}

	result := computeRiskSignals(suspect, history)
	if result.Score > 30 {
		t.Fatalf("expected a low score for a regular transaction, got %d (%v)", result.Score, result.Reasons)
	}
	if result.NewDevice {
		t.Fatal("expected NewDevice false for a device seen throughout history")
	}
}

func TestComputeRiskSignalsFlagsNewDeviceAndHighRiskMerchant(t *testing.T) {
	now := time.Date(2026, 1, 31, 3, 0, 0, 0, time.UTC) // 3am, the same hour as every history entry below
	suspect := transaction.Transaction{
		ID: "txn-now", CustomerID: "cust-1", Merchant: "Unknown Cash Exchange", MCC: "5960",
		AmountMinorUnits: 200_000, TS: now, DeviceID: "device-new", Country: "RO", City: "Bucharest",
	}

	var history []transaction.Transaction
	for i := 1; i <= 20; i++ {
		history = append(history, transaction.Transaction{
			ID: "hist", CustomerID: "cust-1", Merchant: "Grocery Mart", MCC: "5411",
			AmountMinorUnits: 3_000, TS: now.Add(-time.Duration(i) * 24 * time.Hour), DeviceID: "device-old", Country: "US", City: "NYC",
		})
	}

	result := computeRiskSignals(suspect, history)
	if !result.NewDevice {
		t.Fatal("expected NewDevice true for a device never seen in history")
	}
	if !result.UnusualLocation {
		t.Fatal("expected UnusualLocation true for a country/city never seen in history")
	}
	if result.Merchant.RiskScore == 0 {
		t.Fatal("expected a non-zero merchant risk score for a high-risk MCC and suspicious name")
	}
	if result.ProposedAction == "monitor" {
		t.Fatalf("expected an elevated proposed action for a high-risk transaction, got %q (score %d)", result.ProposedAction, result.Score)
	}
	if result.Score < 50 {
		t.Fatalf("expected an elevated score, got %d (%v)", result.Score, result.Reasons)
	}
}

func TestComputeRiskSignalsEmptyHistoryNeverDivByZero(t *testing.T) {
	suspect := transaction.Transaction{ID: "txn-1", AmountMinorUnits: 1_000, TS: time.Now()}
	result := computeRiskSignals(suspect, nil)
	if result.Score < 0 || result.Score > 100 {
		t.Fatalf("expected score in [0,100], got %d", result.Score)
	}
	if len(result.Reasons) == 0 {
		t.Fatal("expected at least the no_significant_signals reason")
	}
}

func TestRiskSignalsRunReturnsErrorWhenSuspectLookupFails(t *testing.T) {
	store := &fakeRiskSignalsStore{getErr: errors.New("not found")}
	r := NewRiskSignals(store, time.Second)

	rc := &RunContext{Context: context.Background(), CustomerID: "cust-1", SuspectTxnID: "txn-1"}
	if _, err := r.Run(rc); err == nil {
		t.Fatal("expected an error when the suspect transaction can't be loaded")
	}
}

func TestRiskSignalsRunStashesResultOnRunContext(t *testing.T) {
	store := &fakeRiskSignalsStore{suspect: transaction.Transaction{ID: "txn-1", TS: time.Now()}}
	r := NewRiskSignals(store, time.Second)

	rc := &RunContext{Context: context.Background(), CustomerID: "cust-1", SuspectTxnID: "txn-1"}
	result, err := r.Run(rc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rc.RiskSignals != result.(*RiskSignalsResult) {
		t.Fatal("expected Run to stash its result on RunContext.RiskSignals")
	}
}

func TestRiskSignalsIsNonCritical(t *testing.T) {
	r := NewRiskSignals(&fakeRiskSignalsStore{}, time.Second)
	if r.Critical() {
		t.Fatal("expected RiskSignals to be non-critical")
	}
}

func TestFallbackRiskSignalsIsMarked(t *testing.T) {
	fb := FallbackRiskSignals()
	if !fb.Fallback || fb.Score != 50 {
		t.Fatalf("unexpected fallback: %+v", fb)
	}
}
