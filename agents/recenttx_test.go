package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskops/triage/domain/transaction"
)

type fakeRecentTxStore struct {
	since time.Time
	limit int
	txns  []transaction.Transaction
	err   error
}

func (f *fakeRecentTxStore) ListTransactionsSince(ctx context.Context, customerID string, since time.Time, limit int) ([]transaction.Transaction, error) {
	f.since = since
	f.limit = limit
	return f.txns, f.err
}

func TestRecentTxRunWindowsToThirtyDays(t *testing.T) {
	store := &fakeRecentTxStore{txns: []transaction.Transaction{{ID: "txn-1"}}}
	fixedNow := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
	r := NewRecentTx(store, time.Second)
	r.now = func() time.Time { return fixedNow }

	rc := &RunContext{Context: context.Background(), CustomerID: "cust-1"}
	result, err := r.Run(rc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.limit != recentTxLimit {
		t.Fatalf("expected limit %d, got %d", recentTxLimit, store.limit)
	}
	wantSince := fixedNow.Add(-recentTxWindow)
	if !store.since.Equal(wantSince) {
		t.Fatalf("expected since %v, got %v", wantSince, store.since)
	}
	if rc.RecentTx != result.(*RecentTxResult) {
		t.Fatal("expected Run to stash its result on RunContext.RecentTx")
	}
}

func TestRecentTxRunReturnsErrorOnStoreFailure(t *testing.T) {
	store := &fakeRecentTxStore{err: errors.New("timeout")}
	r := NewRecentTx(store, time.Second)

	rc := &RunContext{Context: context.Background(), CustomerID: "cust-1"}
	if _, err := r.Run(rc); err == nil {
		t.Fatal("expected an error when the store fails")
	}
}

func TestRecentTxIsCritical(t *testing.T) {
	r := NewRecentTx(&fakeRecentTxStore{}, time.Second)
	if !r.Critical() {
		t.Fatal("expected RecentTx to be a critical step")
	}
}
