package agents

import (
	"context"
	"time"

	"github.com/riskops/triage/domain/transaction"
)

// recentTxDataStore is the Data Store surface RecentTx needs.
type recentTxDataStore interface {
	// ListTransactionsSince returns customerID's transactions with ts >= since,
	// ordered by ts descending, capped at limit.
	ListTransactionsSince(ctx context.Context, customerID string, since time.Time, limit int) ([]transaction.Transaction, error)
}

const recentTxWindow = 30 * 24 * time.Hour
const recentTxLimit = 100

// RecentTx reads transactions of customerId within the last 30 days,
// ordered by ts descending, capped at 100. Critical (spec.md §4.4).
type RecentTx struct {
	store   recentTxDataStore
	timeout time.Duration
	now     func() time.Time
}

func NewRecentTx(store recentTxDataStore, timeout time.Duration) *RecentTx {
	return &RecentTx{store: store, timeout: timeout, now: time.Now}
}

func (r *RecentTx) Name() string           { return StepRecentTx }
func (r *RecentTx) Critical() bool         { return true }
func (r *RecentTx) Timeout() time.Duration { return r.timeout }

func (r *RecentTx) Run(rc *RunContext) (Result, error) {
	since := r.now().Add(-recentTxWindow)
	txns, err := r.store.ListTransactionsSince(rc.Context, rc.CustomerID, since, recentTxLimit)
	if err != nil {
		return nil, err
	}

	result := &RecentTxResult{Transactions: txns}
	rc.RecentTx = result
	return result, nil
}
