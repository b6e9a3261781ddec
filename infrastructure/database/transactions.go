package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/riskops/triage/domain/transaction"
)

type transactionRow struct {
	ID               string         `db:"id"`
	CustomerID       string         `db:"customer_id"`
	CardID           string         `db:"card_id"`
	MCC              string         `db:"mcc"`
	Merchant         string         `db:"merchant"`
	AmountMinorUnits int64          `db:"amount_minor_units"`
	Currency         string         `db:"currency"`
	TS               time.Time      `db:"ts"`
	DeviceID         sql.NullString `db:"device_id"`
	Country          sql.NullString `db:"country"`
	City             sql.NullString `db:"city"`
}

func (r transactionRow) toDomain() transaction.Transaction {
	return transaction.Transaction{
		ID:               r.ID,
		CustomerID:       r.CustomerID,
		CardID:           r.CardID,
		MCC:              r.MCC,
		Merchant:         r.Merchant,
		AmountMinorUnits: r.AmountMinorUnits,
		Currency:         r.Currency,
		TS:               r.TS,
		DeviceID:         r.DeviceID.String,
		Country:          r.Country.String,
		City:             r.City.String,
	}
}

// GetTransaction reads one transaction by id.
func (s *Store) GetTransaction(ctx context.Context, txnID string) (transaction.Transaction, error) {
	var row transactionRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, customer_id, card_id, mcc, merchant, amount_minor_units, currency, ts, device_id, country, city
		 FROM transactions WHERE id = $1`, txnID)
	if err != nil {
		return transaction.Transaction{}, wrapGetErr("transaction", txnID, "get_transaction", err)
	}
	return row.toDomain(), nil
}

// ListTransactionsSince returns customerID's transactions with ts >= since,
// most-recent first, capped at limit. Backs RecentTx (30-day window,
// limit 100) and RiskSignals (90-day window, limit 2000) via the
// (customer_id, ts DESC, id) index (spec.md §4.4, §6).
func (s *Store) ListTransactionsSince(ctx context.Context, customerID string, since time.Time, limit int) ([]transaction.Transaction, error) {
	var rows []transactionRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, customer_id, card_id, mcc, merchant, amount_minor_units, currency, ts, device_id, country, city
		 FROM transactions
		 WHERE customer_id = $1 AND ts >= $2
		 ORDER BY ts DESC, id
		 LIMIT $3`,
		customerID, since, limit,
	)
	if err != nil {
		return nil, wrapErr("list_transactions_since", err)
	}
	out := make([]transaction.Transaction, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// ListTransactionsPage implements keyset pagination over a customer's
// transaction history using a cursor shaped "{lastId}|{lastTsISO}"
// (spec.md §6 "Persisted state"). An empty cursor starts from the most
// recent transaction. The returned cursor is empty once the page is the
// last one.
func (s *Store) ListTransactionsPage(ctx context.Context, customerID, cursor string, limit int) ([]transaction.Transaction, string, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []transactionRow
	var err error
	if cursor == "" {
		err = s.db.SelectContext(ctx, &rows,
			`SELECT id, customer_id, card_id, mcc, merchant, amount_minor_units, currency, ts, device_id, country, city
			 FROM transactions WHERE customer_id = $1 ORDER BY ts DESC, id LIMIT $2`,
			customerID, limit+1,
		)
	} else {
		lastID, lastTS, decodeErr := decodeCursor(cursor)
		if decodeErr != nil {
			return nil, "", decodeErr
		}
		err = s.db.SelectContext(ctx, &rows,
			`SELECT id, customer_id, card_id, mcc, merchant, amount_minor_units, currency, ts, device_id, country, city
			 FROM transactions
			 WHERE customer_id = $1 AND (ts, id) < ($2, $3)
			 ORDER BY ts DESC, id LIMIT $4`,
			customerID, lastTS, lastID, limit+1,
		)
	}
	if err != nil {
		return nil, "", wrapErr("list_transactions_page", err)
	}

	var nextCursor string
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		nextCursor = encodeCursor(last.ID, last.TS)
	}

	out := make([]transaction.Transaction, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nextCursor, nil
}

func encodeCursor(id string, ts time.Time) string {
	return id + "|" + ts.UTC().Format(time.RFC3339Nano)
}

func decodeCursor(cursor string) (string, time.Time, error) {
	parts := strings.SplitN(cursor, "|", 2)
	if len(parts) != 2 {
		return "", time.Time{}, wrapErr("decode_cursor", fmt.Errorf("malformed cursor %q", cursor))
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[1])
	if err != nil {
		return "", time.Time{}, wrapErr("decode_cursor", err)
	}
	return parts[0], ts, nil
}

// CreateTransaction inserts a transaction, silently no-oping on a
// duplicate natural key (customerId, merchant, amountMinorUnits, ts) per
// spec.md §3's dedup invariant.
func (s *Store) CreateTransaction(ctx context.Context, t transaction.Transaction) (transaction.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, customer_id, card_id, mcc, merchant, amount_minor_units, currency, ts, device_id, country, city)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (customer_id, merchant, amount_minor_units, ts) DO NOTHING`,
		t.ID, t.CustomerID, t.CardID, t.MCC, t.Merchant, t.AmountMinorUnits, t.Currency, t.TS,
		nullable(t.DeviceID), nullable(t.Country), nullable(t.City),
	)
	if err != nil {
		return transaction.Transaction{}, wrapErr("create_transaction", err)
	}
	return t, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
