package database

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/riskops/triage/domain/alert"
)

type alertRow struct {
	ID           string    `db:"id"`
	CustomerID   string    `db:"customer_id"`
	SuspectTxnID string    `db:"suspect_txn_id"`
	Risk         string    `db:"risk"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r alertRow) toDomain() alert.Alert {
	return alert.Alert{
		ID:           r.ID,
		CustomerID:   r.CustomerID,
		SuspectTxnID: r.SuspectTxnID,
		Risk:         alert.Risk(r.Risk),
		Status:       alert.Status(r.Status),
		CreatedAt:    r.CreatedAt,
	}
}

// GetAlert reads one alert by id.
func (s *Store) GetAlert(ctx context.Context, alertID string) (alert.Alert, error) {
	var row alertRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, customer_id, suspect_txn_id, risk, status, created_at FROM alerts WHERE id = $1`, alertID)
	if err != nil {
		return alert.Alert{}, wrapGetErr("alert", alertID, "get_alert", err)
	}
	return row.toDomain(), nil
}

// ListAlerts returns alerts sorted by createdAt descending (spec.md §6
// "List Alerts"). The customer/transaction summaries that API embeds are
// assembled by the caller from GetCustomer/GetTransaction — this store
// stays entity-scoped.
func (s *Store) ListAlerts(ctx context.Context, limit int) ([]alert.Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []alertRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, customer_id, suspect_txn_id, risk, status, created_at FROM alerts ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, wrapErr("list_alerts", err)
	}
	out := make([]alert.Alert, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// CreateAlert inserts a new alert, assigning an id if none is set.
func (s *Store) CreateAlert(ctx context.Context, a alert.Alert) (alert.Alert, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.Status == "" {
		a.Status = alert.StatusOpen
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, customer_id, suspect_txn_id, risk, status, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.CustomerID, a.SuspectTxnID, string(a.Risk), string(a.Status), a.CreatedAt,
	)
	if err != nil {
		return alert.Alert{}, wrapErr("create_alert", err)
	}
	return a, nil
}

// StartInvestigating moves alertID from OPEN to INVESTIGATING when a
// triage run begins; a no-op if the alert has already left OPEN (spec.md
// §3 status lifecycle, §6 "Start Triage").
func (s *Store) StartInvestigating(ctx context.Context, alertID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET status = $1 WHERE id = $2 AND status = $3`,
		string(alert.StatusInvestigating), alertID, string(alert.StatusOpen),
	)
	return wrapErr("start_investigating", err)
}
