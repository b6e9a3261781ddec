package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/riskops/triage/domain/fraudcase"
)

type caseRow struct {
	ID         string         `db:"id"`
	CustomerID string         `db:"customer_id"`
	TxnID      sql.NullString `db:"txn_id"`
	Type       string         `db:"type"`
	Status     string         `db:"status"`
	ReasonCode string         `db:"reason_code"`
}

func (r caseRow) toDomain() fraudcase.Case {
	return fraudcase.Case{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		TxnID:      r.TxnID.String,
		Type:       fraudcase.Type(r.Type),
		Status:     fraudcase.Status(r.Status),
		ReasonCode: r.ReasonCode,
	}
}

type caseEventRow struct {
	CaseID  string    `db:"case_id"`
	Actor   string    `db:"actor"`
	Action  string    `db:"action"`
	TS      time.Time `db:"ts"`
	Payload string    `db:"payload"`
}

func (r caseEventRow) toDomain() fraudcase.Event {
	return fraudcase.Event{CaseID: r.CaseID, Actor: r.Actor, Action: r.Action, TS: r.TS, Payload: r.Payload}
}

// GetCase reads one case with its events.
func (s *Store) GetCase(ctx context.Context, caseID string) (fraudcase.Case, error) {
	var row caseRow
	if err := s.db.GetContext(ctx, &row, `SELECT id, customer_id, txn_id, type, status, reason_code FROM cases WHERE id = $1`, caseID); err != nil {
		return fraudcase.Case{}, wrapGetErr("case", caseID, "get_case", err)
	}
	var eventRows []caseEventRow
	if err := s.db.SelectContext(ctx, &eventRows, `SELECT case_id, actor, action, ts, payload FROM case_events WHERE case_id = $1 ORDER BY ts`, caseID); err != nil {
		return fraudcase.Case{}, wrapErr("list_case_events", err)
	}
	c := row.toDomain()
	c.Events = make([]fraudcase.Event, len(eventRows))
	for i, e := range eventRows {
		c.Events[i] = e.toDomain()
	}
	return c, nil
}

// GetOpenDisputeForTxn returns a non-terminal DISPUTE case for txnID, if
// one exists — backs open_dispute's idempotent replay (spec.md §4.9).
func (s *Store) GetOpenDisputeForTxn(ctx context.Context, txnID string) (fraudcase.Case, bool, error) {
	var row caseRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, customer_id, txn_id, type, status, reason_code FROM cases
		 WHERE txn_id = $1 AND type = $2 AND status NOT IN ($3, $4) LIMIT 1`,
		txnID, string(fraudcase.TypeDispute), string(fraudcase.StatusClosed), string(fraudcase.StatusClosedFalsePositive),
	)
	if err == sql.ErrNoRows {
		return fraudcase.Case{}, false, nil
	}
	if err != nil {
		return fraudcase.Case{}, false, wrapErr("get_open_dispute_for_txn", err)
	}
	return row.toDomain(), true, nil
}

func insertCaseTx(ctx context.Context, tx *sqlx.Tx, c fraudcase.Case) (fraudcase.Case, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO cases (id, customer_id, txn_id, type, status, reason_code) VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.CustomerID, nullable(c.TxnID), string(c.Type), string(c.Status), c.ReasonCode,
	)
	if err != nil {
		return fraudcase.Case{}, err
	}
	return c, nil
}

func insertCaseEventTx(ctx context.Context, tx *sqlx.Tx, e fraudcase.Event) error {
	if e.TS.IsZero() {
		e.TS = time.Now().UTC()
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO case_events (case_id, actor, action, ts, payload) VALUES ($1, $2, $3, $4, $5)`,
		e.CaseID, e.Actor, e.Action, e.TS, e.Payload,
	)
	return err
}
