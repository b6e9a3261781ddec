package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/riskops/triage/domain/triagerun"
)

type runRow struct {
	ID           string         `db:"id"`
	AlertID      string         `db:"alert_id"`
	StartedAt    time.Time      `db:"started_at"`
	EndedAt      sql.NullTime   `db:"ended_at"`
	Risk         sql.NullString `db:"risk"`
	Reasons      []byte         `db:"reasons"` // json array, redacted
	FallbackUsed bool           `db:"fallback_used"`
	LatencyMS    sql.NullInt64  `db:"latency_ms"`
}

// CreateRun persists a Run's starting state (spec.md §3 invariant 1).
func (s *Store) CreateRun(ctx context.Context, run triagerun.Run) error {
	reasonsJSON, err := marshalReasons(run.Reasons)
	if err != nil {
		return wrapErr("create_run", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO triage_runs (id, alert_id, started_at, fallback_used, reasons) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.AlertID, run.StartedAt, run.FallbackUsed, reasonsJSON,
	)
	return wrapErr("create_run", err)
}

// FinalizeRun sets a Run's terminal fields exactly once (spec.md §3
// invariant 1/2). The WHERE clause guards against double-finalization.
func (s *Store) FinalizeRun(ctx context.Context, runID string, result triagerun.Run) error {
	reasonsJSON, err := marshalReasons(result.Reasons)
	if err != nil {
		return wrapErr("finalize_run", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE triage_runs SET ended_at = $1, risk = $2, reasons = $3, fallback_used = $4, latency_ms = $5
		 WHERE id = $6 AND ended_at IS NULL`,
		result.EndedAt, result.Risk, reasonsJSON, result.FallbackUsed, result.LatencyMS, runID,
	)
	if err != nil {
		return wrapErr("finalize_run", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr("finalize_run", err)
	}
	if n == 0 {
		return wrapErr("finalize_run", errAlreadyTerminal(runID))
	}
	return nil
}

// GetRun reads one run's current state, terminal or not.
func (s *Store) GetRun(ctx context.Context, runID string) (triagerun.Run, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, alert_id, started_at, ended_at, risk, reasons, fallback_used, latency_ms FROM triage_runs WHERE id = $1`,
		runID,
	)
	if err != nil {
		return triagerun.Run{}, wrapGetErr("triage_run", runID, "get_run", err)
	}
	return rowToRun(row)
}

// GetActiveRunForAlert returns the non-terminal run for alertID, if any —
// the Data Store's own enforcement of spec.md §3 invariant 2, backing
// orchestrator.RunRegistry's faster in-memory check.
func (s *Store) GetActiveRunForAlert(ctx context.Context, alertID string) (triagerun.Run, bool, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, alert_id, started_at, ended_at, risk, reasons, fallback_used, latency_ms
		 FROM triage_runs WHERE alert_id = $1 AND ended_at IS NULL LIMIT 1`,
		alertID,
	)
	if err == sql.ErrNoRows {
		return triagerun.Run{}, false, nil
	}
	if err != nil {
		return triagerun.Run{}, false, wrapErr("get_active_run_for_alert", err)
	}
	run, err := rowToRun(row)
	return run, true, err
}

// ListRecentRuns returns the most recently started runs, terminal or not,
// for read-only analytics (spec.md §6 "Evals").
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]triagerun.Run, error) {
	if limit <= 0 {
		limit = 200
	}
	var rows []runRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, alert_id, started_at, ended_at, risk, reasons, fallback_used, latency_ms
		 FROM triage_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, wrapErr("list_recent_runs", err)
	}
	out := make([]triagerun.Run, 0, len(rows))
	for _, row := range rows {
		run, err := rowToRun(row)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

func rowToRun(row runRow) (triagerun.Run, error) {
	reasons, err := unmarshalReasons(row.Reasons)
	if err != nil {
		return triagerun.Run{}, wrapErr("decode_run_reasons", err)
	}
	run := triagerun.Run{
		ID:           row.ID,
		AlertID:      row.AlertID,
		StartedAt:    row.StartedAt,
		Risk:         row.Risk.String,
		Reasons:      reasons,
		FallbackUsed: row.FallbackUsed,
	}
	if row.EndedAt.Valid {
		t := row.EndedAt.Time
		run.EndedAt = &t
	}
	if row.LatencyMS.Valid {
		v := row.LatencyMS.Int64
		run.LatencyMS = &v
	}
	return run, nil
}

type traceRow struct {
	RunID      string `db:"run_id"`
	Seq        int    `db:"seq"`
	Step       string `db:"step"`
	OK         bool   `db:"ok"`
	DurationMS int64  `db:"duration_ms"`
	Detail     string `db:"detail"`
}

func (r traceRow) toDomain() triagerun.Trace {
	return triagerun.Trace{RunID: r.RunID, Seq: r.Seq, Step: r.Step, OK: r.OK, DurationMS: r.DurationMS, Detail: r.Detail}
}

// AppendTrace inserts one step's trace row. seq is assigned by the
// Orchestrator and must already form a contiguous prefix (spec.md §3
// invariant 3); the unique index on (run_id, seq) catches a violation.
func (s *Store) AppendTrace(ctx context.Context, trace triagerun.Trace) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agent_traces (run_id, seq, step, ok, duration_ms, detail) VALUES ($1, $2, $3, $4, $5, $6)`,
		trace.RunID, trace.Seq, trace.Step, trace.OK, trace.DurationMS, trace.Detail,
	)
	return wrapErr("append_trace", err)
}

// ListTraces returns a run's traces ordered by seq (spec.md §6 "Get Triage
// Status").
func (s *Store) ListTraces(ctx context.Context, runID string) ([]triagerun.Trace, error) {
	var rows []traceRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT run_id, seq, step, ok, duration_ms, detail FROM agent_traces WHERE run_id = $1 ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, wrapErr("list_traces", err)
	}
	out := make([]triagerun.Trace, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}
