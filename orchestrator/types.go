// Package orchestrator builds and executes the fixed triage step plan
// under per-step and overall deadlines, substituting deterministic
// fallbacks on partial failure, and persists the resulting run and trace
// records (spec.md §4.6).
package orchestrator

import (
	"context"

	"github.com/riskops/triage/domain/triagerun"
)

// Request is the inbound triage request (spec.md §6 "Start Triage").
type Request struct {
	RunID        string
	AlertID      string
	CustomerID   string
	SuspectTxnID string
	Role         string
}

// Result is the Orchestrator's output: the final decision plus the
// best-effort write-up produced by the Summarizer.
type Result struct {
	RunID           string
	Risk            string
	ProposedAction  string
	Confidence      int
	Reasons         []string
	Citations       []string
	RequiresOTP     bool
	Approved        bool
	BlockedBy       string
	FallbackUsed    bool
	LatencyMS       int64
	CustomerMessage string
	InternalNote    string
	RiskSummary     string
	ActionSummary   string
	NextSteps       []string
}

// RunStore persists TriageRun lifecycle events.
type RunStore interface {
	CreateRun(ctx context.Context, run triagerun.Run) error
	FinalizeRun(ctx context.Context, runID string, result triagerun.Run) error
}

// TraceStore persists append-only AgentTrace rows.
type TraceStore interface {
	AppendTrace(ctx context.Context, trace triagerun.Trace) error
}

// AlertStore drives the Alert status transition triage start requires
// (OPEN -> INVESTIGATING). Optional: a nil AlertStore skips the
// transition, for callers that manage it elsewhere.
type AlertStore interface {
	StartInvestigating(ctx context.Context, alertID string) error
}
