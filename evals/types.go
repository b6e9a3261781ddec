// Package evals computes read-only analytics over persisted triage runs,
// traces, and alerts (spec.md §6 "Evals"). It never mutates state; every
// Report is derived entirely from what the Data Store already has on
// file for a completed run.
package evals

import (
	"context"

	"github.com/riskops/triage/domain/alert"
	"github.com/riskops/triage/domain/triagerun"
)

// Family names the four evaluation suites spec.md §6 enumerates.
type Family string

const (
	FamilyFraudDetection   Family = "fraud_detection"
	FamilyAgentPerformance Family = "agent_performance"
	FamilyKnowledgeBase    Family = "knowledge_base"
	FamilyCaseHandling     Family = "case_handling"
)

// ConfusionMatrix is the binary classification breakdown for families
// that frame their check as a positive/negative prediction.
type ConfusionMatrix struct {
	TruePositive  int `json:"truePositive"`
	FalsePositive int `json:"falsePositive"`
	TrueNegative  int `json:"trueNegative"`
	FalseNegative int `json:"falseNegative"`
}

// Failure is one test case that did not pass, surfaced for triage of the
// eval itself.
type Failure struct {
	ID     string `json:"id"`
	Detail string `json:"detail"`
}

const maxTopFailures = 10

// Report is the per-family result shape spec.md §6 names.
type Report struct {
	ID                string                 `json:"id"`
	Name              string                 `json:"name"`
	TestCases         int                    `json:"testCases"`
	Passed            int                    `json:"passed"`
	Failed            int                    `json:"failed"`
	Accuracy          float64                `json:"accuracy"`
	ConfusionMatrix   ConfusionMatrix        `json:"confusionMatrix"`
	TopFailures       []Failure              `json:"topFailures"`
	AdditionalMetrics map[string]interface{} `json:"additionalMetrics,omitempty"`
}

// Store is the read-only surface the Evaluator queries.
type Store interface {
	ListRecentRuns(ctx context.Context, limit int) ([]triagerun.Run, error)
	ListTraces(ctx context.Context, runID string) ([]triagerun.Trace, error)
	GetAlert(ctx context.Context, alertID string) (alert.Alert, error)
}

func finalize(id, name string, cases int, failures []Failure, matrix ConfusionMatrix, extra map[string]interface{}) Report {
	passed := cases - len(failures)
	var accuracy float64
	if cases > 0 {
		accuracy = float64(passed) / float64(cases)
	}
	top := failures
	if len(top) > maxTopFailures {
		top = top[:maxTopFailures]
	}
	return Report{
		ID:                id,
		Name:              name,
		TestCases:         cases,
		Passed:            passed,
		Failed:            len(failures),
		Accuracy:          accuracy,
		ConfusionMatrix:   matrix,
		TopFailures:       top,
		AdditionalMetrics: extra,
	}
}
