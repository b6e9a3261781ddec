package evals

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/riskops/triage/domain/alert"
	svcerrors "github.com/riskops/triage/infrastructure/errors"
)

const sampleSize = 200

// Evaluator computes Reports on demand from whatever the Data Store
// currently holds; it keeps no state of its own between calls.
type Evaluator struct {
	store Store
}

func NewEvaluator(store Store) *Evaluator {
	return &Evaluator{store: store}
}

// Evaluate dispatches to the named family's computation.
func (e *Evaluator) Evaluate(ctx context.Context, family Family) (*Report, error) {
	switch family {
	case FamilyFraudDetection:
		return e.fraudDetection(ctx)
	case FamilyAgentPerformance:
		return e.agentPerformance(ctx)
	case FamilyKnowledgeBase:
		return e.knowledgeBase(ctx)
	case FamilyCaseHandling:
		return e.caseHandling(ctx)
	default:
		return nil, svcerrors.Validation(fmt.Sprintf("unknown eval family %q", family), "family")
	}
}

// fraudDetection compares each finalized run's predicted risk bucket
// against the risk bucket the alert carried at intake — the
// triage-independent ground truth spec.md §3 assigns every Alert
// (`Alert.Risk`) — collapsed to a positive/negative split at the
// low/not-low boundary.
func (e *Evaluator) fraudDetection(ctx context.Context) (*Report, error) {
	runs, err := e.store.ListRecentRuns(ctx, sampleSize)
	if err != nil {
		return nil, err
	}

	var matrix ConfusionMatrix
	var failures []Failure
	cases := 0
	for _, run := range runs {
		if !run.Terminal() {
			continue
		}
		a, err := e.store.GetAlert(ctx, run.AlertID)
		if err != nil {
			continue // alert no longer resolvable; not a countable test case
		}
		cases++

		predictedPositive := run.Risk != "" && run.Risk != string(alert.RiskLow)
		actualPositive := a.Risk != alert.RiskLow

		switch {
		case predictedPositive && actualPositive:
			matrix.TruePositive++
		case predictedPositive && !actualPositive:
			matrix.FalsePositive++
			failures = append(failures, Failure{ID: run.ID, Detail: fmt.Sprintf("predicted %s, alert intake risk %s", run.Risk, a.Risk)})
		case !predictedPositive && actualPositive:
			matrix.FalseNegative++
			failures = append(failures, Failure{ID: run.ID, Detail: fmt.Sprintf("predicted %s, alert intake risk %s", run.Risk, a.Risk)})
		default:
			matrix.TrueNegative++
		}
	}

	report := finalize(string(FamilyFraudDetection), "Fraud Detection Accuracy", cases, failures, matrix, nil)
	return &report, nil
}

// agentPerformance scores step-level success across a sample of recent
// runs' traces: a passing test case is one trace row with ok=true.
func (e *Evaluator) agentPerformance(ctx context.Context) (*Report, error) {
	runs, err := e.store.ListRecentRuns(ctx, sampleSize)
	if err != nil {
		return nil, err
	}

	var failures []Failure
	cases := 0
	fallbackRuns := 0
	stepFailures := map[string]int{}
	for _, run := range runs {
		if run.FallbackUsed {
			fallbackRuns++
		}
		traces, err := e.store.ListTraces(ctx, run.ID)
		if err != nil {
			continue
		}
		for _, tr := range traces {
			cases++
			if tr.OK {
				continue
			}
			stepFailures[tr.Step]++
			failures = append(failures, Failure{ID: fmt.Sprintf("%s:%d", run.ID, tr.Seq), Detail: fmt.Sprintf("step %s failed", tr.Step)})
		}
	}

	var fallbackRate float64
	if len(runs) > 0 {
		fallbackRate = float64(fallbackRuns) / float64(len(runs))
	}

	report := finalize(string(FamilyAgentPerformance), "Agent Step Performance", cases, failures, ConfusionMatrix{}, map[string]interface{}{
		"fallbackRate":      fallbackRate,
		"stepFailureCounts": stepFailures,
		"sampledRunCount":   len(runs),
	})
	return &report, nil
}

// knowledgeBase scores kbLookup steps on whether they produced at least
// one citation, reading the redacted trace detail blob with gjson
// instead of re-parsing into agents.KBLookupResult.
func (e *Evaluator) knowledgeBase(ctx context.Context) (*Report, error) {
	runs, err := e.store.ListRecentRuns(ctx, sampleSize)
	if err != nil {
		return nil, err
	}

	var failures []Failure
	cases := 0
	fallbackHits := 0
	for _, run := range runs {
		traces, err := e.store.ListTraces(ctx, run.ID)
		if err != nil {
			continue
		}
		for _, tr := range traces {
			if tr.Step != "kbLookup" {
				continue
			}
			cases++
			citations := gjson.Get(tr.Detail, "Citations")
			if gjson.Get(tr.Detail, "Fallback").Bool() {
				fallbackHits++
			}
			if !citations.IsArray() || len(citations.Array()) == 0 {
				failures = append(failures, Failure{ID: fmt.Sprintf("%s:%d", run.ID, tr.Seq), Detail: "no citations returned"})
			}
		}
	}

	report := finalize(string(FamilyKnowledgeBase), "Knowledge Base Retrieval", cases, failures, ConfusionMatrix{}, map[string]interface{}{
		"fallbackHits": fallbackHits,
	})
	return &report, nil
}

// caseHandling checks whether a finalized run's alert actually progressed
// out of OPEN/INVESTIGATING — evidence that some Action Executor call
// followed triage through to a resolution, rather than the decision
// sitting unactioned.
func (e *Evaluator) caseHandling(ctx context.Context) (*Report, error) {
	runs, err := e.store.ListRecentRuns(ctx, sampleSize)
	if err != nil {
		return nil, err
	}

	var failures []Failure
	cases := 0
	for _, run := range runs {
		if !run.Terminal() {
			continue
		}
		a, err := e.store.GetAlert(ctx, run.AlertID)
		if err != nil {
			continue
		}
		cases++
		if a.Status == alert.StatusOpen || a.Status == alert.StatusInvestigating {
			failures = append(failures, Failure{ID: run.ID, Detail: fmt.Sprintf("alert %s still %s after triage completed", a.ID, a.Status)})
		}
	}

	report := finalize(string(FamilyCaseHandling), "Case Handling Follow-Through", cases, failures, ConfusionMatrix{}, nil)
	return &report, nil
}
