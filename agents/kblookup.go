package agents

import (
	"context"
	"time"

	"github.com/riskops/triage/infrastructure/kbsearch"
)

// kbRetriever is the subset of kbsearch.Retriever's surface KBLookup needs.
type kbRetriever interface {
	Search(ctx context.Context, reasons []string) ([]kbsearch.Result, []string)
}

// KBLookup wraps the KB Retriever as a pipeline step. Non-critical: a
// failure substitutes the fallback citation (spec.md §4.6).
type KBLookup struct {
	retriever kbRetriever
	timeout   time.Duration
}

func NewKBLookup(retriever kbRetriever, timeout time.Duration) *KBLookup {
	return &KBLookup{retriever: retriever, timeout: timeout}
}

func (k *KBLookup) Name() string           { return StepKBLookup }
func (k *KBLookup) Critical() bool         { return false }
func (k *KBLookup) Timeout() time.Duration { return k.timeout }

func (k *KBLookup) Run(rc *RunContext) (Result, error) {
	var reasons []string
	if rc.RiskSignals != nil {
		reasons = rc.RiskSignals.Reasons
	}

	hits, citations := k.retriever.Search(rc.Context, reasons)

	results := make([]KBResult, len(hits))
	for i, h := range hits {
		results[i] = KBResult{
			DocID:          h.DocID,
			Title:          h.Title,
			Anchor:         h.Anchor,
			Extract:        h.Extract,
			RelevanceScore: h.RelevanceScore,
		}
	}

	result := &KBLookupResult{Results: results, Citations: citations}
	rc.KBLookup = result
	return result, nil
}

// FallbackKBLookup is the deterministic substitute used when this step
// fails (spec.md §4.6).
func FallbackKBLookup() *KBLookupResult {
	return &KBLookupResult{
		Results:   nil,
		Citations: []string{"Fallback: Manual review recommended"},
		Fallback:  true,
	}
}
