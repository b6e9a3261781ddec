package agents

import (
	"context"
	"testing"
	"time"

	"github.com/riskops/triage/infrastructure/kbsearch"
)

type fakeKBRetriever struct {
	gotReasons []string
	hits       []kbsearch.Result
	citations  []string
}

func (f *fakeKBRetriever) Search(ctx context.Context, reasons []string) ([]kbsearch.Result, []string) {
	f.gotReasons = reasons
	return f.hits, f.citations
}

func TestKBLookupRunMapsHitsAndCitations(t *testing.T) {
	retriever := &fakeKBRetriever{
		hits: []kbsearch.Result{
			{DocID: "doc-1", Title: "Card Freeze Policy", Anchor: "#freeze", Extract: "...freeze within 24h...", RelevanceScore: 9},
		},
		citations: []string{"Card Freeze Policy (doc-1)"},
	}
	k := NewKBLookup(retriever, time.Second)

	rc := &RunContext{
		Context:     context.Background(),
		RiskSignals: &RiskSignalsResult{Reasons: []string{"new_device", "high_risk_merchant"}},
	}
	result, err := k.Run(rc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(retriever.gotReasons) != 2 || retriever.gotReasons[0] != "new_device" {
		t.Fatalf("expected the risk reasons to be forwarded to Search, got %v", retriever.gotReasons)
	}

	got := result.(*KBLookupResult)
	if len(got.Results) != 1 || got.Results[0].DocID != "doc-1" || got.Results[0].RelevanceScore != 9 {
		t.Fatalf("unexpected mapped results: %+v", got.Results)
	}
	if len(got.Citations) != 1 || got.Citations[0] != "Card Freeze Policy (doc-1)" {
		t.Fatalf("unexpected citations: %+v", got.Citations)
	}
	if rc.KBLookup != got {
		t.Fatal("expected Run to stash its result on RunContext.KBLookup")
	}
}

func TestKBLookupRunHandlesNilRiskSignals(t *testing.T) {
	retriever := &fakeKBRetriever{}
	k := NewKBLookup(retriever, time.Second)

	rc := &RunContext{Context: context.Background()}
	if _, err := k.Run(rc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retriever.gotReasons != nil {
		t.Fatalf("expected no reasons to be passed when RiskSignals is nil, got %v", retriever.gotReasons)
	}
}

func TestKBLookupRunWithNoHitsReturnsEmptySlice(t *testing.T) {
	retriever := &fakeKBRetriever{citations: []string{"General fraud review checklist"}}
	k := NewKBLookup(retriever, time.Second)

	rc := &RunContext{Context: context.Background(), RiskSignals: &RiskSignalsResult{Reasons: []string{"x"}}}
	result, err := k.Run(rc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := result.(*KBLookupResult)
	if len(got.Results) != 0 {
		t.Fatalf("expected no results, got %+v", got.Results)
	}
	if len(got.Citations) != 1 {
		t.Fatalf("expected the fallback-free citation list to pass through, got %+v", got.Citations)
	}
}

func TestKBLookupIsNonCritical(t *testing.T) {
	k := NewKBLookup(&fakeKBRetriever{}, time.Second)
	if k.Critical() {
		t.Fatal("expected KBLookup to be non-critical")
	}
}

func TestFallbackKBLookupIsMarked(t *testing.T) {
	fb := FallbackKBLookup()
	if !fb.Fallback || len(fb.Citations) == 0 {
		t.Fatalf("unexpected fallback: %+v", fb)
	}
}
