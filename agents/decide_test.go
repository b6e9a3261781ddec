package agents

import (
	"context"
	"testing"
	"time"

	"github.com/riskops/triage/domain/customer"
	"github.com/riskops/triage/domain/transaction"
)

func TestLevelForScoreBoundaries(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{0, "low"}, {49, "low"}, {50, "medium"}, {79, "medium"}, {80, "high"}, {100, "high"},
	}
	for _, c := range cases {
		if got := levelForScore(c.score); got != c.want {
			t.Errorf("levelForScore(%d) = %s, want %s", c.score, got, c.want)
		}
	}
}

func TestAnalyzeProfileEmptyHistoryIsLowRegular(t *testing.T) {
	got := analyzeProfile(nil)
	if got.tier != "low" || got.pattern != "regular" {
		t.Fatalf("unexpected analysis for empty history: %+v", got)
	}
}

func TestAnalyzeProfileConcentratedSpend(t *testing.T) {
	txns := []transaction.Transaction{
		{Merchant: "Acme", AmountMinorUnits: 600_000},
		{Merchant: "Other", AmountMinorUnits: 1_000},
	}
	got := analyzeProfile(txns)
	if got.pattern != "concentrated" {
		t.Fatalf("expected concentrated pattern, got %s", got.pattern)
	}
	if got.tier != "high" {
		t.Fatalf("expected high tier for total over $5000, got %s", got.tier)
	}
}

func TestAnalyzeProfileHighFrequency(t *testing.T) {
	var txns []transaction.Transaction
	for i := 0; i < 61; i++ {
		txns = append(txns, transaction.Transaction{Merchant: "Grocer", AmountMinorUnits: 100})
	}
	got := analyzeProfile(txns)
	if got.pattern != "high_frequency" {
		t.Fatalf("expected high_frequency pattern for 61 transactions, got %s", got.pattern)
	}
}

func TestComposeDecisionEscalatesMediumToHighForHighTierProfile(t *testing.T) {
	risk := &RiskSignalsResult{Score: 60, Reasons: []string{"a", "b"}}
	analysis := profileAnalysis{tier: "high", pattern: "regular"}
	result := composeDecision(risk, analysis, customer.Customer{KYCLevel: customer.KYCVerified})
	if result.Level != "high" {
		t.Fatalf("expected medium score to escalate to high for a high-tier profile, got %s", result.Level)
	}
}

func TestComposeDecisionConfidenceCapsAtNinetyFive(t *testing.T) {
	risk := &RiskSignalsResult{Score: 90, Reasons: []string{"a", "b", "c", "d", "e"}}
	analysis := profileAnalysis{tier: "low", pattern: "regular"}
	result := composeDecision(risk, analysis, customer.Customer{KYCLevel: customer.KYCVerified})
	if result.Confidence > 95 {
		t.Fatalf("expected confidence capped at 95, got %d", result.Confidence)
	}
}

func TestDecideRunFallsBackWhenRiskSignalsMissing(t *testing.T) {
	d := NewDecide(time.Second)
	rc := &RunContext{Context: context.Background()}
	result, err := d.Run(rc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := result.(*DecideResult)
	if got.Level == "" {
		t.Fatal("expected a level even with no upstream RiskSignals result")
	}
	if rc.Decision != got {
		t.Fatal("expected Run to stash its result on RunContext.Decision")
	}
}

func TestDecideIsNonCritical(t *testing.T) {
	d := NewDecide(time.Second)
	if d.Critical() {
		t.Fatal("expected Decide to be non-critical")
	}
}

func TestFallbackDecideIsMarked(t *testing.T) {
	fb := FallbackDecide()
	if !fb.Fallback || fb.Level != "medium" {
		t.Fatalf("unexpected fallback: %+v", fb)
	}
}
