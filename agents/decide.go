package agents

import (
	"fmt"
	"time"

	"github.com/riskops/triage/domain/customer"
	"github.com/riskops/triage/domain/transaction"
)

const (
	tierHighTotalMinor   int64 = 500_000 // $5000 equivalent
	tierMediumTotalMinor int64 = 100_000 // $1000 equivalent
	highValueAvgMinor    int64 = 20_000  // $200 equivalent
	highFrequencyCount         = 60      // ~2/day over a 30-day window
)

// profileAnalysis classifies the customer's recent transaction history by
// tier and pattern; used only to adjust the final decision (spec.md §4.4).
type profileAnalysis struct {
	tier    string // low | medium | high
	pattern string // regular | concentrated | high_frequency | high_value
}

func analyzeProfile(txns []transaction.Transaction) profileAnalysis {
	if len(txns) == 0 {
		return profileAnalysis{tier: "low", pattern: "regular"}
	}

	var total int64
	byMerchant := map[string]int64{}
	for _, t := range txns {
		total += t.AmountMinorUnits
		byMerchant[t.Merchant] += t.AmountMinorUnits
	}
	avg := total / int64(len(txns))

	tier := "low"
	switch {
	case total > tierHighTotalMinor:
		tier = "high"
	case total > tierMediumTotalMinor:
		tier = "medium"
	}

	var topMerchantAmount int64
	for _, amount := range byMerchant {
		if amount > topMerchantAmount {
			topMerchantAmount = amount
		}
	}
	concentrated := total > 0 && float64(topMerchantAmount)/float64(total) > 0.5

	pattern := "regular"
	switch {
	case len(txns) > highFrequencyCount:
		pattern = "high_frequency"
	case concentrated:
		pattern = "concentrated"
	case avg > highValueAvgMinor:
		pattern = "high_value"
	}

	return profileAnalysis{tier: tier, pattern: pattern}
}

// Decide (Insights) combines the RiskSignals score with a heuristic
// customer-profile read into a final risk level and confidence.
type Decide struct {
	timeout time.Duration
}

func NewDecide(timeout time.Duration) *Decide {
	return &Decide{timeout: timeout}
}

func (d *Decide) Name() string           { return StepDecide }
func (d *Decide) Critical() bool         { return false }
func (d *Decide) Timeout() time.Duration { return d.timeout }

func (d *Decide) Run(rc *RunContext) (Result, error) {
	risk := rc.RiskSignals
	if risk == nil {
		risk = FallbackRiskSignals()
	}

	var txns []transaction.Transaction
	if rc.RecentTx != nil {
		txns = rc.RecentTx.Transactions
	}
	analysis := analyzeProfile(txns)

	var cust customer.Customer
	if rc.Profile != nil {
		cust = rc.Profile.Customer
	}

	result := composeDecision(risk, analysis, cust)
	rc.Decision = result
	return result, nil
}

func composeDecision(risk *RiskSignalsResult, analysis profileAnalysis, cust customer.Customer) *DecideResult {
	level := levelForScore(risk.Score)
	if level == "medium" && analysis.tier == "high" {
		level = "high"
	}

	confidence := 70
	if len(risk.Reasons) > 3 {
		confidence += 15
	}
	// "No historical incidents" is approximated from KYC standing: a
	// restricted customer has, by definition, a prior adverse finding.
	if cust.KYCLevel != customer.KYCRestricted {
		confidence += 10
	}
	if analysis.pattern == "regular" {
		confidence += 5
	}
	if confidence > 95 {
		confidence = 95
	}

	keyFactors := append([]string{}, risk.Reasons...)
	keyFactors = append(keyFactors, fmt.Sprintf("profile_tier_%s", analysis.tier), fmt.Sprintf("profile_pattern_%s", analysis.pattern))

	return &DecideResult{
		Level:           level,
		Confidence:      confidence,
		KeyFactors:      keyFactors,
		Summary:         summaryFor(level, risk.Score),
		Recommendations: recommendationsFor(level),
	}
}

func levelForScore(score int) string {
	switch {
	case score >= 80:
		return "high"
	case score >= 50:
		return "medium"
	default:
		return "low"
	}
}

func summaryFor(level string, score int) string {
	return fmt.Sprintf("Composite risk score %d classified as %s risk.", score, level)
}

// FallbackDecide is the generic substitute used when this step itself
// fails, as opposed to receiving a fallback RiskSignals input (spec.md
// §4.6, "any other step").
func FallbackDecide() *DecideResult {
	return &DecideResult{
		Level:           "medium",
		Confidence:      0,
		KeyFactors:      []string{"decision_unavailable"},
		Summary:         "Automated decision unavailable; manual review required.",
		Recommendations: []string{"Manual review required"},
		Fallback:        true,
	}
}

func recommendationsFor(level string) []string {
	switch level {
	case "high":
		return []string{"Freeze card pending customer contact", "Escalate to lead review"}
	case "medium":
		return []string{"Open a dispute for the suspect transaction", "Monitor account for further activity"}
	default:
		return []string{"No action required", "Mark as false positive if customer confirms"}
	}
}
