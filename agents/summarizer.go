package agents

import (
	"fmt"
	"time"
)

// Summarizer runs after ProposeAction and produces the analyst- and
// customer-facing write-up. It is best-effort: any failure substitutes
// a fixed fallback template rather than aborting the run (spec.md §4.4).
type Summarizer struct {
	timeout time.Duration
}

func NewSummarizer(timeout time.Duration) *Summarizer {
	return &Summarizer{timeout: timeout}
}

func (s *Summarizer) Name() string           { return "summarize" }
func (s *Summarizer) Critical() bool         { return false }
func (s *Summarizer) Timeout() time.Duration { return s.timeout }

func (s *Summarizer) Run(rc *RunContext) (Result, error) {
	decision := rc.Decision
	if decision == nil {
		return FallbackSummary(), nil
	}
	action := rc.ProposeAction
	if action == nil {
		return FallbackSummary(), nil
	}

	risk := rc.RiskSignals
	if risk == nil {
		risk = FallbackRiskSignals()
	}

	result := composeSummary(decision, action, risk)
	return result, nil
}

func composeSummary(decision *DecideResult, action *ProposeActionResult, risk *RiskSignalsResult) *SummaryResult {
	riskSummary := fmt.Sprintf("%s risk (confidence %d%%) driven by: %s", titleCase(decision.Level), decision.Confidence, joinReasons(risk.Reasons))

	var actionSummary string
	var customerMessage string
	var nextSteps []string

	switch {
	case !action.Approved:
		actionSummary = fmt.Sprintf("%s recommended but blocked by %s.", titleCase(action.Action), action.BlockedBy)
		customerMessage = "We are reviewing recent activity on your account and will follow up shortly."
		nextSteps = []string{fmt.Sprintf("Resolve %s before retrying %s", action.BlockedBy, action.Action), "Escalate to lead for manual override if appropriate"}
	case action.Action == "freeze_card":
		actionSummary = "Card frozen pending customer confirmation."
		customerMessage = "For your security, we've temporarily frozen your card due to unusual activity. Please contact us to verify recent transactions."
		nextSteps = []string{"Contact customer to confirm suspect transaction", "Unfreeze card once confirmed legitimate, or proceed to dispute"}
	case action.Action == "open_dispute":
		actionSummary = "Dispute opened for the suspect transaction."
		customerMessage = "We've opened a dispute for a transaction that looked unusual. We'll keep you updated on the outcome."
		nextSteps = []string{"Gather supporting evidence for the dispute", "Notify customer of dispute status changes"}
	case action.Action == "contact_customer":
		actionSummary = "Customer outreach recommended to confirm activity."
		customerMessage = "We noticed some unusual activity on your account and would like to confirm a few recent transactions with you."
		nextSteps = []string{"Contact customer to verify suspect transaction", "Escalate if customer does not recognize it"}
	default:
		actionSummary = "No action taken; marked as false positive."
		customerMessage = "We reviewed recent activity on your account and found nothing requiring action."
		nextSteps = []string{"Close alert as false positive"}
	}

	internalNote := fmt.Sprintf("Risk score %d, level %s, proposed action %s (approved=%v).", risk.Score, decision.Level, action.Action, action.Approved)

	return &SummaryResult{
		CustomerMessage: customerMessage,
		InternalNote:    internalNote,
		RiskSummary:     riskSummary,
		ActionSummary:   actionSummary,
		NextSteps:       nextSteps,
	}
}

func joinReasons(reasons []string) string {
	if len(reasons) == 0 {
		return "no significant signals"
	}
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += ", " + r
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	for i := range b {
		if b[i] == '_' {
			b[i] = ' '
		}
	}
	return string(b)
}

// FallbackSummary is the fixed fallback template used when summarization
// fails or upstream steps produced no decision (spec.md §4.4).
func FallbackSummary() *SummaryResult {
	return &SummaryResult{
		CustomerMessage: "We are reviewing recent activity on your account.",
		InternalNote:    "Automated summary unavailable; manual review required.",
		RiskSummary:     "Risk summary unavailable.",
		ActionSummary:   "Action summary unavailable.",
		NextSteps:       []string{"Manual review required"},
	}
}
