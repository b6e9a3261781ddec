// Package agents implements the triage pipeline's Step Agents: small,
// capability-bounded units each exposing a pure run(context) -> result
// contract (spec.md §4.4).
//
// Grounded on system/core.ServiceModule and its capability interfaces in
// the teacher repo: the "small interface, looked up by string key,
// composed by a registry" pattern is kept, but ServiceModule's
// Name/Domain/Start/Stop process lifecycle doesn't fit a stateless
// per-run computation, so it is dropped in favor of a single Step
// interface describing one invocation.
package agents

import (
	"context"
	"time"

	"github.com/riskops/triage/domain/account"
	"github.com/riskops/triage/domain/card"
	"github.com/riskops/triage/domain/customer"
	"github.com/riskops/triage/domain/transaction"
)

// Fixed step names, also used as circuit breaker keys.
const (
	StepGetProfile    = "getProfile"
	StepRecentTx      = "recentTx"
	StepRiskSignals   = "riskSignals"
	StepKBLookup      = "kbLookup"
	StepDecide        = "decide"
	StepProposeAction = "proposeAction"
)

// Plan is the fixed step order every run executes (spec.md §4.6 step 2).
var Plan = []string{StepGetProfile, StepRecentTx, StepRiskSignals, StepKBLookup, StepDecide, StepProposeAction}

// CriticalSteps abort the run on failure rather than substituting a
// fallback.
var CriticalSteps = map[string]bool{
	StepGetProfile: true,
	StepRecentTx:   true,
}

// RunContext threads request inputs and prior step outputs through the
// pipeline; each step reads what it needs and writes its own result field.
type RunContext struct {
	Context context.Context

	RunID        string
	AlertID      string
	CustomerID   string
	SuspectTxnID string
	Role         string

	Profile       *ProfileResult
	RecentTx      *RecentTxResult
	RiskSignals   *RiskSignalsResult
	KBLookup      *KBLookupResult
	Decision      *DecideResult
	ProposeAction *ProposeActionResult
}

// Result is the schema-free payload a Step hands back to the Orchestrator
// for tracing; concrete step results also populate the typed RunContext
// fields above.
type Result interface{}

// Step is the capability every agent implements.
type Step interface {
	Name() string
	Critical() bool
	Timeout() time.Duration
	Run(rc *RunContext) (Result, error)
}

// ProfileResult is Profile's output.
type ProfileResult struct {
	Customer customer.Customer
	Cards    []card.Card
	Accounts []account.Account
}

// RecentTxResult is RecentTx's output.
type RecentTxResult struct {
	Transactions []transaction.Transaction
}

// MerchantRisk captures the merchant-risk sub-score breakdown.
type MerchantRisk struct {
	NewMerchant bool
	RiskScore   int
}

// RiskSignalsResult is RiskSignals's output.
type RiskSignalsResult struct {
	Score            int
	Reasons          []string
	ProposedAction   string
	SuspectAmountMinor int64
	Txns24h          int
	Amount24hMinor   int64
	HistoricalDaily  float64
	NewDevice        bool
	DeviceChanges    int
	Merchant         MerchantRisk
	UnusualTime      bool
	UnusualLocation  bool
	VelocitySpike    bool
	Fallback         bool
}

// KBLookupResult is the KB Retriever's output, folded into the pipeline as
// the kbLookup step.
type KBLookupResult struct {
	Results    []KBResult
	Citations  []string
	Fallback   bool
}

// KBResult is one ranked knowledge-base hit.
type KBResult struct {
	DocID           string
	Title           string
	Anchor          string
	Extract         string
	RelevanceScore  int
}

// DecideResult is Decide (Insights)'s output.
type DecideResult struct {
	Level           string
	Confidence      int
	KeyFactors      []string
	Summary         string
	Recommendations []string
	Fallback        bool
}

// ProposeActionResult is ProposeAction (Compliance)'s output.
type ProposeActionResult struct {
	Action      string
	Approved    bool
	BlockedBy   string
	RequiresOTP bool
	Fallback    bool
}

// SummaryResult is the post-decision Summarizer's output.
type SummaryResult struct {
	CustomerMessage string
	InternalNote    string
	RiskSummary     string
	ActionSummary   string
	NextSteps       []string
}
