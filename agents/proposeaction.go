package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/riskops/triage/domain/customer"
)

// Check names, also used as the blockedBy value (spec.md §4.4).
const (
	checkRoleAuthorization = "role_authorization"
	checkAmountLimits       = "amount_limits"
	checkCustomerStatus     = "customer_status"
	checkRateLimits         = "rate_limits"
	checkBusinessHours      = "business_hours"
	checkEscalation         = "escalation"
)

const (
	freezeCardAmountLimitMinor    int64 = 100_000 // $1000 equivalent
	openDisputeAmountLimitMinor   int64 = 500_000 // $5000 equivalent
	openDisputeOTPScoreThreshold       = 70
	escalationScoreThreshold           = 80
	escalationConfidenceThreshold      = 60
)

// actionRateLimiter mirrors cache.RateLimiter's Allow contract for a
// per-user-per-action key, kept narrow so this package doesn't import
// infrastructure/cache.
type actionRateLimiter interface {
	Allow(ctx context.Context, key string) error
}

// ProposeAction (Compliance) maps RiskSignals' suggestion through six
// policy checks and decides whether the resulting action is approved
// (spec.md §4.4).
type ProposeAction struct {
	limiter  actionRateLimiter
	leadRole string
	location *time.Location
	bhStart  int
	bhEnd    int
	timeout  time.Duration
	now      func() time.Time
}

func NewProposeAction(limiter actionRateLimiter, leadRole string, location *time.Location, businessHoursStart, businessHoursEnd int, timeout time.Duration) *ProposeAction {
	return &ProposeAction{
		limiter:  limiter,
		leadRole: leadRole,
		location: location,
		bhStart:  businessHoursStart,
		bhEnd:    businessHoursEnd,
		timeout:  timeout,
		now:      time.Now,
	}
}

func (p *ProposeAction) Name() string           { return StepProposeAction }
func (p *ProposeAction) Critical() bool         { return false }
func (p *ProposeAction) Timeout() time.Duration { return p.timeout }

func (p *ProposeAction) Run(rc *RunContext) (Result, error) {
	risk := rc.RiskSignals
	if risk == nil {
		risk = FallbackRiskSignals()
	}
	decision := rc.Decision
	if decision == nil {
		decision = &DecideResult{Confidence: 70}
	}
	var cust customer.Customer
	if rc.Profile != nil {
		cust = rc.Profile.Customer
	}

	candidate := candidateAction(risk.ProposedAction)
	requiresOTP := candidate == "freeze_card" || (candidate == "open_dispute" && risk.Score >= openDisputeOTPScoreThreshold)

	blockedBy := p.firstFailingCheck(rc, candidate, risk, decision, cust)

	result := &ProposeActionResult{
		Action:      candidate,
		Approved:    blockedBy == "",
		BlockedBy:   blockedBy,
		RequiresOTP: requiresOTP,
	}
	rc.ProposeAction = result
	return result, nil
}

func candidateAction(riskProposed string) string {
	if riskProposed == "" || riskProposed == "monitor" {
		return "false_positive"
	}
	return riskProposed
}

func isWriteAction(action string) bool {
	return action == "freeze_card" || action == "open_dispute"
}

// firstFailingCheck runs the six compliance checks from spec.md §4.4 in
// order and returns the name of the first one that fails, or "" if every
// check passes.
func (p *ProposeAction) firstFailingCheck(rc *RunContext, action string, risk *RiskSignalsResult, decision *DecideResult, cust customer.Customer) string {
	// 1. role_authorization
	if action == "freeze_card" && rc.Role != p.leadRole {
		return checkRoleAuthorization
	}

	// 2. amount_limits
	if action == "freeze_card" && risk.SuspectAmountMinor > freezeCardAmountLimitMinor {
		return checkAmountLimits
	}
	if action == "open_dispute" && risk.SuspectAmountMinor > openDisputeAmountLimitMinor {
		return checkAmountLimits
	}

	// 3. customer_status
	if isWriteAction(action) && cust.KYCLevel == customer.KYCRestricted {
		return checkCustomerStatus
	}

	// 4. rate_limits
	if p.limiter != nil {
		key := fmt.Sprintf("%s:%s", rc.CustomerID, action)
		if err := p.limiter.Allow(rc.Context, key); err != nil {
			return checkRateLimits
		}
	}

	// 5. business_hours
	if action == "freeze_card" && rc.Role != p.leadRole && !p.withinBusinessHours(p.now()) {
		return checkBusinessHours
	}

	// 6. escalation
	if risk.Score >= escalationScoreThreshold && decision.Confidence < escalationConfidenceThreshold && rc.Role != p.leadRole {
		return checkEscalation
	}

	return ""
}

// FallbackProposeAction is the generic substitute used when this step
// itself fails; it refuses the action rather than guessing at approval
// (spec.md §4.6, "any other step").
func FallbackProposeAction() *ProposeActionResult {
	return &ProposeActionResult{
		Action:      "false_positive",
		Approved:    false,
		BlockedBy:   "service_unavailable",
		RequiresOTP: false,
		Fallback:    true,
	}
}

func (p *ProposeAction) withinBusinessHours(now time.Time) bool {
	local := now.In(p.location)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}
	hour := local.Hour()
	return hour >= p.bhStart && hour < p.bhEnd
}
