// Package orchestrator (continued): the execution loop itself.
//
// Grounded on infrastructure/middleware.TimeoutMiddleware in the teacher
// repo for the per-step deadline shape (goroutine + select over a done
// channel, ctx.Done(), and time.After), generalized from one HTTP request
// to one pipeline step, and on infrastructure/fallback.Handler for the
// "failed non-critical unit gets a deterministic substitute" policy,
// re-expressed through the circuitbreaker.Registry instead of backoff.
package orchestrator

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/riskops/triage/agents"
	svcerrors "github.com/riskops/triage/infrastructure/errors"
	"github.com/riskops/triage/infrastructure/circuitbreaker"
	"github.com/riskops/triage/infrastructure/eventstream"
	"github.com/riskops/triage/infrastructure/redact"
	"github.com/riskops/triage/domain/triagerun"
	"github.com/riskops/triage/pkg/logger"
)

// Orchestrator builds the fixed plan, executes it under deadlines, and
// persists the resulting run and trace records (spec.md §4.6).
type Orchestrator struct {
	steps       []agents.Step // in agents.Plan order
	summarizer  agents.Step
	breaker     *circuitbreaker.Registry
	hub         *eventstream.Hub
	registry    *RunRegistry
	runs        RunStore
	traces      TraceStore
	alerts      AlertStore
	log         *logger.Logger
	stepTimeout time.Duration
	runTimeout  time.Duration
	now         func() time.Time
}

func NewOrchestrator(
	steps []agents.Step,
	summarizer agents.Step,
	breaker *circuitbreaker.Registry,
	hub *eventstream.Hub,
	registry *RunRegistry,
	runs RunStore,
	traces TraceStore,
	alerts AlertStore,
	log *logger.Logger,
	stepTimeout, runTimeout time.Duration,
) *Orchestrator {
	return &Orchestrator{
		steps:       steps,
		summarizer:  summarizer,
		breaker:     breaker,
		hub:         hub,
		registry:    registry,
		runs:        runs,
		traces:      traces,
		alerts:      alerts,
		log:         log,
		stepTimeout: stepTimeout,
		runTimeout:  runTimeout,
		now:         time.Now,
	}
}

// Execute runs one triage request to completion synchronously, emitting
// events and persisting the run and its traces along the way. Kept for
// callers (and tests) that want a blocking call; httpapi uses Start
// instead so "Start Triage" can answer before the plan finishes.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (*Result, error) {
	start, err := o.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	return o.runPlan(req, start), nil
}

// Start performs the synchronous acquire/CreateRun/alert-transition steps
// — so a conflicting or unresolvable alert fails the caller immediately —
// then runs the step plan in the background, visible only through the
// Event Stream from that point on (spec.md §6 "Start Triage", "push-only
// progress").
func (o *Orchestrator) Start(ctx context.Context, req Request) error {
	start, err := o.begin(ctx, req)
	if err != nil {
		return err
	}
	go o.runPlan(req, start)
	return nil
}

// begin claims the registry slot and persists the run's starting state;
// shared by Execute and Start.
func (o *Orchestrator) begin(ctx context.Context, req Request) (time.Time, error) {
	existing, acquired := o.registry.Acquire(req.AlertID, req.RunID)
	if !acquired {
		return time.Time{}, svcerrors.Conflict("alert already has an in-flight triage run", existing)
	}

	start := o.now()
	if err := o.runs.CreateRun(ctx, triagerun.Run{ID: req.RunID, AlertID: req.AlertID, StartedAt: start}); err != nil {
		o.registry.Release(req.AlertID)
		return time.Time{}, err
	}

	if o.alerts != nil {
		if err := o.alerts.StartInvestigating(ctx, req.AlertID); err != nil {
			o.log.WithRun(req.RunID, req.AlertID).WithField("error", err.Error()).Warn("failed to transition alert to investigating")
		}
	}
	return start, nil
}

// runPlan executes the step plan to completion and persists the result.
// It always runs against its own background-derived deadline: Start's
// caller context ends with the HTTP response, long before the plan does.
func (o *Orchestrator) runPlan(req Request, start time.Time) *Result {
	defer o.registry.Release(req.AlertID)

	runCtx, cancel := context.WithTimeout(context.Background(), o.runTimeout)
	defer cancel()

	rc := &agents.RunContext{
		Context:      runCtx,
		RunID:        req.RunID,
		AlertID:      req.AlertID,
		CustomerID:   req.CustomerID,
		SuspectTxnID: req.SuspectTxnID,
		Role:         req.Role,
	}

	o.hub.Publish(req.RunID, eventstream.EventPlanBuilt, map[string]interface{}{"plan": agents.Plan})

	seq := 0
	fallbackUsed := false
	abortedStep := ""

	for i, step := range o.steps {
		ok := o.runStep(rc, step, &seq)
		if ok {
			continue
		}
		if agents.CriticalSteps[step.Name()] {
			abortedStep = step.Name()
			for _, skipped := range o.steps[i+1:] {
				o.recordSkipped(rc, skipped, &seq)
			}
			fallbackUsed = true
			break
		}
		fallbackUsed = true
		o.hub.Publish(req.RunID, eventstream.EventFallbackTriggered, map[string]interface{}{"failedStep": step.Name()})
	}

	var result *Result
	if abortedStep != "" {
		result = baselineResult(req.RunID, abortedStep)
	} else {
		summary := o.runSummarizer(rc)
		result = composeResult(req.RunID, rc, fallbackUsed, summary)
	}

	endedAt := o.now()
	latencyMS := endedAt.Sub(start).Milliseconds()
	result.LatencyMS = latencyMS

	finalRun := triagerun.Run{
		ID:           req.RunID,
		AlertID:      req.AlertID,
		StartedAt:    start,
		EndedAt:      &endedAt,
		Risk:         result.Risk,
		Reasons:      result.Reasons,
		FallbackUsed: result.FallbackUsed,
		LatencyMS:    &latencyMS,
	}
	if err := o.runs.FinalizeRun(context.Background(), req.RunID, finalRun); err != nil {
		o.hub.Publish(req.RunID, eventstream.EventError, map[string]interface{}{"error": err.Error()})
		o.hub.Close(req.RunID)
		o.log.WithRun(req.RunID, req.AlertID).WithField("error", err.Error()).Warn("failed to finalize run")
		return nil
	}

	o.hub.Publish(req.RunID, eventstream.EventDecisionFinalized, map[string]interface{}{
		"risk":           result.Risk,
		"proposedAction": result.ProposedAction,
		"confidence":     result.Confidence,
		"fallbackUsed":   result.FallbackUsed,
	})
	o.hub.Close(req.RunID)

	return result
}

// runStep executes one step under its deadline, records its trace, and
// updates the circuit breaker. Returns whether the step succeeded.
func (o *Orchestrator) runStep(rc *agents.RunContext, step agents.Step, seq *int) bool {
	name := step.Name()

	if !o.breaker.Allow(name) {
		o.recordTrace(rc, name, seq, false, 0, map[string]interface{}{"error": "circuit_open"})
		o.hub.Publish(rc.RunID, eventstream.EventToolUpdate, map[string]interface{}{"step": name, "ok": false, "reason": "circuit_open"})
		return false
	}

	timeout := step.Timeout()
	if timeout <= 0 {
		timeout = o.stepTimeout
	}

	type outcome struct {
		result agents.Result
		err    error
	}
	done := make(chan outcome, 1)
	stepStart := o.now()

	// The goroutine is abandoned, not killed, on timeout: if it completes
	// later its result is simply never read (spec.md §5 "cancellation").
	go func() {
		res, err := step.Run(rc)
		done <- outcome{res, err}
	}()

	var out outcome
	var ok bool
	select {
	case out = <-done:
		ok = out.err == nil
	case <-time.After(timeout):
		out = outcome{err: svcerrors.StepTimeout(name)}
		ok = false
	case <-rc.Context.Done():
		out = outcome{err: rc.Context.Err()}
		ok = false
	}
	durationMS := o.now().Sub(stepStart).Milliseconds()

	if ok {
		o.breaker.RecordSuccess(name)
	} else {
		o.breaker.RecordFailure(name)
	}

	var detail interface{}
	if ok {
		detail = out.result
	} else {
		detail = map[string]interface{}{"error": out.err.Error()}
	}
	o.recordTrace(rc, name, seq, ok, durationMS, detail)
	o.hub.Publish(rc.RunID, eventstream.EventToolUpdate, map[string]interface{}{"step": name, "ok": ok, "durationMs": durationMS})

	return ok
}

// recordSkipped traces a step that never ran because an earlier critical
// step aborted the plan, preserving the contiguous-seq invariant (spec.md
// §3 invariant 3, §8 property 1).
func (o *Orchestrator) recordSkipped(rc *agents.RunContext, step agents.Step, seq *int) {
	name := step.Name()
	o.recordTrace(rc, name, seq, false, 0, map[string]interface{}{"skipped": true, "reason": "critical_step_failure_upstream"})
	o.hub.Publish(rc.RunID, eventstream.EventFallbackTriggered, map[string]interface{}{"failedStep": name, "reason": "skipped"})
}

func (o *Orchestrator) recordTrace(rc *agents.RunContext, step string, seq *int, ok bool, durationMS int64, detail interface{}) {
	trace := triagerun.Trace{
		RunID:      rc.RunID,
		Seq:        *seq,
		Step:       step,
		OK:         ok,
		DurationMS: durationMS,
		Detail:     redactDetail(detail),
	}
	*seq++

	if err := o.traces.AppendTrace(context.Background(), trace); err != nil {
		o.log.WithStep(rc.RunID, step, trace.Seq).WithError(err).Warn("failed to persist trace")
	}
}

func (o *Orchestrator) runSummarizer(rc *agents.RunContext) *agents.SummaryResult {
	res, err := o.summarizer.Run(rc)
	if err != nil {
		return agents.FallbackSummary()
	}
	summary, ok := res.(*agents.SummaryResult)
	if !ok || summary == nil {
		return agents.FallbackSummary()
	}
	return summary
}

// composeResult implements the final decision composition rules of
// spec.md §4.7.
func composeResult(runID string, rc *agents.RunContext, fallbackUsed bool, summary *agents.SummaryResult) *Result {
	risk := rc.RiskSignals
	if risk == nil {
		risk = agents.FallbackRiskSignals()
	}
	decision := rc.Decision
	if decision == nil {
		decision = agents.FallbackDecide()
	}
	action := rc.ProposeAction
	if action == nil {
		action = agents.FallbackProposeAction()
	}

	level := decision.Level
	if fallbackUsed && level == "high" {
		level = "medium" // uncertainty penalty, spec.md §4.6
	}

	proposedAction := action.Action
	if proposedAction == "" {
		switch level {
		case "high":
			proposedAction = "freeze_card"
		case "medium":
			proposedAction = "open_dispute"
		default:
			proposedAction = "false_positive"
		}
	}

	confidence := decision.Confidence
	if fallbackUsed {
		confidence = int(math.Min(float64(decision.Confidence)*0.7, 70))
	}

	var citations []string
	if rc.KBLookup != nil {
		citations = rc.KBLookup.Citations
	}

	return &Result{
		RunID:           runID,
		Risk:            level,
		ProposedAction:  proposedAction,
		Confidence:      confidence,
		Reasons:         risk.Reasons,
		Citations:       citations,
		RequiresOTP:     action.RequiresOTP,
		Approved:        action.Approved,
		BlockedBy:       action.BlockedBy,
		FallbackUsed:    fallbackUsed,
		CustomerMessage: summary.CustomerMessage,
		InternalNote:    summary.InternalNote,
		RiskSummary:     summary.RiskSummary,
		ActionSummary:   summary.ActionSummary,
		NextSteps:       summary.NextSteps,
	}
}

// baselineResult is used when a critical step fails and the plan is
// aborted before any decision could be formed (spec.md §4.6 scenario S4).
func baselineResult(runID, abortedStep string) *Result {
	return &Result{
		RunID:           runID,
		Risk:            "low",
		ProposedAction:  "false_positive",
		Confidence:      0,
		Reasons:         []string{"critical_step_failure:" + abortedStep},
		Citations:       []string{"Fallback: Manual review recommended"},
		FallbackUsed:    true,
		CustomerMessage: "We are reviewing recent activity on your account.",
		InternalNote:    "Critical step " + abortedStep + " failed; manual review required.",
		RiskSummary:     "Risk summary unavailable: critical step failure.",
		ActionSummary:   "No action taken; manual review required.",
		NextSteps:       []string{"Manual review required"},
	}
}

// redactDetail marshals v to JSON, redacts every string leaf, and returns
// the result as the schema-free blob stored on AgentTrace.Detail (spec.md
// §3 invariant 4).
func redactDetail(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return string(raw)
	}
	out, err := json.Marshal(redact.Value(generic))
	if err != nil {
		return string(raw)
	}
	return string(out)
}
