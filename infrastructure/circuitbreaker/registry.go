// Package circuitbreaker tracks per-step failure counts and trips a
// breaker open once a threshold is crossed, re-admitting a single probe
// after a reset window (spec.md §4.5/§8 invariant 5).
//
// Grounded on infrastructure/fallback.Handler's per-key failure bookkeeping
// in the teacher repo, re-purposed from retry/backoff into a three-state
// breaker: the exponential-backoff-with-jitter delay math doesn't apply to
// a breaker (which fails fast, not after retrying), so it is dropped in
// favor of a fixed reset window.
package circuitbreaker

import (
	"sync"
	"time"
)

// State is one of the three canonical circuit breaker states.
type State string

const (
	Closed   State = "closed"
	Open     State = "open"
	HalfOpen State = "half_open"
)

type breakerEntry struct {
	state           State
	consecutiveFail int
	lastFailure     time.Time
}

// Registry holds one breaker per step name.
type Registry struct {
	mu             sync.Mutex
	entries        map[string]*breakerEntry
	failThreshold  int
	resetWindow    time.Duration
}

// NewRegistry creates a Registry. failThreshold is the number of
// consecutive failures that trips a step open; resetWindow is how long an
// open breaker stays open before admitting one half-open probe.
func NewRegistry(failThreshold int, resetWindow time.Duration) *Registry {
	if failThreshold <= 0 {
		failThreshold = 3
	}
	if resetWindow <= 0 {
		resetWindow = 30 * time.Second
	}
	return &Registry{
		entries:       make(map[string]*breakerEntry),
		failThreshold: failThreshold,
		resetWindow:   resetWindow,
	}
}

func (r *Registry) entryFor(step string) *breakerEntry {
	e, ok := r.entries[step]
	if !ok {
		e = &breakerEntry{state: Closed}
		r.entries[step] = e
	}
	return e
}

// Allow reports whether a call to step may proceed. A closed breaker
// always allows. An open breaker allows exactly one half-open probe once
// resetWindow has elapsed since the last recorded failure, and otherwise
// rejects.
func (r *Registry) Allow(step string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entryFor(step)
	switch e.state {
	case Closed:
		return true
	case HalfOpen:
		return false // a probe is already outstanding
	case Open:
		if time.Since(e.lastFailure) >= r.resetWindow {
			e.state = HalfOpen
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess closes the breaker and resets its failure count.
func (r *Registry) RecordSuccess(step string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entryFor(step)
	e.state = Closed
	e.consecutiveFail = 0
}

// RecordFailure increments the failure count and trips the breaker open
// once failThreshold consecutive failures have been recorded. A failure
// while half-open re-opens immediately.
func (r *Registry) RecordFailure(step string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entryFor(step)
	e.lastFailure = time.Now()

	if e.state == HalfOpen {
		e.state = Open
		return
	}

	e.consecutiveFail++
	if e.consecutiveFail >= r.failThreshold {
		e.state = Open
	}
}

// State returns the current state of step's breaker, resolving a stale
// Open into HalfOpen without consuming the probe (read-only visibility for
// status endpoints).
func (r *Registry) State(step string) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entryFor(step)
	if e.state == Open && time.Since(e.lastFailure) >= r.resetWindow {
		return HalfOpen
	}
	return e.state
}

// Reset clears a step's breaker back to Closed, used by the periodic
// sweep job as a safety net against a stuck half-open state.
func (r *Registry) Reset(step string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, step)
}
