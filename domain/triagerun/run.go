// Package triagerun models one execution of the triage step pipeline.
package triagerun

import "time"

// Run is a single Triage Run, created at the start of triage and made
// terminal exactly once (spec.md §3 invariant 1/2).
type Run struct {
	ID          string
	AlertID     string
	StartedAt   time.Time
	EndedAt     *time.Time
	Risk        string
	Reasons     []string
	FallbackUsed bool
	LatencyMS   *int64
}

// Terminal reports whether the run has reached a final state.
func (r Run) Terminal() bool {
	return r.EndedAt != nil
}

// Trace is one append-only step record for a Run. Seq values for a Run form
// a contiguous prefix 0..n-1 (spec.md §3 invariant 3).
type Trace struct {
	RunID      string
	Seq        int
	Step       string
	OK         bool
	DurationMS int64
	Detail     string // redacted, schema-free JSON blob
}
