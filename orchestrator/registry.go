package orchestrator

import (
	"sync"
	"time"
)

type activeRun struct {
	runID    string
	acquired time.Time
}

// RunRegistry enforces "at most one in-flight Triage Run per alert"
// (spec.md §3 invariant 2) as a process-wide, in-memory map sitting in
// front of the Data Store's own uniqueness guarantee.
type RunRegistry struct {
	mu     sync.Mutex
	active map[string]activeRun // alertID -> run
}

func NewRunRegistry() *RunRegistry {
	return &RunRegistry{active: make(map[string]activeRun)}
}

// Acquire claims alertID for runID. If another run is already active for
// this alert, it returns that run's id and false.
func (r *RunRegistry) Acquire(alertID, runID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.active[alertID]; ok {
		return existing.runID, false
	}
	r.active[alertID] = activeRun{runID: runID, acquired: time.Now()}
	return "", true
}

// Release frees alertID so a new run may be started.
func (r *RunRegistry) Release(alertID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, alertID)
}

// Sweep releases every entry held longer than maxAge and returns the freed
// alert IDs. A run whose goroutine panicked or whose process died without
// unwinding its deferred Release would otherwise wedge that alert's
// run-registry slot shut forever; the periodic cron sweep in
// cmd/triageserver calls this as a safety net, mirroring
// infrastructure/circuitbreaker.Registry.Reset's role for stuck breakers.
func (r *RunRegistry) Sweep(maxAge time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var freed []string
	now := time.Now()
	for alertID, run := range r.active {
		if now.Sub(run.acquired) >= maxAge {
			delete(r.active, alertID)
			freed = append(freed, alertID)
		}
	}
	return freed
}
