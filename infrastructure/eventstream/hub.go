// Package eventstream fans out per-run triage events to subscribers.
//
// Grounded on system/events.Dispatcher in the teacher repo: the
// handler-registry/filtered-dispatch/bounded-queue shape is kept, but
// re-purposed from "route contract events to registered handlers" (one
// dispatcher, many handlers, events filtered by contract+name) to "fan out
// one run's events to its subscribers" (one hub per run, no filtering,
// broadcast instead of dispatch).
package eventstream

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/riskops/triage/infrastructure/redact"
)

// EventType enumerates the event kinds a Run emits (spec.md §4.8).
type EventType string

const (
	EventConnected         EventType = "connected"
	EventPlanBuilt         EventType = "plan_built"
	EventToolUpdate        EventType = "tool_update"
	EventFallbackTriggered EventType = "fallback_triggered"
	EventDecisionFinalized EventType = "decision_finalized"
	EventError             EventType = "error"
	EventHeartbeat         EventType = "heartbeat"
	EventCompleted         EventType = "completed"
)

// Event is the wire shape pushed to every subscriber.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	RunID     string      `json:"runId"`
	Data      interface{} `json:"data"`
}

const subscriberQueueSize = 64

// runHub fans out one run's events to its subscribers in emit order.
// Subscribing after events have already been emitted yields no replay —
// only events emitted from that point on.
type runHub struct {
	mu          sync.Mutex
	subscribers map[string]chan Event
	closed      bool
	dropped     int64
	lastEmit    time.Time
	stopHeart   chan struct{}
}

const heartbeatInterval = 30 * time.Second

// Hub owns one runHub per in-flight run. Closing a run's hub tears down all
// of its subscriber channels.
type Hub struct {
	mu   sync.Mutex
	runs map[string]*runHub
	log  zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		runs: make(map[string]*runHub),
		log:  log.With().Str("component", "eventstream").Logger(),
	}
}

func (h *Hub) hubFor(runID string) *runHub {
	h.mu.Lock()
	defer h.mu.Unlock()

	rh, ok := h.runs[runID]
	if !ok {
		rh = &runHub{
			subscribers: make(map[string]chan Event),
			lastEmit:    time.Now(),
			stopHeart:   make(chan struct{}),
		}
		h.runs[runID] = rh
		go h.heartbeatLoop(runID, rh)
	}
	return rh
}

// heartbeatLoop emits a heartbeat event on the run's hub if no other event
// has been published for heartbeatInterval, keeping idle subscribers alive.
func (h *Hub) heartbeatLoop(runID string, rh *runHub) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rh.stopHeart:
			return
		case <-ticker.C:
			rh.mu.Lock()
			idle := time.Since(rh.lastEmit) >= heartbeatInterval
			rh.mu.Unlock()
			if idle {
				h.Publish(runID, EventHeartbeat, nil)
			}
		}
	}
}

// Subscribe registers a new subscriber for runID and returns its channel
// plus an unsubscribe function. The channel is closed when the run ends or
// the subscriber unsubscribes, whichever comes first.
func (h *Hub) Subscribe(runID, subscriberID string) (<-chan Event, func()) {
	rh := h.hubFor(runID)

	rh.mu.Lock()
	ch := make(chan Event, subscriberQueueSize)
	rh.subscribers[subscriberID] = ch
	closedAlready := rh.closed
	rh.mu.Unlock()

	if closedAlready {
		close(ch)
	}

	unsubscribe := func() {
		rh.mu.Lock()
		defer rh.mu.Unlock()
		if existing, ok := rh.subscribers[subscriberID]; ok {
			delete(rh.subscribers, subscriberID)
			close(existing)
		}
	}
	return ch, unsubscribe
}

// Publish broadcasts an event to every current subscriber of runID. Data is
// redacted before it reaches any subscriber channel. Publish never blocks:
// a full subscriber queue drops the event and increments a counter rather
// than stalling the Orchestrator.
func (h *Hub) Publish(runID string, eventType EventType, data interface{}) {
	rh := h.hubFor(runID)
	evt := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		Data:      redact.Value(data),
	}

	rh.mu.Lock()
	defer rh.mu.Unlock()

	rh.lastEmit = evt.Timestamp
	for id, ch := range rh.subscribers {
		select {
		case ch <- evt:
		default:
			rh.dropped++
			h.log.Warn().Str("runId", runID).Str("subscriberId", id).Str("eventType", string(eventType)).Msg("subscriber queue full, event dropped")
		}
	}
}

// Close publishes a final completed event (after the already-emitted
// decision_finalized or error) and tears down the run's hub, closing every
// subscriber channel.
func (h *Hub) Close(runID string) {
	h.Publish(runID, EventCompleted, nil)

	rh := h.hubFor(runID)
	rh.mu.Lock()
	defer rh.mu.Unlock()

	if rh.closed {
		return
	}
	rh.closed = true
	close(rh.stopHeart)
	for id, ch := range rh.subscribers {
		close(ch)
		delete(rh.subscribers, id)
	}

	h.mu.Lock()
	delete(h.runs, runID)
	h.mu.Unlock()
}

// Dropped returns the count of events dropped for runID due to a full
// subscriber queue, for metrics/status reporting.
func (h *Hub) Dropped(runID string) int64 {
	rh := h.hubFor(runID)
	rh.mu.Lock()
	defer rh.mu.Unlock()
	return rh.dropped
}
