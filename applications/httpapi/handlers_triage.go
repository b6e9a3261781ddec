package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	svcerrors "github.com/riskops/triage/infrastructure/errors"
	"github.com/riskops/triage/infrastructure/eventstream"
	"github.com/riskops/triage/orchestrator"
)

type startTriageRequest struct {
	AlertID      string `json:"alertId"`
	CustomerID   string `json:"customerId"`
	SuspectTxnID string `json:"suspectTxnId"`
}

type startTriageResponse struct {
	RunID     string `json:"runId"`
	Status    string `json:"status"`
	StreamURL string `json:"streamUrl"`
}

// handleStartTriage implements spec.md §6 "Start Triage": validate the
// alert exists, then hand off to Orchestrator.Start, which does the
// conflict check and Run bookkeeping synchronously before the step plan
// itself proceeds in the background.
func (s *Server) handleStartTriage(w http.ResponseWriter, r *http.Request) {
	var body startTriageRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, svcerrors.Validation("malformed request body"))
		return
	}
	if body.AlertID == "" || body.CustomerID == "" || body.SuspectTxnID == "" {
		writeError(w, svcerrors.Validation("alertId, customerId, and suspectTxnId are required", "alertId", "customerId", "suspectTxnId"))
		return
	}

	if _, err := s.store.GetAlert(r.Context(), body.AlertID); err != nil {
		writeError(w, err)
		return
	}

	runID := uuid.NewString()
	req := orchestrator.Request{
		RunID:        runID,
		AlertID:      body.AlertID,
		CustomerID:   body.CustomerID,
		SuspectTxnID: body.SuspectTxnID,
		Role:         claimsFrom(r).Role,
	}

	if err := s.orchestrator.Start(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, startTriageResponse{
		RunID:     runID,
		Status:    "started",
		StreamURL: fmt.Sprintf("/triage/%s/stream", runID),
	})
}

type traceDTO struct {
	Seq        int    `json:"seq"`
	Step       string `json:"step"`
	OK         bool   `json:"ok"`
	DurationMS int64  `json:"durationMs"`
	Detail     string `json:"detail"`
}

type triageStatusResponse struct {
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"startedAt"`
	EndedAt      *time.Time `json:"endedAt,omitempty"`
	Risk         string     `json:"risk,omitempty"`
	Reasons      []string   `json:"reasons"`
	FallbackUsed bool       `json:"fallbackUsed"`
	LatencyMS    *int64     `json:"latencyMs,omitempty"`
	Traces       []traceDTO `json:"traces"`
}

// handleGetTriageStatus implements spec.md §6 "Get Triage Status".
func (s *Server) handleGetTriageStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runId")

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		writeError(w, err)
		return
	}
	traces, err := s.store.ListTraces(r.Context(), runID)
	if err != nil {
		writeError(w, err)
		return
	}

	status := "running"
	if run.Terminal() {
		status = "completed"
	}
	traceDTOs := make([]traceDTO, len(traces))
	for i, tr := range traces {
		traceDTOs[i] = traceDTO{Seq: tr.Seq, Step: tr.Step, OK: tr.OK, DurationMS: tr.DurationMS, Detail: tr.Detail}
	}

	writeJSON(w, http.StatusOK, triageStatusResponse{
		Status:       status,
		StartedAt:    run.StartedAt,
		EndedAt:      run.EndedAt,
		Risk:         run.Risk,
		Reasons:      run.Reasons,
		FallbackUsed: run.FallbackUsed,
		LatencyMS:    run.LatencyMS,
		Traces:       traceDTOs,
	})
}

// handleStreamTriage implements spec.md §6 "Stream Triage Events" by
// upgrading to a websocket and forwarding the run's event-stream hub
// directly, closing when the hub closes the subscriber channel.
func (s *Server) handleStreamTriage(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runId")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithField("error", err.Error()).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	subscriberID := uuid.NewString()
	events, unsubscribe := s.hub.Subscribe(runID, subscriberID)
	defer unsubscribe()

	if err := conn.WriteJSON(eventstream.Event{Type: eventstream.EventConnected, Timestamp: time.Now().UTC(), RunID: runID}); err != nil {
		return
	}

	for evt := range events {
		if err := conn.WriteJSON(evt); err != nil {
			return
		}
		if evt.Type == eventstream.EventCompleted {
			return
		}
	}
}
