package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/riskops/triage/evals"
)

// handleEval implements spec.md §6 "Evals": read-only analytics over
// persisted runs/traces/alerts for one of the four named families.
func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	family := evals.Family(chi.URLParam(r, "family"))

	report, err := s.evaluator.Evaluate(r.Context(), family)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
