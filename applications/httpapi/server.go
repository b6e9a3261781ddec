// Package httpapi is the thin chi-routed transport adapter described in
// spec.md §6/§7: every handler decodes a request, calls into the
// orchestrator/action-executor/evaluator/retriever, and encodes the
// result. No business logic lives here — the engine stays usable as a
// library without this package.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riskops/triage/actionexecutor"
	"github.com/riskops/triage/evals"
	"github.com/riskops/triage/infrastructure/cache"
	"github.com/riskops/triage/infrastructure/database"
	"github.com/riskops/triage/infrastructure/eventstream"
	"github.com/riskops/triage/infrastructure/kbsearch"
	"github.com/riskops/triage/infrastructure/metrics"
	"github.com/riskops/triage/orchestrator"
	"github.com/riskops/triage/pkg/logger"
)

// Server bundles the core packages this adapter fronts. It carries no
// state of its own beyond what construction wires in.
type Server struct {
	orchestrator *orchestrator.Orchestrator
	store        *database.Store
	executor     *actionexecutor.Executor
	evaluator    *evals.Evaluator
	retriever    *kbsearch.Retriever
	hub          *eventstream.Hub
	auth         *Authenticator
	limiter      *cache.RateLimiter
	metrics      *metrics.Metrics
	log          *logger.Logger
	upgrader     websocket.Upgrader
}

// New builds a Server wiring every core package this adapter fronts.
// m may be nil — every metrics recording call on Server is nil-safe, the
// same degrade-gracefully convention infrastructure/cache uses for a nil
// Redis client.
func New(
	orch *orchestrator.Orchestrator,
	store *database.Store,
	executor *actionexecutor.Executor,
	evaluator *evals.Evaluator,
	retriever *kbsearch.Retriever,
	hub *eventstream.Hub,
	auth *Authenticator,
	limiter *cache.RateLimiter,
	m *metrics.Metrics,
	log *logger.Logger,
) *Server {
	return &Server{
		orchestrator: orch,
		store:        store,
		executor:     executor,
		evaluator:    evaluator,
		retriever:    retriever,
		hub:          hub,
		auth:         auth,
		limiter:      limiter,
		metrics:      m,
		log:          log,
		upgrader:     websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024, CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// route describes a single endpoint, grounded on the teacher's
// route/mountRoutes shape; chi's own method+pattern registration replaces
// the teacher's withMethod wrapper since chi enforces the method itself.
type route struct {
	method  string
	pattern string
	handler http.HandlerFunc
}

func mountRoutes(r chi.Router, routes ...route) {
	for _, rt := range routes {
		if rt.pattern == "" || rt.handler == nil {
			continue
		}
		r.Method(rt.method, rt.pattern, rt.handler)
	}
}

// Router builds the full chi mux for spec.md §7's endpoint set.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Use(s.rateLimit)

		mountRoutes(r,
			route{http.MethodPost, "/triage", s.handleStartTriage},
			route{http.MethodGet, "/triage/{runId}", s.handleGetTriageStatus},
			route{http.MethodGet, "/triage/{runId}/stream", s.handleStreamTriage},
			route{http.MethodGet, "/alerts", s.handleListAlerts},
			route{http.MethodPost, "/actions/{kind}", s.handleAction},
			route{http.MethodGet, "/kb/search", s.handleKBSearch},
			route{http.MethodGet, "/evals/{family}", s.handleEval},
		)
	})

	return r
}
