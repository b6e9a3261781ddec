// Command triageserver wires every core package into a running HTTP
// service: config load, Postgres/Redis connections, the six-step triage
// pipeline, and the chi-routed transport adapter, with graceful shutdown
// grounded on the teacher's cmd/gateway entry point.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/riskops/triage/actionexecutor"
	"github.com/riskops/triage/agents"
	"github.com/riskops/triage/applications/httpapi"
	"github.com/riskops/triage/evals"
	"github.com/riskops/triage/infrastructure/cache"
	"github.com/riskops/triage/infrastructure/circuitbreaker"
	"github.com/riskops/triage/infrastructure/database"
	"github.com/riskops/triage/infrastructure/eventstream"
	"github.com/riskops/triage/infrastructure/kbsearch"
	"github.com/riskops/triage/infrastructure/metrics"
	"github.com/riskops/triage/orchestrator"
	"github.com/riskops/triage/pkg/config"
	"github.com/riskops/triage/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	log := logger.New(logger.LoggingConfig(cfg.Logging))

	db, err := sqlx.Connect(cfg.Database.Driver, cfg.Database.ConnectionString())
	if err != nil {
		log.WithError(err).Fatal("connect to database")
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)
	store := database.New(db)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.WithError(err).Warn("redis unreachable at startup, limiter/idempotency/OTP fall back to in-process caches")
	}
	defer redisClient.Close()

	agentTimeout := time.Duration(cfg.Engine.AgentTimeoutMS) * time.Millisecond
	runTimeout := time.Duration(cfg.Engine.RunTimeoutMS) * time.Millisecond

	rateLimiter := cache.NewRateLimiter(redisClient, log.Logger, cfg.RateLimit.WindowMS, cfg.RateLimit.MaxRequests)
	idempotency := cache.NewIdempotencyStore(redisClient, log.Logger, time.Duration(cfg.Action.IdempotencyTTLMS)*time.Millisecond)
	otpStore := cache.NewOTPStore(redisClient, log.Logger, time.Duration(cfg.Action.OTPTTLMS)*time.Millisecond)

	retriever := kbsearch.NewRetriever(store)
	evaluator := evals.NewEvaluator(store)
	executor := actionexecutor.NewExecutor(store, idempotency, otpStore, cfg.Auth.LeadRole, log)

	steps := []agents.Step{
		agents.NewProfile(store, agentTimeout),
		agents.NewRecentTx(store, agentTimeout),
		agents.NewRiskSignals(store, agentTimeout),
		agents.NewKBLookup(retriever, agentTimeout),
		agents.NewDecide(agentTimeout),
		agents.NewProposeAction(rateLimiter, cfg.Auth.LeadRole, cfg.Compliance.Location(), cfg.Compliance.BusinessHoursStart, cfg.Compliance.BusinessHoursEnd, agentTimeout),
	}
	summarizer := agents.NewSummarizer(agentTimeout)

	breaker := circuitbreaker.NewRegistry(cfg.Engine.CircuitFailThreshold, time.Duration(cfg.Engine.CircuitResetMS)*time.Millisecond)
	hub := eventstream.NewHub(zerolog.New(os.Stdout).With().Timestamp().Logger())
	runRegistry := orchestrator.NewRunRegistry()

	orch := orchestrator.NewOrchestrator(steps, summarizer, breaker, hub, runRegistry, store, store, store, log, agentTimeout, runTimeout)

	auth := httpapi.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.RoleClaim)
	m := metrics.New(prometheus.DefaultRegisterer)

	server := httpapi.New(orch, store, executor, evaluator, retriever, hub, auth, rateLimiter, m, log)

	sweeper := newSweeper(breaker, runRegistry, log)
	sweeper.Start()
	defer sweeper.Stop()

	httpServer := &http.Server{
		Addr:              cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           server.Router(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.WithField("addr", httpServer.Addr).Info("triage server starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
}

// sweeper runs the periodic safety-net jobs spec.md's ambient stack calls
// for: resetting any circuit breaker that reports half-open when the sweep
// runs, and releasing any RunRegistry slot whose owning goroutine never
// unwound (a crashed or killed run). Both are read-then-clear
// operations, so running them twice in a row is harmless.
type sweeper struct {
	cron    *cron.Cron
	breaker *circuitbreaker.Registry
	runs    *orchestrator.RunRegistry
	log     *logger.Logger
}

func newSweeper(breaker *circuitbreaker.Registry, runs *orchestrator.RunRegistry, log *logger.Logger) *sweeper {
	return &sweeper{
		cron:    cron.New(),
		breaker: breaker,
		runs:    runs,
		log:     log,
	}
}

func (s *sweeper) Start() {
	_, err := s.cron.AddFunc("@every 1m", func() {
		// A half-open breaker admits exactly one probe; if that probe's
		// goroutine dies without calling RecordSuccess/RecordFailure, the
		// breaker is stuck rejecting forever. Reset clears it back to
		// closed so the next call gets a fresh chance, per Reset's own
		// doc comment on its role as the sweep's safety net.
		for _, step := range agents.Plan {
			if s.breaker.State(step) == circuitbreaker.HalfOpen {
				s.breaker.Reset(step)
				s.log.WithField("step", step).Warn("reset stuck half-open breaker")
			}
		}
		freed := s.runs.Sweep(10 * time.Minute)
		if len(freed) > 0 {
			s.log.WithField("alertIds", freed).Warn("swept stale run-registry entries")
		}
	})
	if err != nil {
		s.log.WithError(err).Error("failed to schedule sweep job")
		return
	}
	s.cron.Start()
}

func (s *sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
