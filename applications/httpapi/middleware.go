package httpapi

import (
	"net/http"
	"strconv"
	"time"

	svcerrors "github.com/riskops/triage/infrastructure/errors"
)

// logRequests emits one structured line per request, grounded on the
// teacher's logrus.Entry field-chaining style.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("durationMs", time.Since(start).Milliseconds()).
			Info("request handled")
	})
}

// rateLimit gates every authenticated call through the fixed-window
// limiter, keyed by the caller's subject (spec.md §4.2, §6 "429
// rate-limited").
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		clientID := claimsFrom(r).Subject
		if clientID == "" {
			clientID = r.RemoteAddr
		}
		if err := s.limiter.Allow(r.Context(), clientID); err != nil {
			if s.metrics != nil {
				s.metrics.RecordRateLimitReject()
			}
			if svcErr := svcerrors.GetServiceError(err); svcErr != nil {
				if retryAfter, ok := svcErr.Details["retryAfter"]; ok {
					if seconds, ok := retryAfter.(int); ok {
						w.Header().Set("Retry-After", strconv.Itoa(seconds))
					}
				}
			}
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
