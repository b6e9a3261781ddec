package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"

	"github.com/riskops/triage/infrastructure/cache"
	"github.com/riskops/triage/infrastructure/database"
	"github.com/riskops/triage/pkg/logger"
)

const testSecret = "unit-test-secret"

// newTestStore backs a *database.Store with sqlmock the same way
// infrastructure/database's own tests do, so the httpapi handlers that
// call straight through to the Data Store exercise real SQL shapes.
func newTestStore(t *testing.T) (*database.Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	sqlxDB := sqlx.NewDb(db, "postgres")
	return database.New(sqlxDB), mock, func() { _ = db.Close() }
}

func testLogger() *logger.Logger {
	return logger.New(logger.LoggingConfig{Level: "error", Format: "text"})
}

func testAuth() *Authenticator {
	return NewAuthenticator(testSecret, "role")
}

// signToken builds an HMAC-signed test JWT carrying sub/role, the shape
// Authenticator.Validate expects.
func signToken(t *testing.T, subject, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// cacheLimiterWithCap builds a RateLimiter over the in-process fallback
// path (nil redis client) with a long window and a small request cap, so
// tests can drive it over its limit deterministically.
func cacheLimiterWithCap(t *testing.T, maxRequests int) *cache.RateLimiter {
	t.Helper()
	return cache.NewRateLimiter(nil, testLogger().Logger, 60_000, maxRequests)
}

// contextWithRouteCtx stashes rctx the way chi's router middleware would,
// so handlers reading chi.URLParam see the value in a handler-only test.
func contextWithRouteCtx(r *http.Request, rctx *chi.Context) context.Context {
	return context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
}

func sqlNoRows() error {
	return sql.ErrNoRows
}
