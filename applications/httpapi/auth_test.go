package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthenticatorValidateAcceptsSignedToken(t *testing.T) {
	a := testAuth()
	token := signToken(t, "user-1", "agent")

	claims, err := a.Validate(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != "user-1" || claims.Role != "agent" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAuthenticatorValidateRejectsWrongSecret(t *testing.T) {
	a := NewAuthenticator("other-secret", "role")
	token := signToken(t, "user-1", "agent")

	if _, err := a.Validate(token); err == nil {
		t.Fatal("expected an error for a token signed with a different secret")
	}
}

func TestMiddlewareRejectsMissingBearerToken(t *testing.T) {
	a := testAuth()
	called := false
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/alerts", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if called {
		t.Fatal("handler should not run without a bearer token")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMiddlewareRejectsInvalidToken(t *testing.T) {
	a := testAuth()
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run for an invalid token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/alerts", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMiddlewareStashesClaimsForHandler(t *testing.T) {
	a := testAuth()
	token := signToken(t, "user-2", "lead")
	var seen *Claims
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = claimsFrom(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/alerts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen == nil || seen.Subject != "user-2" || seen.Role != "lead" {
		t.Fatalf("unexpected claims in handler: %+v", seen)
	}
}

func TestClaimsFromReturnsZeroValueWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/alerts", nil)
	c := claimsFrom(req)
	if c.Subject != "" || c.Role != "" {
		t.Fatalf("expected zero-value claims, got %+v", c)
	}
}
