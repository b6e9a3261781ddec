package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	svcerrors "github.com/riskops/triage/infrastructure/errors"
)

// Claims is the subset of an inbound JWT's claims the engine needs: the
// caller's identity and role (spec.md §6 "the caller's role from the auth
// token"). Grounded on the teacher's pkg/auth.TokenClaims, trimmed to the
// two fields this domain actually reads.
type Claims struct {
	Subject string
	Role    string
}

type ctxKey int

const claimsCtxKey ctxKey = iota

// Authenticator validates bearer JWTs signed with a shared HMAC secret and
// extracts the configured role claim, the way the teacher's SupabaseAuth
// validates a Supabase-issued token.
type Authenticator struct {
	secret    []byte
	roleClaim string
}

func NewAuthenticator(secret, roleClaim string) *Authenticator {
	if roleClaim == "" {
		roleClaim = "role"
	}
	return &Authenticator{secret: []byte(secret), roleClaim: roleClaim}
}

// Validate parses and verifies tokenString, returning the caller's claims.
func (a *Authenticator) Validate(tokenString string) (*Claims, error) {
	if len(a.secret) == 0 {
		return nil, errors.New("auth secret not configured")
	}
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	claims := &Claims{}
	if sub, ok := mapClaims["sub"].(string); ok {
		claims.Subject = sub
	}
	if role, ok := mapClaims[a.roleClaim].(string); ok {
		claims.Role = role
	}
	return claims, nil
}

// Middleware rejects unauthenticated requests and stashes the caller's
// claims in the request context for handlers to read via claimsFrom.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			writeError(w, svcerrors.Validation("missing bearer token", "Authorization"))
			return
		}

		claims, err := a.Validate(token)
		if err != nil {
			writeError(w, svcerrors.Wrap(svcerrors.ErrCodeValidation, "unauthorized", http.StatusUnauthorized, err))
			return
		}

		ctx := context.WithValue(r.Context(), claimsCtxKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(r *http.Request) *Claims {
	claims, _ := r.Context().Value(claimsCtxKey).(*Claims)
	if claims == nil {
		return &Claims{}
	}
	return claims
}
