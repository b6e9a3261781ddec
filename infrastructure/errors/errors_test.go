package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestServiceErrorMessageIncludesWrappedError(t *testing.T) {
	wrapped := fmt.Errorf("connection refused")
	e := Wrap(ErrCodeStoreError, "store operation failed", http.StatusInternalServerError, wrapped)
	if got := e.Error(); got == "" || got == fmt.Sprintf("[%s] store operation failed", ErrCodeStoreError) {
		t.Fatalf("expected the wrapped error's text in the message, got %q", got)
	}
}

func TestServiceErrorUnwrapReturnsOriginal(t *testing.T) {
	wrapped := errors.New("boom")
	e := Wrap(ErrCodeInternal, "internal error", http.StatusInternalServerError, wrapped)
	if errors.Unwrap(e) != wrapped {
		t.Fatal("expected Unwrap to return the original error")
	}
}

func TestWithDetailsChainsAndAccumulates(t *testing.T) {
	e := New(ErrCodeValidation, "bad input", http.StatusBadRequest).
		WithDetails("field", "amount").
		WithDetails("reason", "negative")
	if e.Details["field"] != "amount" || e.Details["reason"] != "negative" {
		t.Fatalf("expected both details to accumulate, got %+v", e.Details)
	}
}

func TestValidationAttachesFieldsOnlyWhenProvided(t *testing.T) {
	withFields := Validation("bad request", "amount", "currency")
	if withFields.Details["fields"] == nil {
		t.Fatal("expected fields detail to be set")
	}
	noFields := Validation("bad request")
	if noFields.Details != nil {
		t.Fatalf("expected no details when no fields given, got %+v", noFields.Details)
	}
}

func TestConflictOmitsExistingIDWhenEmpty(t *testing.T) {
	e := Conflict("already running", "")
	if e.Details != nil {
		t.Fatalf("expected no existingId detail for an empty id, got %+v", e.Details)
	}
	withID := Conflict("already running", "run-123")
	if withID.Details["existingId"] != "run-123" {
		t.Fatalf("expected existingId detail to be set, got %+v", withID.Details)
	}
}

func TestIsServiceErrorDistinguishesWrappedVsPlain(t *testing.T) {
	if IsServiceError(errors.New("plain")) {
		t.Fatal("expected a plain error to not be a ServiceError")
	}
	if !IsServiceError(NotFound("alert", "a-1")) {
		t.Fatal("expected a ServiceError to report true")
	}
	wrapped := fmt.Errorf("context: %w", NotFound("alert", "a-1"))
	if !IsServiceError(wrapped) {
		t.Fatal("expected errors.As to see through fmt.Errorf wrapping")
	}
}

func TestGetHTTPStatusFallsBackToInternalServerError(t *testing.T) {
	if got := GetHTTPStatus(errors.New("plain")); got != http.StatusInternalServerError {
		t.Fatalf("expected 500 for a non-ServiceError, got %d", got)
	}
	if got := GetHTTPStatus(RateLimited(5)); got != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for RateLimited, got %d", got)
	}
}

func TestRateLimitedCarriesRetryAfter(t *testing.T) {
	e := RateLimited(30)
	if e.Details["retryAfter"] != 30 {
		t.Fatalf("expected retryAfter=30, got %+v", e.Details)
	}
}

func TestPolicyBlockedCarriesBlockedBy(t *testing.T) {
	e := PolicyBlocked("amount_limits")
	if e.Details["blockedBy"] != "amount_limits" {
		t.Fatalf("expected blockedBy detail, got %+v", e.Details)
	}
}
