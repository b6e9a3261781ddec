// Package errors provides unified error handling for the triage engine.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is a stable identifier for a ServiceError kind.
type ErrorCode string

const (
	ErrCodeValidation    ErrorCode = "VAL_1001"
	ErrCodeNotFound      ErrorCode = "RES_2001"
	ErrCodeConflict      ErrorCode = "RES_2002"
	ErrCodeRateLimited   ErrorCode = "SVC_3001"
	ErrCodeStepTimeout   ErrorCode = "ENG_4001"
	ErrCodeStepFailure   ErrorCode = "ENG_4002"
	ErrCodeCircuitOpen   ErrorCode = "ENG_4003"
	ErrCodeOTPRequired   ErrorCode = "ACT_5001"
	ErrCodeOTPInvalid    ErrorCode = "ACT_5002"
	ErrCodePolicyBlocked ErrorCode = "ACT_5003"
	ErrCodeStoreError    ErrorCode = "SVC_3002"
	ErrCodeInternal      ErrorCode = "SVC_3003"
)

// ServiceError is a structured error carrying a code, message, HTTP status,
// and arbitrary details — the taxonomy from spec.md §7 made concrete.
type ServiceError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithDetails attaches a key/value pair and returns the receiver for chaining.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func New(code ErrorCode, message string, httpStatus int) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func Wrap(code ErrorCode, message string, httpStatus int, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

// Validation reports malformed input; not retried. fields names the
// offending request fields.
func Validation(message string, fields ...string) *ServiceError {
	e := New(ErrCodeValidation, message, http.StatusBadRequest)
	if len(fields) > 0 {
		e.WithDetails("fields", fields)
	}
	return e
}

func NotFound(resource, id string) *ServiceError {
	return New(ErrCodeNotFound, "resource not found", http.StatusNotFound).
		WithDetails("resource", resource).
		WithDetails("id", id)
}

// Conflict signals e.g. an already-in-flight run for an alert; existingID
// points the caller at the resource already holding the conflict.
func Conflict(message, existingID string) *ServiceError {
	e := New(ErrCodeConflict, message, http.StatusConflict)
	if existingID != "" {
		e.WithDetails("existingId", existingID)
	}
	return e
}

// RateLimited carries the number of seconds the caller should wait before
// retrying.
func RateLimited(retryAfter int) *ServiceError {
	return New(ErrCodeRateLimited, "rate limit exceeded", http.StatusTooManyRequests).
		WithDetails("retryAfter", retryAfter)
}

// StepTimeout and StepFailure are internal; the Orchestrator absorbs them
// into a trace and a fallback rather than surfacing them to callers.

func StepTimeout(step string) *ServiceError {
	return New(ErrCodeStepTimeout, "step timed out", http.StatusGatewayTimeout).
		WithDetails("step", step)
}

func StepFailure(step string, err error) *ServiceError {
	return Wrap(ErrCodeStepFailure, "step failed", http.StatusInternalServerError, err).
		WithDetails("step", step)
}

func CircuitOpen(step string) *ServiceError {
	return New(ErrCodeCircuitOpen, "circuit open", http.StatusServiceUnavailable).
		WithDetails("step", step)
}

func OTPRequired() *ServiceError {
	return New(ErrCodeOTPRequired, "one-time password required", http.StatusPreconditionRequired)
}

func OTPInvalid() *ServiceError {
	return New(ErrCodeOTPInvalid, "one-time password invalid or expired", http.StatusUnauthorized)
}

// PolicyBlocked reports a refused action; blockedBy names the first failing
// compliance check.
func PolicyBlocked(blockedBy string) *ServiceError {
	return New(ErrCodePolicyBlocked, "action blocked by policy", http.StatusForbidden).
		WithDetails("blockedBy", blockedBy)
}

func StoreError(operation string, err error) *ServiceError {
	return Wrap(ErrCodeStoreError, "store operation failed", http.StatusInternalServerError, err).
		WithDetails("operation", operation)
}

// Internal wraps an unclassified error with a correlation id for support.
func Internal(correlationID string, err error) *ServiceError {
	return Wrap(ErrCodeInternal, "internal error", http.StatusInternalServerError, err).
		WithDetails("correlationId", correlationID)
}

func IsServiceError(err error) bool {
	var serviceErr *ServiceError
	return errors.As(err, &serviceErr)
}

func GetServiceError(err error) *ServiceError {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}
	return nil
}

func GetHTTPStatus(err error) int {
	if serviceErr := GetServiceError(err); serviceErr != nil {
		return serviceErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
