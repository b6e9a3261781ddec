package cache

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"

	svcerrors "github.com/riskops/triage/infrastructure/errors"
)

func TestRateLimiterFallbackBoundary(t *testing.T) {
	log := logrus.New()
	log.SetOutput(discard{})
	limiter := NewRateLimiter(nil, log, 60_000, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.Allow(ctx, "client-a"); err != nil {
			t.Fatalf("request %d expected to pass, got %v", i+1, err)
		}
	}

	err := limiter.Allow(ctx, "client-a")
	if err == nil {
		t.Fatal("4th request expected to be rate limited")
	}
	if !svcerrors.IsServiceError(err) {
		t.Fatalf("expected a ServiceError, got %T", err)
	}
	svcErr := svcerrors.GetServiceError(err)
	if svcErr.Code != svcerrors.ErrCodeRateLimited {
		t.Fatalf("expected ErrCodeRateLimited, got %s", svcErr.Code)
	}

	if err := limiter.Allow(ctx, "client-b"); err != nil {
		t.Fatalf("a different client should not be affected: %v", err)
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
