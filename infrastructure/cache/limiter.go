package cache

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	svcerrors "github.com/riskops/triage/infrastructure/errors"
)

// RateLimiter enforces a fixed-window request cap per client, backed by
// Redis with an in-process fallback so a cache outage fails open rather
// than blocking every caller (spec.md §4.2).
type RateLimiter struct {
	redis       *redis.Client
	log         *logrus.Logger
	windowMS    int
	maxRequests int

	fallbackMu sync.Mutex
	fallback   map[string]*window
}

type window struct {
	count   int
	resetAt time.Time
}

func NewRateLimiter(client *redis.Client, log *logrus.Logger, windowMS, maxRequests int) *RateLimiter {
	return &RateLimiter{
		redis:       client,
		log:         log,
		windowMS:    windowMS,
		maxRequests: maxRequests,
		fallback:    make(map[string]*window),
	}
}

// Allow reports whether clientID may proceed under the current window. On
// rejection it returns a RateLimited *errors.ServiceError carrying the
// retryAfter seconds the caller should wait.
func (l *RateLimiter) Allow(ctx context.Context, clientID string) error {
	if l.redis == nil {
		return l.allowFallback(clientID)
	}

	key := fmt.Sprintf("rate_limit:%s", clientID)
	window := time.Duration(l.windowMS) * time.Millisecond

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		l.log.WithError(err).Warn("rate limiter redis incr failed, failing open")
		return l.allowFallback(clientID)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, window).Err(); err != nil {
			l.log.WithError(err).Warn("rate limiter redis expire failed")
		}
	}

	if count <= int64(l.maxRequests) {
		return nil
	}

	ttl, err := l.redis.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	return svcerrors.RateLimited(retryAfterSeconds(ttl))
}

func (l *RateLimiter) allowFallback(clientID string) error {
	l.fallbackMu.Lock()
	defer l.fallbackMu.Unlock()

	now := time.Now()
	w, ok := l.fallback[clientID]
	if !ok || now.After(w.resetAt) {
		w = &window{count: 0, resetAt: now.Add(time.Duration(l.windowMS) * time.Millisecond)}
		l.fallback[clientID] = w
	}
	w.count++
	if w.count <= l.maxRequests {
		return nil
	}
	return svcerrors.RateLimited(retryAfterSeconds(w.resetAt.Sub(now)))
}

func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
