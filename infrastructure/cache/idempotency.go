package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// IdempotencyStore persists action results keyed by Idempotency-Key so a
// replayed request returns the original response verbatim instead of
// re-executing the action (spec.md §4.2, §4.9).
type IdempotencyStore struct {
	redis    *redis.Client
	log      *logrus.Logger
	ttl      time.Duration
	fallback *Cache
}

func NewIdempotencyStore(client *redis.Client, log *logrus.Logger, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		redis:    client,
		log:      log,
		ttl:      ttl,
		fallback: NewCache(CacheConfig{DefaultTTL: ttl}),
	}
}

func (s *IdempotencyStore) key(op, idempotencyKey string) string {
	return fmt.Sprintf("idempotency:%s:%s", op, idempotencyKey)
}

// Get returns the previously stored result for (op, idempotencyKey), if
// any, decoded into result.
func (s *IdempotencyStore) Get(ctx context.Context, op, idempotencyKey string, result interface{}) (bool, error) {
	key := s.key(op, idempotencyKey)

	if s.redis != nil {
		raw, err := s.redis.Get(ctx, key).Bytes()
		if err == nil {
			return true, json.Unmarshal(raw, result)
		}
		if err != redis.Nil {
			s.log.WithError(err).Warn("idempotency redis get failed, falling back to in-process cache")
		}
	}

	if v, ok := s.fallback.Get(key); ok {
		raw := v.([]byte)
		return true, json.Unmarshal(raw, result)
	}
	return false, nil
}

// Put stores result under (op, idempotencyKey) for the configured TTL.
func (s *IdempotencyStore) Put(ctx context.Context, op, idempotencyKey string, result interface{}) error {
	key := s.key(op, idempotencyKey)
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}

	s.fallback.Set(key, raw, s.ttl)

	if s.redis == nil {
		return nil
	}
	if err := s.redis.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.log.WithError(err).Warn("idempotency redis set failed, relying on in-process cache")
	}
	return nil
}
