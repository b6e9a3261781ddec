package cache

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// OTPStore issues and verifies single-use one-time passwords scoped to a
// card, via SET EX on issue and GETDEL on verify (spec.md §4.2).
type OTPStore struct {
	redis    *redis.Client
	log      *logrus.Logger
	ttl      time.Duration
	fallback *Cache
}

func NewOTPStore(client *redis.Client, log *logrus.Logger, ttl time.Duration) *OTPStore {
	return &OTPStore{
		redis:    client,
		log:      log,
		ttl:      ttl,
		fallback: NewCache(CacheConfig{DefaultTTL: ttl}),
	}
}

func (s *OTPStore) key(cardID string) string {
	return fmt.Sprintf("otp:%s", cardID)
}

// Issue generates and stores a fresh 6-digit code for cardID, overwriting
// any prior outstanding code.
func (s *OTPStore) Issue(ctx context.Context, cardID string) (string, error) {
	code, err := randomDigits(6)
	if err != nil {
		return "", err
	}
	key := s.key(cardID)

	s.fallback.Set(key, code, s.ttl)

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, code, s.ttl).Err(); err != nil {
			s.log.WithError(err).Warn("otp redis set failed, relying on in-process cache")
		}
	}
	return code, nil
}

// Verify checks code against the stored OTP for cardID and deletes the
// stored code whether or not it matches, making it single-use regardless
// of outcome.
func (s *OTPStore) Verify(ctx context.Context, cardID, code string) bool {
	key := s.key(cardID)

	if s.redis != nil {
		stored, err := s.redis.GetDel(ctx, key).Result()
		if err == nil {
			s.fallback.Invalidate(key)
			return stored == code
		}
		if err != redis.Nil {
			s.log.WithError(err).Warn("otp redis getdel failed, falling back to in-process cache")
		}
	}

	v, ok := s.fallback.GetDel(key)
	if !ok {
		return false
	}
	return v.(string) == code
}

func randomDigits(n int) (string, error) {
	digits := make([]byte, n)
	if _, err := rand.Read(digits); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range digits {
		out[i] = '0' + b%10
	}
	return string(out), nil
}
