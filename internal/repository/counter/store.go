// Package counter persists limiter and budget counters in the kv store.
package counter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leadforge/leadforge/internal/db"
)

// kv is the consumer interface for counter operations (ISP).
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store adapts the kv store to the counter interfaces consumed by the
// rate limiter and the token budget (INCRBY + GET with TTL).
type Store struct {
	kv        kv
	dailyTTL  time.Duration
	weeklyTTL time.Duration
	monthTTL  time.Duration
}

// New creates a counter store.
// Recommended TTLs: 48h daily, 9 days weekly, 62 days monthly.
func New(s kv, dailyTTL, weeklyTTL, monthTTL time.Duration) *Store {
	return &Store{
		kv:        s,
		dailyTTL:  dailyTTL,
		weeklyTTL: weeklyTTL,
		monthTTL:  monthTTL,
	}
}

// IncrBy atomically increments the key value and sets TTL.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if _, err := s.kv.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("counter INCRBY %s: %w", key, err)
	}

	// Set TTL only if the key has no expiry yet (NX, not reset on repeat).
	ttl := s.ttlForKey(key)
	if err := s.kv.Expire(ctx, key, ttl, true); err != nil {
		return fmt.Errorf("counter EXPIRE %s: %w", key, err)
	}

	return nil
}

// Get returns the current counter value. Returns 0 if the key does not exist.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("counter GET %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter GET %s parse: %w", key, err)
	}
	return val, nil
}

// ttlForKey picks the TTL from the window segment of the key
// (leadforge:limits:{lane}:daily:..., leadforge:budget:{scope}:monthly:...).
func (s *Store) ttlForKey(key string) time.Duration {
	switch {
	case strings.Contains(key, ":daily:"):
		return s.dailyTTL
	case strings.Contains(key, ":weekly:"):
		return s.weeklyTTL
	default:
		return s.monthTTL
	}
}
