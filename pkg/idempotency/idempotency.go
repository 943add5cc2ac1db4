package idempotency

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const Header = "Idempotency-Key"

// DefaultTTL is how long a claimed key blocks a repeat submission
const DefaultTTL = 24 * time.Hour

func Key(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}

// Store records claimed idempotency keys
type Store interface {
	// Claim marks key as used, reporting false when it was already claimed
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release forgets key so the request may be retried
	Release(ctx context.Context, key string) error
}

// RedisStore keeps keys in Redis with SETNX
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: "stockroom:idempotent-key:"}
}

func (s *RedisStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, s.prefix+key, "claimed", ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "claim idempotency key")
	}
	return ok, nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return errors.Wrap(s.rdb.Del(ctx, s.prefix+key).Err(), "release idempotency key")
}

// MemoryStore keeps keys in process memory
type MemoryStore struct {
	mu   sync.Mutex
	keys map[string]time.Time
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryStore) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, exp := range s.keys {
		if now.After(exp) {
			delete(s.keys, k)
		}
	}
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = now.Add(ttl)
	return true, nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

// ScopedKey binds a client supplied key to the submitting user
func ScopedKey(userID int64, key string) string {
	return fmt.Sprintf("%d:%s", userID, key)
}
