// Package idempotency remembers the order created for a client-supplied
// Idempotency-Key so a retried POST returns the original order.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 24 * time.Hour

type Store interface {
	// Lookup returns the remembered order id, or ok=false when the key is unseen.
	Lookup(ctx context.Context, key string) (orderID uint, ok bool, err error)
	Remember(ctx context.Context, key string, orderID uint) error
}

func Key(userID uint, clientKey string) string {
	return fmt.Sprintf("idem:order:create:%d:%s", userID, clientKey)
}

type memEntry struct {
	orderID uint
	expires time.Time
}

type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{entries: map[string]memEntry{}, ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Lookup(_ context.Context, key string) (uint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return 0, false, nil
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, key)
		return 0, false, nil
	}
	return e.orderID, true, nil
}

func (s *MemoryStore) Remember(_ context.Context, key string, orderID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memEntry{orderID: orderID, expires: s.now().Add(s.ttl)}
	return nil
}

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Lookup(ctx context.Context, key string) (uint, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("idempotency key %s holds %q: %w", key, v, err)
	}
	return uint(id), true, nil
}

// Remember keeps the first writer's order id if two requests race.
func (s *RedisStore) Remember(ctx context.Context, key string, orderID uint) error {
	return s.rdb.SetNX(ctx, key, strconv.FormatUint(uint64(orderID), 10), s.ttl).Err()
}

// NewRedisClient connects and pings so a bad address fails at startup.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}
