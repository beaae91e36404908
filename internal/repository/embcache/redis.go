package embcache

import (
	"context"
	"time"
)

// kv is the slice of db.KVStore the Redis-backed cache needs.
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisStore keeps cached embeddings in the shared database with an expiry.
type RedisStore struct {
	kv  kv
	ttl time.Duration
}

// NewRedisStore adapts a KV store; ttl <= 0 keeps entries forever.
func NewRedisStore(s kv, ttl time.Duration) *RedisStore {
	return &RedisStore{kv: s, ttl: ttl}
}

// Get returns the cached bytes or db.ErrKeyNotFound.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.kv.Get(ctx, key) //nolint:wrapcheck // sentinel must pass through
}

// Set stores value with the configured ttl.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.kv.SetWithTTL(ctx, key, value, s.ttl) //nolint:wrapcheck // storage errors carry db.Error
}
