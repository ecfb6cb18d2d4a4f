package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore is the Redis-backed Store implementation. Entries are written
// without a Redis TTL: completed calendar periods are cached indefinitely
// and freshness of live periods is decided by the caller, not by key expiry.
type RedisStore struct {
	rdb *redis.Client
	log *zap.Logger
}

// NewRedisStore creates a Redis-backed store and verifies the connection.
func NewRedisStore(redisURL string, log *zap.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = 20
	opts.MinIdleConns = 2
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{rdb: rdb, log: log}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.rdb != nil {
		return s.rdb.Close()
	}
	return nil
}

// Get retrieves a cache entry. A missing key returns nil. A corrupt entry
// is deleted and reported as missing so the caller refetches.
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	start := time.Now()
	val, err := s.rdb.Get(ctx, key).Result()
	dur := time.Since(start)
	if err == redis.Nil {
		s.log.Debug("cache_miss", zap.String("key", key), zap.Duration("duration", dur))
		return nil, nil
	}
	if err != nil {
		s.log.Info("cache_get", zap.String("key", key), zap.Duration("duration", dur), zap.Error(err))
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal([]byte(val), &entry); err != nil || entry.Timestamp.IsZero() || len(entry.Payload) == 0 {
		s.log.Warn("cache_entry_malformed, discarding",
			zap.String("key", key),
			zap.Error(err))
		if delErr := s.rdb.Del(ctx, key).Err(); delErr != nil {
			s.log.Warn("cache_del", zap.String("key", key), zap.Error(delErr))
		}
		return nil, nil
	}

	s.log.Debug("cache_hit", zap.String("key", key), zap.Duration("duration", dur))
	return &entry, nil
}

// Put overwrites the entry under key with the given payload, stamped now.
func (s *RedisStore) Put(ctx context.Context, key string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal cache payload: %w", err)
	}

	entry := Entry{Payload: raw, Timestamp: time.Now()}
	blob, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	start := time.Now()
	err = s.rdb.Set(ctx, key, string(blob), 0).Err()
	dur := time.Since(start)
	if err != nil {
		s.log.Info("cache_set", zap.String("key", key), zap.Duration("duration", dur), zap.Error(err))
		return err
	}
	s.log.Debug("cache_set", zap.String("key", key), zap.Duration("duration", dur))
	return nil
}

// Remove deletes the entry under key.
func (s *RedisStore) Remove(ctx context.Context, key string) error {
	err := s.rdb.Del(ctx, key).Err()
	s.log.Debug("cache_del", zap.String("key", key), zap.Error(err))
	return err
}

// Health checks the Redis connection.
func (s *RedisStore) Health(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
