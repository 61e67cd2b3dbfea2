package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/mikey/threat-analyzer/internal/core"
)

// RedisStore keeps verdicts as JSON values; Redis key expiry handles retention
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisStore connects to addr and verifies the connection
func NewRedisStore(ctx context.Context, addr, prefix string, logger *zap.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return NewRedisStoreWithClient(rdb, prefix, logger), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(rdb *redis.Client, prefix string, logger *zap.Logger) *RedisStore {
	if prefix == "" {
		prefix = "threat:verdict:"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, logger: logger}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Save stores the verdict with a TTL derived from ExpiresAt
func (s *RedisStore) Save(ctx context.Context, verdict *core.Verdict) error {
	if verdict == nil || verdict.ID == "" {
		return ErrInvalidVerdict
	}

	var ttl time.Duration
	if !verdict.ExpiresAt.IsZero() {
		ttl = time.Until(verdict.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}

	payload, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("failed to encode verdict: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(verdict.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store verdict: %w", err)
	}
	return nil
}

// Get retrieves a verdict by id
func (s *RedisStore) Get(ctx context.Context, id string) (*core.Verdict, error) {
	payload, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch verdict: %w", err)
	}

	var v core.Verdict
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("failed to decode verdict: %w", err)
	}
	return &v, nil
}

// Delete removes a verdict
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete verdict: %w", err)
	}
	return nil
}

// Cleanup is a no-op: keys carry their own expiry
func (s *RedisStore) Cleanup(ctx context.Context) error {
	return nil
}

// Stop closes the client
func (s *RedisStore) Stop() {
	if err := s.rdb.Close(); err != nil {
		s.logger.Error("Failed to close Redis client", zap.Error(err))
	}
}
