package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const memoryKeyPrefix = "stylist:memory:"

// MemoryKey returns the Redis key holding a user's long-term summary.
func MemoryKey(userID string) string {
	return memoryKeyPrefix + userID
}

// RedisMemory is a thin get/set/del wrapper over Redis for memory summaries.
type RedisMemory struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisMemory wraps an existing client. ttl <= 0 stores keys without expiry.
func NewRedisMemory(rdb *redis.Client, ttl time.Duration) *RedisMemory {
	return &RedisMemory{rdb: rdb, ttl: ttl}
}

// NewRedisClient builds a go-redis client and checks connectivity.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// Get returns the cached summary. A missing key is ("", false, nil).
func (m *RedisMemory) Get(ctx context.Context, userID string) (string, bool, error) {
	val, err := m.rdb.Get(ctx, MemoryKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get memory: %w", err)
	}
	return val, true, nil
}

// Set stores the summary.
func (m *RedisMemory) Set(ctx context.Context, userID, summary string) error {
	if err := m.rdb.Set(ctx, MemoryKey(userID), summary, m.ttl).Err(); err != nil {
		return fmt.Errorf("redis set memory: %w", err)
	}
	return nil
}

// Delete removes the summary.
func (m *RedisMemory) Delete(ctx context.Context, userID string) error {
	if err := m.rdb.Del(ctx, MemoryKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis del memory: %w", err)
	}
	return nil
}

// Ping reports whether Redis answers.
func (m *RedisMemory) Ping(ctx context.Context) error {
	return m.rdb.Ping(ctx).Err()
}
