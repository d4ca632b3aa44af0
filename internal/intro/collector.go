// Package intro stores self-introduction fragments until they are analyzed.
package intro

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	introKeyPrefix = "interview:intro:"
	// DefaultTTL matches the default session lifetime.
	DefaultTTL = 24 * time.Hour
)

// RedisCollector keeps fragments in a Redis list per user.
type RedisCollector struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
}

func NewRedisCollector(client *redis.Client, log *slog.Logger, ttl time.Duration) *RedisCollector {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCollector{client: client, log: log, ttl: ttl}
}

// Collect appends a non-blank fragment and refreshes the list TTL.
func (c *RedisCollector) Collect(ctx context.Context, userID, message string) error {
	fragment := strings.TrimSpace(message)
	if fragment == "" {
		return nil
	}

	key := introKeyPrefix + userID
	pipe := c.client.TxPipeline()
	pipe.RPush(ctx, key, fragment)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Error("failed to store intro fragment", slog.String("user_id", userID), slog.Any("error", err))
		return err
	}
	return nil
}

// Collected returns the fragments joined by newlines, or "" when none exist.
func (c *RedisCollector) Collected(ctx context.Context, userID string) (string, error) {
	fragments, err := c.client.LRange(ctx, introKeyPrefix+userID, 0, -1).Result()
	if err != nil {
		return "", err
	}
	return strings.Join(fragments, "\n"), nil
}

func (c *RedisCollector) Clear(ctx context.Context, userID string) error {
	return c.client.Del(ctx, introKeyPrefix+userID).Err()
}

// MemoryCollector keeps fragments in process memory.
type MemoryCollector struct {
	mu        sync.Mutex
	fragments map[string][]string
}

func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{fragments: make(map[string][]string)}
}

func (c *MemoryCollector) Collect(_ context.Context, userID, message string) error {
	fragment := strings.TrimSpace(message)
	if fragment == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fragments[userID] = append(c.fragments[userID], fragment)
	return nil
}

func (c *MemoryCollector) Collected(_ context.Context, userID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.fragments[userID], "\n"), nil
}

func (c *MemoryCollector) Clear(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.fragments, userID)
	return nil
}
