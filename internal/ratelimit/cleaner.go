package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cleaner drops rate-limit windows that no longer hold recent requests, in
// Redis and in the in-memory fallback.
type Cleaner struct {
	redisClient *redis.Client
	memory      *MemoryLimiter
	maxAge      time.Duration
	log         *slog.Logger
}

// NewCleaner constructs a Cleaner. Either backend may be nil.
func NewCleaner(client *redis.Client, memory *MemoryLimiter, maxAge time.Duration, log *slog.Logger) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		redisClient: client,
		memory:      memory,
		maxAge:      maxAge,
		log:         log,
	}
}

// Sweep removes stale windows and returns how many were dropped.
func (c *Cleaner) Sweep(ctx context.Context) (int, error) {
	cleaned := 0
	if c.memory != nil {
		cleaned += c.memory.Cleanup(c.maxAge)
	}
	if c.redisClient == nil {
		return cleaned, nil
	}

	const scanCount = 100

	cutoff := float64(time.Now().Add(-c.maxAge).UnixNano()) / float64(time.Millisecond)
	var cursor uint64

	for {
		keys, nextCursor, err := c.redisClient.Scan(ctx, cursor, keyPrefix+"*", scanCount).Result()
		if err != nil {
			c.log.Error("rate limit scan failed", slog.Any("error", err))
			return cleaned, err
		}

		for _, key := range keys {
			pipe := c.redisClient.TxPipeline()
			pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("(%f", cutoff))
			cardCmd := pipe.ZCard(ctx, key)
			if _, err := pipe.Exec(ctx); err != nil {
				c.log.Warn("cleanup pipeline failed", slog.String("key", key), slog.Any("error", err))
				continue
			}

			if cardCmd.Val() == 0 {
				if err := c.redisClient.Del(ctx, key).Err(); err != nil {
					c.log.Warn("failed to delete empty rate limit key", slog.String("key", key), slog.Any("error", err))
					continue
				}
				cleaned++
			}
		}

		if nextCursor == 0 {
			break
		}
		cursor = nextCursor
	}

	if cleaned > 0 {
		c.log.Info("rate limit windows cleaned", slog.Int("keys_removed", cleaned))
	}
	return cleaned, nil
}
