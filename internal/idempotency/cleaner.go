package idempotency

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Cleaner removes idempotency keys that have no expiry, such as lock keys
// written with a zero TTL.
type Cleaner struct {
	client *redis.Client
	log    *slog.Logger
}

func NewCleaner(client *redis.Client, log *slog.Logger) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		client: client,
		log:    log,
	}
}

// Sweep deletes every idempotency key without a TTL and reports how many
// were removed.
func (c *Cleaner) Sweep(ctx context.Context) (int, error) {
	var (
		cursor  uint64
		removed int
	)

	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			c.log.Error("idempotency cleaner scan failed", slog.Any("error", err))
			return removed, err
		}

		for _, key := range keys {
			ttl, err := c.client.TTL(ctx, key).Result()
			if err != nil {
				c.log.Warn("failed to get key ttl", slog.String("key", key), slog.Any("error", err))
				continue
			}

			// -1 means no expiry; -2 means the key is already gone.
			if ttl != -1 {
				continue
			}
			if err := c.client.Del(ctx, key).Err(); err != nil {
				c.log.Warn("failed to delete stale idempotency key", slog.String("key", key), slog.Any("error", err))
				continue
			}
			removed++
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return removed, nil
}
