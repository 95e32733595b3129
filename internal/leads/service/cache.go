package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"leadflow_backend/platform/logger"
)

// Cache is the best-effort duplicate-capture cache. It front-runs the
// authoritative store check to reject obvious repeats cheaply; a cache miss
// or a cache failure always falls through to the transactional check.
type Cache struct {
	rdb redis.UniversalClient
	ttl time.Duration
	log *logger.Logger
}

func NewCache(rdb redis.UniversalClient, ttl time.Duration, log *logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{rdb: rdb, ttl: ttl, log: log}
}

func capturePhoneKey(phone string) string { return "lead:capture:phone:" + phone }
func captureEmailKey(email string) string { return "lead:capture:email:" + email }

// SeenRecently reports whether the phone or email was captured within the
// cache TTL. Failures are logged and reported as unseen.
func (c *Cache) SeenRecently(ctx context.Context, phone string, email *string) bool {
	keys := []string{capturePhoneKey(phone)}
	if email != nil {
		keys = append(keys, captureEmailKey(*email))
	}

	hits, err := c.rdb.Exists(ctx, keys...).Result()
	if err != nil {
		c.log.CacheError("capture_duplicate_check", err)
		return false
	}
	return hits > 0
}

// MarkSeen records the capture identifiers. Failures are logged and ignored.
func (c *Cache) MarkSeen(ctx context.Context, phone string, email *string) {
	if err := c.rdb.Set(ctx, capturePhoneKey(phone), 1, c.ttl).Err(); err != nil {
		c.log.CacheError("capture_duplicate_mark", err)
	}
	if email != nil {
		if err := c.rdb.Set(ctx, captureEmailKey(*email), 1, c.ttl).Err(); err != nil {
			c.log.CacheError("capture_duplicate_mark", err)
		}
	}
}
