package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// unreadTTL bounds staleness of cached unread totals. The SQL store stays the
// source of truth; the cache only absorbs dashboard polling.
const unreadTTL = 60 * time.Second

// UnreadCache caches per-supplier unread inbox totals.
type UnreadCache struct {
	redis *RedisClient
}

// NewUnreadCache creates a new UnreadCache.
func NewUnreadCache(redis *RedisClient) *UnreadCache {
	return &UnreadCache{redis: redis}
}

func (c *UnreadCache) key(supplierID int) string {
	return fmt.Sprintf("inbox:unread:%d", supplierID)
}

// Get returns the cached unread count for a supplier. The second return value
// is false on a miss or on any cache error.
func (c *UnreadCache) Get(ctx context.Context, supplierID int) (int, bool) {
	v, err := c.redis.Get(ctx, c.key(supplierID))
	if err == redis.Nil {
		return 0, false
	}
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Set stores the unread count for a supplier.
func (c *UnreadCache) Set(ctx context.Context, supplierID, count int) error {
	return c.redis.Set(ctx, c.key(supplierID), strconv.Itoa(count), unreadTTL)
}

// Invalidate drops the cached count for the given suppliers. Called after any
// write that can change unread state (mark-read, new reply).
func (c *UnreadCache) Invalidate(ctx context.Context, supplierIDs ...int) error {
	keys := make([]string, 0, len(supplierIDs))
	for _, id := range supplierIDs {
		keys = append(keys, c.key(id))
	}
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Delete(ctx, keys...)
}
