package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/nano-midea/notice/internal/models"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// UnreadCache keeps each receiver's unread notice count.
// notice:unread:{receiver}
type UnreadCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewUnreadCache(rds *redis.Client, ttl time.Duration) *UnreadCache {
	return &UnreadCache{redis: rds, ttl: ttl}
}

// Get reports the cached count and whether there was one.
func (c *UnreadCache) Get(ctx context.Context, receiverID uint) (int64, bool, error) {
	count, err := c.redis.Get(ctx, unreadKey(receiverID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "get unread count")
	}
	return count, true, nil
}

func (c *UnreadCache) Set(ctx context.Context, receiverID uint, count int64) error {
	return errors.Wrap(c.redis.Set(ctx, unreadKey(receiverID), count, c.ttl).Err(), "set unread count")
}

func (c *UnreadCache) Invalidate(ctx context.Context, receiverID uint) error {
	return errors.Wrap(c.redis.Del(ctx, unreadKey(receiverID)).Err(), "invalidate unread count")
}

// NoticeChanged drops the count of a receiver whose notices changed.
func (c *UnreadCache) NoticeChanged(ctx context.Context, receiverID uint, _ *models.Notice) error {
	return c.Invalidate(ctx, receiverID)
}

func unreadKey(receiverID uint) string {
	return fmt.Sprintf("notice:unread:%d", receiverID)
}
