// Package rediscache wraps a suppression repository with a Redis cache so
// senders can consult the list on the hot path without hitting Postgres for
// every recipient.
package rediscache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nimbly/notification-service/internal/domain"
	"github.com/nimbly/notification-service/internal/pkg/logger"
	"github.com/nimbly/notification-service/internal/service/suppression"
)

const (
	setKey = "suppression:hashes"

	// negativeTTL bounds how long a "not suppressed" verdict is trusted.
	negativeTTL = 5 * time.Minute
)

// SuppressionCache is a write-through/read-through decorator around a
// suppression.Repository. Cache failures degrade to the underlying store,
// never to an error: Redis going away must not stop suppression checks.
type SuppressionCache struct {
	next suppression.Repository
	rdb  *redis.Client
}

// New wraps the given repository with a Redis cache.
func New(next suppression.Repository, rdb *redis.Client) *SuppressionCache {
	return &SuppressionCache{next: next, rdb: rdb}
}

func (c *SuppressionCache) Put(ctx context.Context, e *domain.Suppression) error {
	if err := c.next.Put(ctx, e); err != nil {
		return err
	}
	if err := c.rdb.SAdd(ctx, setKey, e.EmailHash).Err(); err != nil {
		logger.Warn("suppression.cache.add_failed", "error", err.Error())
	}
	c.rdb.Del(ctx, negativeKey(e.EmailHash))
	return nil
}

func (c *SuppressionCache) IsSuppressed(ctx context.Context, emailHash string) (bool, error) {
	hit, err := c.rdb.SIsMember(ctx, setKey, emailHash).Result()
	if err == nil && hit {
		return true, nil
	}
	if err == nil {
		// Negative membership is only trusted briefly; the set may be cold.
		if n, nerr := c.rdb.Exists(ctx, negativeKey(emailHash)).Result(); nerr == nil && n > 0 {
			return false, nil
		}
	}

	suppressed, err := c.next.IsSuppressed(ctx, emailHash)
	if err != nil {
		return false, err
	}
	if suppressed {
		if cerr := c.rdb.SAdd(ctx, setKey, emailHash).Err(); cerr != nil {
			logger.Warn("suppression.cache.backfill_failed", "error", cerr.Error())
		}
	} else {
		c.rdb.Set(ctx, negativeKey(emailHash), "1", negativeTTL)
	}
	return suppressed, nil
}

func (c *SuppressionCache) Remove(ctx context.Context, emailHash string) error {
	if err := c.next.Remove(ctx, emailHash); err != nil {
		return err
	}
	if err := c.rdb.SRem(ctx, setKey, emailHash).Err(); err != nil {
		logger.Warn("suppression.cache.remove_failed", "error", err.Error())
	}
	c.rdb.Del(ctx, negativeKey(emailHash))
	return nil
}

func (c *SuppressionCache) List(ctx context.Context, f suppression.ListFilter) ([]domain.Suppression, int, error) {
	return c.next.List(ctx, f)
}

func (c *SuppressionCache) Count(ctx context.Context) (int, error) {
	return c.next.Count(ctx)
}

func negativeKey(hash string) string {
	return "suppression:miss:" + hash
}
