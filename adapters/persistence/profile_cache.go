package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-delivery/internal/domain/profile"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

const profileCacheKey = "profile:current"

type redisProfileCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisProfileCache(rdb *redis.Client, ttl time.Duration, log logger.Logger) profile.Cache {
	return &redisProfileCache{rdb: rdb, ttl: ttl, logger: log}
}

func (c *redisProfileCache) Get(ctx context.Context) (*profile.Document, bool) {
	raw, err := c.rdb.Get(ctx, profileCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Profile cache read failed", zap.Error(err))
		}
		return nil, false
	}

	doc := &profile.Document{}
	if err := json.Unmarshal(raw, doc); err != nil {
		c.logger.Warn("Profile cache entry is corrupt, dropping it", zap.Error(err))
		c.Invalidate(ctx)
		return nil, false
	}
	return doc, true
}

func (c *redisProfileCache) Set(ctx context.Context, doc *profile.Document) {
	raw, ok := c.encode(doc)
	if !ok {
		return
	}
	if err := c.rdb.Set(ctx, profileCacheKey, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Profile cache write failed", zap.Error(err))
		// A stale entry must not outlive a failed write.
		c.Invalidate(ctx)
	}
}

func (c *redisProfileCache) SetIfAbsent(ctx context.Context, doc *profile.Document) {
	raw, ok := c.encode(doc)
	if !ok {
		return
	}
	if err := c.rdb.SetNX(ctx, profileCacheKey, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Profile cache fill failed", zap.Error(err))
	}
}

func (c *redisProfileCache) encode(doc *profile.Document) ([]byte, bool) {
	if doc == nil {
		return nil, false
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		c.logger.Warn("Profile cache encode failed", zap.Error(err))
		return nil, false
	}
	return raw, true
}

func (c *redisProfileCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Del(ctx, profileCacheKey).Err(); err != nil {
		c.logger.Warn("Profile cache invalidate failed", zap.Error(err))
	}
}
