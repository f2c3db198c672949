package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/portfolio-delivery/internal/domain/profile"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

func newTestCache(t *testing.T) (*miniredis.Miniredis, profile.Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, NewRedisProfileCache(rdb, time.Minute, logger.NewNop())
}

func TestRedisProfileCache_RoundTrip(t *testing.T) {
	mr, cache := newTestCache(t)
	ctx := context.Background()

	_, ok := cache.Get(ctx)
	assert.False(t, ok)

	doc := &profile.Document{ID: "7", Name: "Banala", Skills: []profile.Skill{{Name: "Go", Level: 90}}}
	cache.Set(ctx, doc)

	got, ok := cache.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, doc, got)
	assert.Equal(t, time.Minute, mr.TTL(profileCacheKey))

	cache.Invalidate(ctx)
	_, ok = cache.Get(ctx)
	assert.False(t, ok)
}

func TestRedisProfileCache_SetIfAbsentKeepsNewerEntry(t *testing.T) {
	mr, cache := newTestCache(t)
	ctx := context.Background()

	cache.SetIfAbsent(ctx, &profile.Document{ID: "1", Name: "first"})
	got, ok := cache.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, "first", got.Name)
	assert.Equal(t, time.Minute, mr.TTL(profileCacheKey))

	cache.Set(ctx, &profile.Document{ID: "2", Name: "second"})
	cache.SetIfAbsent(ctx, &profile.Document{ID: "1", Name: "first"})

	got, ok = cache.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, "second", got.Name)
}

func TestRedisProfileCache_CorruptEntryIsMiss(t *testing.T) {
	mr, cache := newTestCache(t)
	require.NoError(t, mr.Set(profileCacheKey, "{not json"))

	_, ok := cache.Get(context.Background())
	assert.False(t, ok)
	assert.False(t, mr.Exists(profileCacheKey))
}

func TestRedisProfileCache_ServerDownIsMiss(t *testing.T) {
	mr, cache := newTestCache(t)
	mr.Close()

	_, ok := cache.Get(context.Background())
	assert.False(t, ok)
	cache.Set(context.Background(), &profile.Document{Name: "x"})
}
