package persistence

import (
	"context"
	"testing"
	"time"

	"product-studio/internal/settings/domain/model"
	"product-studio/internal/shared/logger"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// createTestRedisClient creates a Redis client for testing
func createTestRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         "localhost:6379",
		DB:           15,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func newTestCache(t *testing.T) (*RedisSnapshotCache, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	client := createTestRedisClient()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skip("Redis not available for testing:", err)
	}

	key := "test:settings:latest:" + t.Name()
	client.Del(ctx, key)
	t.Cleanup(func() {
		client.Del(context.Background(), key)
		client.Close()
	})
	return NewRedisSnapshotCache(client, key, time.Minute, logger.NewNopLogger()), ctx
}

func cachedSnapshot(url string, at time.Time) *model.ConfigurationSnapshot {
	s := model.NewConfigurationSnapshot(url, "#112233", false)
	s.ID = primitive.NewObjectID()
	s.CreatedAt = at.UTC().Truncate(time.Millisecond)
	return s
}

func TestRedisSnapshotCache_MissThenHit(t *testing.T) {
	cache, ctx := newTestCache(t)

	got, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	s := cachedSnapshot("data:model/gltf-binary;base64,AAAA", time.Now())
	stored, err := cache.Put(ctx, s)
	require.NoError(t, err)
	assert.True(t, stored)

	got, err = cache.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.ModelURL, got.ModelURL)
	assert.Equal(t, s.ID, got.ID)
	assert.True(t, s.CreatedAt.Equal(got.CreatedAt))
}

func TestRedisSnapshotCache_NeverStoresOlder(t *testing.T) {
	cache, ctx := newTestCache(t)
	now := time.Now()

	stored, err := cache.Put(ctx, cachedSnapshot("newer", now))
	require.NoError(t, err)
	require.True(t, stored)

	stored, err = cache.Put(ctx, cachedSnapshot("older", now.Add(-time.Second)))
	require.NoError(t, err)
	assert.False(t, stored)

	got, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "newer", got.ModelURL)
}
