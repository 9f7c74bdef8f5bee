package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"product-studio/internal/settings/domain/model"
	"product-studio/internal/settings/domain/repository"
	"product-studio/internal/shared/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultLatestKey is the hash holding the cached latest snapshot
const DefaultLatestKey = "studio:settings:latest"

// putIfNewer stores the payload only when its createdAt (unix ms) is strictly greater
// than the cached one, so a slow reader can never roll the cache back.
var putIfNewer = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'createdAt')
if current and tonumber(current) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'createdAt', ARGV[1], 'payload', ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// RedisSnapshotCache caches the latest configuration snapshot in a Redis hash
type RedisSnapshotCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger logger.Logger
}

var _ repository.SnapshotCache = (*RedisSnapshotCache)(nil)

// NewRedisSnapshotCache creates a cache under key; ttl <= 0 keeps entries forever
func NewRedisSnapshotCache(client *redis.Client, key string, ttl time.Duration, log logger.Logger) *RedisSnapshotCache {
	if key == "" {
		key = DefaultLatestKey
	}
	return &RedisSnapshotCache{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: log,
	}
}

// Get returns the cached snapshot or nil on a miss
func (c *RedisSnapshotCache) Get(ctx context.Context) (*model.ConfigurationSnapshot, error) {
	payload, err := c.client.HGet(ctx, c.key, "payload").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		c.logger.Error("Failed to read cached snapshot", zap.String("key", c.key), zap.Error(err))
		return nil, err
	}

	var snapshot model.ConfigurationSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		c.logger.Warn("Discarding undecodable cached snapshot", zap.String("key", c.key), zap.Error(err))
		return nil, nil
	}
	return &snapshot, nil
}

// Put caches snapshot unless a newer one is already cached
func (c *RedisSnapshotCache) Put(ctx context.Context, snapshot *model.ConfigurationSnapshot) (bool, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return false, err
	}

	stored, err := putIfNewer.Run(ctx, c.client, []string{c.key},
		strconv.FormatInt(snapshot.CreatedAt.UnixMilli(), 10),
		payload,
		strconv.FormatInt(c.ttl.Milliseconds(), 10),
	).Int()
	if err != nil {
		c.logger.Error("Failed to cache snapshot", zap.String("key", c.key), zap.Error(err))
		return false, err
	}

	c.logger.Debug("Snapshot cache write",
		zap.String("key", c.key),
		zap.Bool("stored", stored == 1),
		zap.Int("payloadBytes", len(payload)))
	return stored == 1, nil
}

// Ping checks the Redis connection
func (c *RedisSnapshotCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
