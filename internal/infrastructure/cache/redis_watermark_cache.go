package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/backoffice/backend/internal/domain/integration"
	"github.com/backoffice/backend/internal/infrastructure/config"
)

const watermarkKeyPrefix = "sync:watermarks:"

// RedisWatermarkCache implements WatermarkCache on Redis, for deployments
// where several instances serve watermark introspection.
type RedisWatermarkCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

// NewRedisWatermarkCache connects to Redis and verifies the connection.
func NewRedisWatermarkCache(cfg config.RedisConfig) (*RedisWatermarkCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisWatermarkCache{
		client:    client,
		ttl:       cfg.TTL,
		keyPrefix: watermarkKeyPrefix,
	}, nil
}

// NewRedisWatermarkCacheWithClient creates a cache with an existing Redis
// client, useful for testing or sharing a client across components.
func NewRedisWatermarkCacheWithClient(client *redis.Client, ttl time.Duration) *RedisWatermarkCache {
	return &RedisWatermarkCache{
		client:    client,
		ttl:       ttl,
		keyPrefix: watermarkKeyPrefix,
	}
}

var _ WatermarkCache = (*RedisWatermarkCache)(nil)

func (c *RedisWatermarkCache) key(storeID int64) string {
	return fmt.Sprintf("%s%d", c.keyPrefix, storeID)
}

// Get returns the cached watermark map for a store
func (c *RedisWatermarkCache) Get(ctx context.Context, storeID int64) (map[integration.EntityType]int64, bool, error) {
	raw, err := c.client.Get(ctx, c.key(storeID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read watermark cache: %w", err)
	}

	var ids map[integration.EntityType]int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		// A corrupt entry is treated as a miss; the next Set repairs it.
		return nil, false, nil
	}
	return ids, true, nil
}

// Set stores the watermark map for a store
func (c *RedisWatermarkCache) Set(ctx context.Context, storeID int64, ids map[integration.EntityType]int64) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode watermarks: %w", err)
	}
	if err := c.client.Set(ctx, c.key(storeID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write watermark cache: %w", err)
	}
	return nil
}

// Invalidate drops the entry for a store
func (c *RedisWatermarkCache) Invalidate(ctx context.Context, storeID int64) error {
	if err := c.client.Del(ctx, c.key(storeID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate watermark cache: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisWatermarkCache) Close() error {
	return c.client.Close()
}
