package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultScanBatchSize = 100

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisCache implements shared.Cache on Redis. Every key is namespaced with
// a prefix so several front-ends can share one Redis database.
type RedisCache struct {
	client     redis.UniversalClient
	ownsClient bool
	prefix     string
	logger     *zap.Logger
}

// NewRedisCache connects to Redis and verifies the connection with a ping
func NewRedisCache(cfg RedisConfig, prefix string, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c := NewRedisCacheWithClient(client, prefix, logger)
	c.ownsClient = true
	return c, nil
}

// NewRedisCacheWithClient wraps an existing client. The caller keeps
// ownership of the client.
func NewRedisCacheWithClient(client redis.UniversalClient, prefix string, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (c *RedisCache) key(key string) string {
	return c.prefix + key
}

// Get returns the stored value or shared.ErrCacheMiss
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.ErrCacheMiss
	}
	if err != nil {
		c.logger.Warn("Failed to read from cache", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to get %s from cache: %w", key, err)
	}
	return data, nil
}

// Set stores value under key. A zero ttl never expires.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		c.logger.Warn("Failed to write to cache", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to set %s in cache: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key under prefix using SCAN, never KEYS
func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	var (
		cursor  uint64
		deleted int64
	)
	pattern := c.key(prefix) + "*"

	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, defaultScanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return fmt.Errorf("failed to delete cache keys: %w", err)
			}
			deleted += n
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	c.logger.Debug("Invalidated cache prefix",
		zap.String("prefix", prefix),
		zap.Int64("deleted_count", deleted))
	return nil
}

// Close closes the Redis client when this cache created it
func (c *RedisCache) Close() error {
	if !c.ownsClient {
		return nil
	}
	return c.client.Close()
}

var _ shared.Cache = (*RedisCache)(nil)
