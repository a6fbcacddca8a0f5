package cache

import (
	"fmt"

	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/shared"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Factory creates the response cache selected by configuration
type Factory struct {
	cacheConfig           config.CacheConfig
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory and the caches it creates
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// the in-memory cache. Defaults to the configured value.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cacheCfg config.CacheConfig, redisCfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		cacheConfig:           cacheCfg,
		redisConfig:           redisCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: cacheCfg.AllowInMemoryFallback,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Create returns the cache for the configured backend
func (f *Factory) Create() (shared.Cache, error) {
	switch f.cacheConfig.Backend {
	case "none":
		f.logger.Info("Response cache disabled")
		return shared.NopCache{}, nil
	case "redis":
		return f.createRedis()
	default:
		f.logger.Info("Using in-memory response cache")
		return NewInMemoryCache(0), nil
	}
}

func (f *Factory) createRedis() (shared.Cache, error) {
	c, err := NewRedisCache(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, f.cacheConfig.KeyPrefix, f.logger)
	if err == nil {
		f.logger.Info("Using Redis response cache", zap.String("addr", f.redisConfig.Addr()))
		return c, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for response cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory response cache. "+
		"Instances will not share cached listings.",
		zap.Error(err),
	)
	return NewInMemoryCache(0), nil
}
