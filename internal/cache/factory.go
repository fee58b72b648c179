package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Type identifies a cache backend.
type Type string

const (
	// TypeMemory is the in-process cache backend.
	TypeMemory Type = "memory"

	// TypeRedis is the Redis cache backend.
	TypeRedis Type = "redis"
)

// Config holds cache factory configuration.
type Config struct {
	Type            Type
	RedisURL        string
	Prefix          string
	DefaultTTL      time.Duration
	MaxSize         int
	CleanupInterval time.Duration
}

// New creates a cache backend based on the configuration.
// If Redis is requested but unavailable, it logs a warning and falls
// back to the memory backend so the console keeps working.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Cache, error) {
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Minute
	}

	switch cfg.Type {
	case TypeRedis:
		c, err := NewRedisCache(ctx, RedisCacheOptions{
			URL:        cfg.RedisURL,
			Prefix:     cfg.Prefix,
			DefaultTTL: cfg.DefaultTTL,
		})
		if err != nil {
			logger.Warn("cache backend unavailable, falling back to memory",
				"backend", "redis", "error", err)
			return newMemory(cfg), nil
		}
		logger.Info("cache initialized", "backend", "redis", "prefix", cfg.Prefix)
		return c, nil

	case TypeMemory, "":
		logger.Info("cache initialized", "backend", "memory")
		return newMemory(cfg), nil

	default:
		return nil, fmt.Errorf("unknown cache type: %q", cfg.Type)
	}
}

func newMemory(cfg Config) *MemoryCache {
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: cfg.CleanupInterval,
	})
}
