package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-finance/tally/internal/domain"
)

// New builds the cache named by cfg.Type: "memory" for a single process,
// "redis" when several API replicas share sessions and share limits.
// EnableTwoPhase puts an in-process LRU in front of Redis.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory":
		return NewLRUCache(cfg.LocalMaxSize), nil

	case "redis":
		shared, err := NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis cache: %w", err)
		}
		if !cfg.EnableTwoPhase {
			return shared, nil
		}
		return NewLayered(NewLRUCache(cfg.LocalMaxSize), shared, cfg.LocalTTL), nil

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// LayeredCache reads through a per-process near tier to a shared tier.
// Writes go to both. A replica may serve a stale session or scenario for
// up to nearTTL after another replica changed it.
type LayeredCache struct {
	near    *LRUCache
	shared  domain.Cache
	nearTTL time.Duration
}

// NewLayered puts near in front of shared. nearTTL caps how long an entry
// lives in the near tier; zero means five minutes.
func NewLayered(near *LRUCache, shared domain.Cache, nearTTL time.Duration) *LayeredCache {
	if nearTTL <= 0 {
		nearTTL = 5 * time.Minute
	}
	return &LayeredCache{near: near, shared: shared, nearTTL: nearTTL}
}

// Get copies a shared-tier hit into the near tier.
func (c *LayeredCache) Get(ctx context.Context, namespace string, key string) ([]byte, error) {
	if val, err := c.near.Get(ctx, namespace, key); err != nil || val != nil {
		return val, err
	}

	val, err := c.shared.Get(ctx, namespace, key)
	if err != nil || val == nil {
		return nil, err
	}
	_ = c.near.Set(ctx, namespace, key, val, c.nearTTL)
	return val, nil
}

// Set writes the near tier for min(ttl, nearTTL) and the shared tier for ttl.
func (c *LayeredCache) Set(ctx context.Context, namespace string, key string, value []byte, ttl time.Duration) error {
	if err := c.near.Set(ctx, namespace, key, value, min(ttl, c.nearTTL)); err != nil {
		return err
	}
	return c.shared.Set(ctx, namespace, key, value, ttl)
}

// Delete removes key from both tiers.
func (c *LayeredCache) Delete(ctx context.Context, namespace string, key string) error {
	if err := c.near.Delete(ctx, namespace, key); err != nil {
		return err
	}
	return c.shared.Delete(ctx, namespace, key)
}

// IncrementCounter counts in the shared tier only, so a share limit holds
// across replicas.
func (c *LayeredCache) IncrementCounter(ctx context.Context, namespace string, key string, window time.Duration) (int64, error) {
	return c.shared.IncrementCounter(ctx, namespace, key, window)
}

// Ping reports the first failing tier.
func (c *LayeredCache) Ping(ctx context.Context) error {
	if err := c.near.Ping(ctx); err != nil {
		return fmt.Errorf("near tier: %w", err)
	}
	if err := c.shared.Ping(ctx); err != nil {
		return fmt.Errorf("shared tier: %w", err)
	}
	return nil
}

// Close closes both tiers.
func (c *LayeredCache) Close() error {
	_ = c.near.Close()
	return c.shared.Close()
}

// Stats reports the near tier's size and capacity.
func (c *LayeredCache) Stats() (size int, capacity int) {
	return c.near.Stats()
}
