package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tcdata/railnet/internal/config"
	"github.com/tcdata/railnet/internal/routing"
)

// NewClient connects to Redis and pings the server
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	}

	// Hosted Redis requires TLS
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// SuggestionCache stores path suggestions in Redis. A cache without client
// never hits and drops writes.
type SuggestionCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ routing.SuggestionCache = (*SuggestionCache)(nil)

// NewSuggestionCache creates a cache. client may be nil.
func NewSuggestionCache(client *redis.Client, ttl time.Duration) *SuggestionCache {
	return &SuggestionCache{client: client, ttl: ttl}
}

// Enabled reports whether a Redis client is configured
func (c *SuggestionCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get retrieves a cached suggestion
func (c *SuggestionCache) Get(ctx context.Context, key string) ([]string, bool, error) {
	if !c.Enabled() {
		return nil, false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var route []string
	if err := json.Unmarshal(data, &route); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached suggestion: %w", err)
	}
	return route, true, nil
}

// Set caches a suggestion
func (c *SuggestionCache) Set(ctx context.Context, key string, route []string) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("failed to marshal suggestion: %w", err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// LockKey generates a mutex lock key
func LockKey(name string) string {
	return fmt.Sprintf("lock:%s", name)
}

// AcquireLock attempts to acquire a distributed lock. Without a client the
// lock is always granted.
func (c *SuggestionCache) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if !c.Enabled() {
		return true, nil
	}
	return c.client.SetNX(ctx, LockKey(name), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *SuggestionCache) ReleaseLock(ctx context.Context, name string) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Del(ctx, LockKey(name)).Err()
}

// HealthCheck pings the Redis server
func (c *SuggestionCache) HealthCheck(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis ping failed: %w", err)
	}
	return nil
}
