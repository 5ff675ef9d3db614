package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// defaultOperationTimeout is the timeout for individual Redis operations
	defaultOperationTimeout = 5 * time.Second

	defaultLeaderboardTTL = 60 * time.Second
	defaultCatalogTTL     = 5 * time.Minute

	leaderboardPrefix = "leaderboard:"
	catalogKey        = "courses:catalog"
)

var (
	ErrCacheMiss     = errors.New("cache: key not found")
	ErrCacheDisabled = errors.New("cache: disabled")
)

type Cache struct {
	client         *redis.Client
	enabled        bool
	leaderboardTTL time.Duration
	catalogTTL     time.Duration
}

// NewCache connects to Redis when enable is true. A disabled cache accepts
// writes as no-ops and reports ErrCacheDisabled on reads.
func NewCache(addr, password string, enable bool) (*Cache, error) {
	if !enable {
		return &Cache{enabled: false, leaderboardTTL: defaultLeaderboardTTL, catalogTTL: defaultCatalogTTL}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{
		client:         client,
		enabled:        true,
		leaderboardTTL: defaultLeaderboardTTL,
		catalogTTL:     defaultCatalogTTL,
	}, nil
}

// SetTTLs overrides the expirations used by the leaderboard and catalog
// helpers. Non-positive values keep the current setting.
func (c *Cache) SetTTLs(leaderboard, catalog time.Duration) {
	if leaderboard > 0 {
		c.leaderboardTTL = leaderboard
	}
	if catalog > 0 {
		c.catalogTTL = catalog
	}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.enabled
}

// operationContext creates a context with timeout for Redis operations
func (c *Cache) operationContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), defaultOperationTimeout)
}

func (c *Cache) Set(key string, value interface{}, expiration time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, jsonData, expiration).Err()
}

func (c *Cache) Get(key string, dest interface{}) error {
	if !c.Enabled() {
		return ErrCacheDisabled
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	} else if err != nil {
		return err
	}
	return json.Unmarshal(val, dest)
}

func (c *Cache) Delete(key string) error {
	if !c.Enabled() {
		return nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	return c.client.Del(ctx, key).Err()
}

func (c *Cache) DeletePattern(pattern string) error {
	if !c.Enabled() {
		return nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// SetIfAbsent stores value under key only when the key does not exist and
// reports whether it was stored.
func (c *Cache) SetIfAbsent(key string, value interface{}, expiration time.Duration) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	jsonData, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	return c.client.SetNX(ctx, key, jsonData, expiration).Result()
}

func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// Flush removes every key written by the service helpers.
func (c *Cache) Flush() error {
	if err := c.InvalidateLeaderboard(); err != nil {
		return err
	}
	if err := c.InvalidateCatalog(); err != nil {
		return err
	}
	return c.DeletePattern(userSyncPrefix + "*")
}

func LeaderboardKey(limit int) string {
	return fmt.Sprintf("%s%d", leaderboardPrefix, limit)
}

func (c *Cache) CacheLeaderboard(limit int, entries interface{}) error {
	if !c.Enabled() {
		return nil
	}
	return c.Set(LeaderboardKey(limit), entries, c.leaderboardTTL)
}

func (c *Cache) GetCachedLeaderboard(limit int, dest interface{}) error {
	return c.Get(LeaderboardKey(limit), dest)
}

func (c *Cache) InvalidateLeaderboard() error {
	return c.DeletePattern(leaderboardPrefix + "*")
}

func (c *Cache) CacheCatalog(courses interface{}) error {
	if !c.Enabled() {
		return nil
	}
	return c.Set(catalogKey, courses, c.catalogTTL)
}

func (c *Cache) GetCachedCatalog(dest interface{}) error {
	return c.Get(catalogKey, dest)
}

func (c *Cache) InvalidateCatalog() error {
	return c.Delete(catalogKey)
}

const (
	userSyncPrefix = "users:synced:"
	userSyncTTL    = 10 * time.Minute
)

// MarkUserSynced records that the profile of userID was stored recently and
// reports whether the caller is the first to do so within the window.
func (c *Cache) MarkUserSynced(userID uint) (bool, error) {
	if !c.Enabled() {
		return true, nil
	}
	return c.SetIfAbsent(fmt.Sprintf("%s%d", userSyncPrefix, userID), time.Now().Unix(), userSyncTTL)
}
