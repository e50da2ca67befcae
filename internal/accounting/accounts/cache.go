package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionKey = "accounts:cache:version"
	// InvalidationChannel carries chart-of-accounts change notifications.
	InvalidationChannel = "coa.bump"
)

// Entry is a cached resolution result. Missing marks a code known to be absent,
// so report probes over candidate codes do not hit the database each time.
type Entry struct {
	Account Account `json:"account"`
	Missing bool    `json:"missing"`
}

// Cache stores resolved accounts until explicitly invalidated.
type Cache interface {
	Get(ctx context.Context, code string) (Entry, bool, error)
	Put(ctx context.Context, code string, entry Entry) error
	Invalidate(ctx context.Context) error
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryCache constructs an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Entry)}
}

func (c *MemoryCache) Get(_ context.Context, code string) (Entry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[code]
	return entry, ok, nil
}

func (c *MemoryCache) Put(_ context.Context, code string, entry Entry) error {
	c.mu.Lock()
	c.entries[code] = entry
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.mu.Unlock()
	return nil
}

// Len reports the number of cached codes.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisCache shares resolved accounts between processes. Keys embed a global
// version; Invalidate bumps the version and publishes it on InvalidationChannel.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache instantiates the redis backed cache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, cacheVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (c *RedisCache) key(ctx context.Context, code string) (string, error) {
	ver, err := c.version(ctx)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{"accounts", "code", code, strconv.FormatInt(ver, 10)}, ":"), nil
}

func (c *RedisCache) Get(ctx context.Context, code string) (Entry, bool, error) {
	key, err := c.key(ctx, code)
	if err != nil {
		return Entry{}, false, err
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var entry Entry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

func (c *RedisCache) Put(ctx context.Context, code string, entry Entry) error {
	key, err := c.key(ctx, code)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, InvalidationChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation subscribes to InvalidationChannel and clears local
// whenever another process changes the chart of accounts. The subscription
// ends with ctx.
func ListenForInvalidation(ctx context.Context, client *redis.Client, local Cache) error {
	if client == nil || local == nil {
		return nil
	}
	pubsub := client.Subscribe(ctx, InvalidationChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				_ = local.Invalidate(ctx)
			}
		}
	}()
	return nil
}
