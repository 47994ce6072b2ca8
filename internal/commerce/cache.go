package commerce

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// InventoryCache holds recently observed stock levels so repeated reads for
// the same variant within the TTL skip a backend round trip. A miss is never
// an error; callers fall through to the backend.
type InventoryCache interface {
	Get(ctx context.Context, variantID string) (int64, bool)
	Set(ctx context.Context, variantID string, qty int64, ttl time.Duration)
	Invalidate(ctx context.Context, variantID string)
}

type memoryEntry struct {
	qty       int64
	expiresAt time.Time
}

// MemoryInventoryCache is a process-local TTL cache. Suitable for a single
// replica; use RedisInventoryCache when running more than one.
type MemoryInventoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryInventoryCache() *MemoryInventoryCache {
	return &MemoryInventoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryInventoryCache) Get(_ context.Context, variantID string) (int64, bool) {
	c.mu.RLock()
	entry, ok := c.entries[variantID]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return 0, false
	}
	return entry.qty, true
}

func (c *MemoryInventoryCache) Set(_ context.Context, variantID string, qty int64, ttl time.Duration) {
	c.mu.Lock()
	c.entries[variantID] = memoryEntry{qty: qty, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

func (c *MemoryInventoryCache) Invalidate(_ context.Context, variantID string) {
	c.mu.Lock()
	delete(c.entries, variantID)
	c.mu.Unlock()
}

// RedisInventoryCache shares stock observations across replicas. Redis
// failures degrade to cache misses.
type RedisInventoryCache struct {
	client *redis.Client
	prefix string
}

func NewRedisInventoryCache(client *redis.Client) *RedisInventoryCache {
	return &RedisInventoryCache{client: client, prefix: "inventory:variant:"}
}

func (c *RedisInventoryCache) key(variantID string) string {
	return c.prefix + variantID
}

func (c *RedisInventoryCache) Get(ctx context.Context, variantID string) (int64, bool) {
	val, err := c.client.Get(ctx, c.key(variantID)).Result()
	if err != nil {
		return 0, false
	}
	qty, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return qty, true
}

func (c *RedisInventoryCache) Set(ctx context.Context, variantID string, qty int64, ttl time.Duration) {
	c.client.Set(ctx, c.key(variantID), fmt.Sprintf("%d", qty), ttl)
}

func (c *RedisInventoryCache) Invalidate(ctx context.Context, variantID string) {
	c.client.Del(ctx, c.key(variantID))
}
