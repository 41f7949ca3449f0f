package cache

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is a process-local Cache. Values are stored as JSON so hits
// decode the same way as RedisCache hits.
type MemoryCache struct {
	c *gocache.Cache
}

func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &MemoryCache{c: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (m *MemoryCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	x, found := m.c.Get(key)
	if !found {
		return false, nil
	}
	b, ok := x.([]byte)
	if !ok || json.Unmarshal(b, dst) != nil {
		m.c.Delete(key)
		return false, nil
	}
	return true, nil
}

func (m *MemoryCache) SetJSON(_ context.Context, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.c.Set(key, b, ttl)
	return nil
}

func (m *MemoryCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.c.Delete(k)
	}
	return nil
}

func (m *MemoryCache) Len() int { return m.c.ItemCount() }
