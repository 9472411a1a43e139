// Package cache provides a small in-memory TTL cache used by the store to
// avoid re-reading hot objects (users, sessions) on every request.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the configuration for the cache.
type Config struct {
	// DefaultTTL is applied to entries stored via Set.
	DefaultTTL time.Duration
	// CleanupInterval is how often expired entries are swept. Zero disables
	// the background sweeper.
	CleanupInterval time.Duration
	// MaxItems bounds the cache size; zero means unbounded.
	MaxItems int
	// OnEviction, when set, is called for every evicted or expired entry.
	OnEviction func(key string, value any)
}

type item struct {
	value     any
	expiresAt time.Time
}

func (i *item) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// Cache is a thread-safe in-memory cache with per-entry TTL.
type Cache struct {
	config Config

	data sync.Map
	size atomic.Int64

	done chan struct{}
	once sync.Once
}

// New creates a new cache and starts its cleanup goroutine.
func New(config Config) *Cache {
	c := &Cache{
		config: config,
		done:   make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		go c.cleanupLoop()
	}
	return c
}

// Get returns the value for key, reporting whether it was present and fresh.
func (c *Cache) Get(_ context.Context, key string) (any, bool) {
	raw, ok := c.data.Load(key)
	if !ok {
		return nil, false
	}
	it := raw.(*item)
	if it.expired(time.Now()) {
		c.evict(key, it)
		return nil, false
	}
	return it.value, true
}

// Set stores a value with the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	c.SetWithTTL(ctx, key, value, c.config.DefaultTTL)
}

// SetWithTTL stores a value with custom TTL.
func (c *Cache) SetWithTTL(_ context.Context, key string, value any, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	if _, loaded := c.data.Swap(key, &item{value: value, expiresAt: expiresAt}); !loaded {
		c.size.Add(1)
	}
	if c.config.MaxItems > 0 && int(c.size.Load()) > c.config.MaxItems {
		c.evictOldest()
	}
}

// Delete removes a key.
func (c *Cache) Delete(_ context.Context, key string) {
	if raw, loaded := c.data.LoadAndDelete(key); loaded {
		c.size.Add(-1)
		if c.config.OnEviction != nil {
			c.config.OnEviction(key, raw.(*item).value)
		}
	}
}

// Clear removes all entries.
func (c *Cache) Clear(ctx context.Context) {
	c.data.Range(func(key, _ any) bool {
		c.Delete(ctx, key.(string))
		return true
	})
}

// Size returns the number of entries currently stored.
func (c *Cache) Size() int {
	return int(c.size.Load())
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() error {
	c.once.Do(func() {
		close(c.done)
	})
	return nil
}

func (c *Cache) evict(key string, it *item) {
	if _, loaded := c.data.LoadAndDelete(key); loaded {
		c.size.Add(-1)
		if c.config.OnEviction != nil {
			c.config.OnEviction(key, it.value)
		}
	}
}

// evictOldest drops the entry closest to expiry to bound memory.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldest *item
	c.data.Range(func(key, raw any) bool {
		it := raw.(*item)
		if oldest == nil || (!it.expiresAt.IsZero() && it.expiresAt.Before(oldest.expiresAt)) {
			oldestKey = key.(string)
			oldest = it
		}
		return true
	})
	if oldest != nil {
		c.evict(oldestKey, oldest)
	}
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case now := <-ticker.C:
			c.data.Range(func(key, raw any) bool {
				it := raw.(*item)
				if it.expired(now) {
					c.evict(key.(string), it)
				}
				return true
			})
		}
	}
}
