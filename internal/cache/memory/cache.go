// Package memory provides an in-memory session cache.
// This is suitable for single-node deployments where Redis is not available.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prn-tf/academia/internal/repository"
)

// DefaultCleanupInterval is how often expired items are swept.
const DefaultCleanupInterval = 60 * time.Second

// Cache implements repository.Cache using in-memory storage.
// This is NOT suitable for distributed deployments.
type Cache struct {
	mu      sync.RWMutex
	items   map[string]*cacheItem
	stopCh  chan struct{}
	stopped bool
}

type cacheItem struct {
	value     []byte
	expiresAt time.Time
	noExpiry  bool
}

func (i *cacheItem) isExpired() bool {
	if i.noExpiry {
		return false
	}
	return time.Now().After(i.expiresAt)
}

func newItem(value []byte, ttl time.Duration) *cacheItem {
	item := &cacheItem{value: cloneBytes(value)}
	if ttl > 0 {
		item.expiresAt = time.Now().Add(ttl)
	} else {
		item.noExpiry = true
	}
	return item
}

// NewCache creates a new in-memory cache swept every DefaultCleanupInterval.
func NewCache() *Cache {
	return NewCacheWithInterval(DefaultCleanupInterval)
}

// NewCacheWithInterval creates a new in-memory cache with a custom sweep interval.
func NewCacheWithInterval(interval time.Duration) *Cache {
	c := &Cache{
		items:  make(map[string]*cacheItem),
		stopCh: make(chan struct{}),
	}

	go c.cleanupLoop(interval)

	return c
}

func (c *Cache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *Cache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, item := range c.items {
		if item.isExpired() {
			delete(c.items, key)
		}
	}
}

// Stop stops the cleanup goroutine.
func (c *Cache) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.stopped {
		close(c.stopCh)
		c.stopped = true
	}
}

// Get retrieves a value by key.
func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || item.isExpired() {
		return nil, repository.ErrCacheMiss
	}

	return cloneBytes(item.value), nil
}

// Set stores a value with an optional TTL.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = newItem(value, ttl)
	return nil
}

// Delete removes a value by key.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}

// Keys returns the live keys starting with prefix, sorted.
func (c *Cache) Keys(_ context.Context, prefix string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var keys []string
	for key, item := range c.items {
		if strings.HasPrefix(key, prefix) && !item.isExpired() {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	return keys, nil
}

// DeleteMulti removes multiple values.
func (c *Cache) DeleteMulti(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		delete(c.items, key)
	}

	return nil
}

// Len returns the number of stored items, expired ones included until swept.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Ensure Cache implements repository.Cache.
var _ repository.Cache = (*Cache)(nil)
