// Package cachesvc implements core.Cache on Redis, or in process memory when Redis is not configured.
package cachesvc

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/classbook/classbook/core"
)

type memItem struct {
	data    []byte
	expires time.Time // zero: never
}

type memoryCache struct {
	mu    sync.RWMutex
	items map[string]memItem
	now   func() time.Time
}

var _ core.Cache = (*memoryCache)(nil)

// NewMemoryCache stores JSON copies of the values, so cached data cannot be mutated through the caller's references.
func NewMemoryCache() core.Cache {
	return &memoryCache{
		items: make(map[string]memItem),
		now:   time.Now,
	}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if !item.expires.IsZero() && !c.now().Before(item.expires) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return false, nil
	}
	if err := json.Unmarshal(item.data, dest); err != nil {
		return false, errors.Wrap(err, "decoding cached value")
	}
	return true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "encoding value to cache")
	}
	item := memItem{data: data}
	if ttl > 0 {
		item.expires = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.items[key] = item
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
	return nil
}
