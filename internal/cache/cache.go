// Package cache provides the bounded lookup cache shared by the upstream
// clients. Entries are keyed by the exact call arguments so repeated lookups
// within a process (and within one analysis) hit the network once.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Cache is a bounded, concurrency-safe cache from string keys to V.
// A nil *Cache is valid and never stores anything.
type Cache[V any] struct {
	name   string
	store  *ristretto.Cache[string, V]
	hits   atomic.Int64
	misses atomic.Int64
}

// Stats contains cache performance counters.
type Stats struct {
	Name   string `json:"name"`
	Hits   int64  `json:"hits"`
	Misses int64  `json:"misses"`
}

// New creates a cache holding at most maxEntries entries. A non-positive
// maxEntries returns a nil cache, which disables caching.
func New[V any](name string, maxEntries int64) (*Cache[V], error) {
	if maxEntries <= 0 {
		return nil, nil
	}
	store, err := ristretto.NewCache(&ristretto.Config[string, V]{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "cache: create %s", name)
	}
	return &Cache[V]{name: name, store: store}, nil
}

// Key joins the call arguments into a cache key.
func Key(parts ...any) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprint(p)
	}
	return strings.Join(s, "|")
}

// Get returns the cached value for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	v, ok := c.store.Get(key)
	if !ok {
		c.misses.Add(1)
		return zero, false
	}
	c.hits.Add(1)
	return v, true
}

// Set stores value under key. The write is visible to Get once Set returns.
func (c *Cache[V]) Set(key string, value V) {
	if c == nil {
		return
	}
	if !c.store.Set(key, value, 1) {
		zap.L().Debug("cache: set dropped", zap.String("cache", c.name), zap.String("key", key))
		return
	}
	c.store.Wait()
}

// GetOrLoad returns the cached value for key, or calls load and caches its
// result. Errors are never cached.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		zap.L().Debug("cache hit", zap.String("cache", c.name), zap.String("key", key))
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

// Stats returns a snapshot of the hit and miss counters.
func (c *Cache[V]) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{Name: c.name, Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Close releases the cache's background goroutines.
func (c *Cache[V]) Close() {
	if c == nil {
		return
	}
	c.store.Close()
}
