package openweather

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
	"github.com/couchcryptid/city-weather-etl/internal/observability"
)

// CachedProvider wraps a WeatherProvider with an in-memory LRU cache of
// successful lookups, keyed by strategy and query.
type CachedProvider struct {
	inner   domain.WeatherProvider
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedProvider creates a cache decorator around a provider.
func NewCachedProvider(inner domain.WeatherProvider, maxEntries int, metrics *observability.Metrics) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedProvider) CurrentByName(ctx context.Context, name string) (domain.CurrentConditions, error) {
	key := "name:" + name
	return c.lookup(key, domain.LookupByName, func() (domain.CurrentConditions, error) {
		return c.inner.CurrentByName(ctx, name)
	})
}

func (c *CachedProvider) CurrentByCoordinates(ctx context.Context, lat, lon float64) (domain.CurrentConditions, error) {
	key := fmt.Sprintf("coord:%.4f,%.4f", lat, lon)
	return c.lookup(key, domain.LookupByCoordinates, func() (domain.CurrentConditions, error) {
		return c.inner.CurrentByCoordinates(ctx, lat, lon)
	})
}

func (c *CachedProvider) lookup(key string, strategy domain.LookupStrategy, fetch func() (domain.CurrentConditions, error)) (domain.CurrentConditions, error) {
	if cond, ok := c.cache.get(key); ok {
		c.metrics.WeatherCache.WithLabelValues(string(strategy), "hit").Inc()
		return cond, nil
	}
	c.metrics.WeatherCache.WithLabelValues(string(strategy), "miss").Inc()

	cond, err := fetch()
	if err != nil {
		return cond, err
	}
	c.cache.put(key, cond)
	return cond, nil
}

// lruCache is a simple thread-safe LRU cache of current conditions.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.CurrentConditions
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.CurrentConditions, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.CurrentConditions{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.CurrentConditions) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlink(c.tail)
}
