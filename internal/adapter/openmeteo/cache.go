package openmeteo

import (
	"container/list"
	"context"
	"strings"
	"sync"

	"github.com/couchcryptid/pm25-forecast-service/internal/domain"
	"github.com/couchcryptid/pm25-forecast-service/internal/observability"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache keyed by the
// normalized city name. Errors, including ErrCityNotFound, are never cached.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

// Geocode implements domain.Geocoder.
func (c *CachedGeocoder) Geocode(ctx context.Context, city string) (domain.Location, error) {
	key := cacheKey(city)
	if loc, ok := c.cache.get(key); ok {
		c.record("hit")
		return loc, nil
	}
	c.record("miss")

	loc, err := c.inner.Geocode(ctx, city)
	if err != nil {
		return loc, err
	}
	c.cache.put(key, loc)
	return loc, nil
}

// Len returns the number of cached cities.
func (c *CachedGeocoder) Len() int { return c.cache.len() }

func (c *CachedGeocoder) record(result string) {
	if c.metrics != nil {
		c.metrics.GeocodeCache.WithLabelValues(result).Inc()
	}
}

func cacheKey(city string) string {
	return strings.Join(strings.Fields(strings.ToLower(city)), " ")
}

// lruCache is a thread-safe LRU of resolved locations. The front of order is
// the most recently used entry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	order      *list.List
	entries    map[string]*list.Element
}

type cacheEntry struct {
	key string
	loc domain.Location
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string) (domain.Location, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return domain.Location{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).loc, true
}

func (c *lruCache) put(key string, loc domain.Location) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).loc = loc
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, loc: loc})
	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
