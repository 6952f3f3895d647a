package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"gameshelf/internal/metrics"
)

// Options configures a Cache.
type Options struct {
	// Name labels the cache in stats and metrics.
	Name string
	// TTL is the age after which an entry reads as absent. Zero disables expiry.
	TTL time.Duration
	// MaxEntries bounds the cache; the oldest insertion is evicted once the
	// bound is exceeded. Zero means unbounded.
	MaxEntries int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Loader produces a value for a cache miss.
type Loader[V any] func(ctx context.Context) (V, error)

type entry[V any] struct {
	key      string
	value    V
	storedAt time.Time
}

// Cache is a process-local TTL cache with insertion-order eviction and
// in-flight load de-duplication. All methods are safe for concurrent use.
type Cache[V any] struct {
	name       string
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu        sync.Mutex
	entries   map[string]*list.Element
	order     *list.List
	hits      int64
	misses    int64
	evictions int64

	group singleflight.Group
}

// New creates a cache from opts.
func New[V any](opts Options) *Cache[V] {
	name := opts.Name
	if name == "" {
		name = "default"
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache[V]{
		name:       name,
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		now:        now,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

// Name returns the cache label.
func (c *Cache[V]) Name() string { return c.name }

// TTL returns the configured entry lifetime.
func (c *Cache[V]) TTL() time.Duration { return c.ttl }

// Get returns the value for key. An entry older than the TTL is evicted and
// reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *Cache[V]) getLocked(key string) (V, bool) {
	var zero V
	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		metrics.CacheMisses.WithLabelValues(c.name).Inc()
		return zero, false
	}
	e := elem.Value.(*entry[V])
	if c.expired(e) {
		c.removeLocked(elem, "expired")
		c.misses++
		metrics.CacheMisses.WithLabelValues(c.name).Inc()
		return zero, false
	}
	c.hits++
	metrics.CacheHits.WithLabelValues(c.name).Inc()
	return e.value, true
}

// Set stores value under key. Overwriting a key moves it to the newest
// insertion position and restarts its TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value)
}

func (c *Cache[V]) setLocked(key string, value V) {
	if elem, ok := c.entries[key]; ok {
		c.order.Remove(elem)
		delete(c.entries, key)
	}
	c.entries[key] = c.order.PushBack(&entry[V]{key: key, value: value, storedAt: c.now()})
	for c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		c.removeLocked(c.order.Front(), "capacity")
	}
	metrics.CacheEntries.WithLabelValues(c.name).Set(float64(c.order.Len()))
}

// Delete removes key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.removeLocked(elem, "cleared")
	}
}

// Clear removes every entry and returns how many were dropped.
func (c *Cache[V]) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.order.Len()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.evictions += int64(n)
	metrics.CacheEvictions.WithLabelValues(c.name, "cleared").Add(float64(n))
	metrics.CacheEntries.WithLabelValues(c.name).Set(0)
	return n
}

// Stored reports whether key is physically present, expired or not.
func (c *Cache[V]) Stored(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Len returns the number of physically stored entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys returns the stored keys from oldest to newest insertion.
func (c *Cache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, c.order.Len())
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*entry[V]).key)
	}
	return keys
}

// Sweep removes every expired entry and returns how many were dropped.
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if c.expired(elem.Value.(*entry[V])) {
			c.removeLocked(elem, "expired")
			removed++
		}
		elem = next
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (c *Cache[V]) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// GetOrLoad returns the cached value for key or runs load once for all
// concurrent callers asking for the same missing key. Errors are returned to
// every waiter and are never cached. The shared load does not inherit the
// caller's cancellation; a caller whose ctx ends stops waiting on its own and
// gets ctx.Err() while the load completes for the others.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, load Loader[V]) (V, bool, error) {
	if value, ok := c.Get(key); ok {
		return value, true, nil
	}
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		c.mu.Lock()
		if elem, ok := c.entries[key]; ok {
			if e := elem.Value.(*entry[V]); !c.expired(e) {
				c.mu.Unlock()
				return e.value, nil
			}
		}
		c.mu.Unlock()

		value, err := load(loadCtx)
		if err != nil {
			return value, err
		}
		c.Set(key, value)
		return value, nil
	})
	select {
	case <-ctx.Done():
		var zero V
		return zero, false, ctx.Err()
	case res := <-ch:
		value, _ := res.Val.(V)
		return value, false, res.Err
	}
}

// Stats reports the cache counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Name:      c.name,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Entries:   c.order.Len(),
	}
}

func (c *Cache[V]) expired(e *entry[V]) bool {
	return c.ttl > 0 && c.now().Sub(e.storedAt) >= c.ttl
}

func (c *Cache[V]) removeLocked(elem *list.Element, reason string) {
	e := elem.Value.(*entry[V])
	c.order.Remove(elem)
	delete(c.entries, e.key)
	c.evictions++
	metrics.CacheEvictions.WithLabelValues(c.name, reason).Inc()
	metrics.CacheEntries.WithLabelValues(c.name).Set(float64(c.order.Len()))
}
