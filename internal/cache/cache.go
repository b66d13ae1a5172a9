package cache

import (
	"sync"
	"time"
)

// Entry is one cached value with its insertion time and TTL.
type Entry struct {
	Value      interface{}
	InsertedAt time.Time
	TTL        time.Duration
}

func (e Entry) Fresh(now time.Time) bool {
	return now.Sub(e.InsertedAt) < e.TTL
}

// Cache is a process-wide TTL cache keyed by deterministic strings.
// Writes are last-writer-wins; readers may observe a stale value only
// within its TTL window. Safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	defaultTTL time.Duration
	stop       chan struct{}
	stopOnce   sync.Once

	// now is swappable for tests.
	now func() time.Time
}

// New creates a cache with the given default TTL and starts a background
// sweep that evicts expired entries every 5 minutes.
func New(defaultTTL time.Duration) *Cache {
	c := &Cache{
		entries:    make(map[string]Entry),
		defaultTTL: defaultTTL,
		stop:       make(chan struct{}),
		now:        time.Now,
	}
	go c.sweepLoop()
	return c
}

// Get returns the value for key and whether it is fresh. An expired entry
// is treated as a miss and removed.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !entry.Fresh(c.now()) {
		c.mu.Lock()
		// Re-check under the write lock; another writer may have refreshed it.
		if cur, still := c.entries[key]; still && !cur.Fresh(c.now()) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return entry.Value, true
}

// Set stores a value under the cache's default TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores a value with an entry-specific TTL.
func (c *Cache) SetTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = Entry{Value: value, InsertedAt: c.now(), TTL: ttl}
	c.mu.Unlock()
}

// GetOrFetch returns the cached value for key, or runs loader and caches
// its result under ttl. A loader error is returned without caching, so the
// next caller retries (no negative caching).
func (c *Cache) GetOrFetch(key string, ttl time.Duration, loader func() (interface{}, error)) (interface{}, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := loader()
	if err != nil {
		return nil, err
	}
	c.SetTTL(key, v, ttl)
	return v, nil
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.mu.Unlock()
}

// Len counts fresh entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, e := range c.entries {
		if e.Fresh(c.now()) {
			n++
		}
	}
	return n
}

// Close stops the background sweep goroutine.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) sweep() {
	now := c.now()
	c.mu.Lock()
	for k, e := range c.entries {
		if !e.Fresh(now) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}
