package cache

import (
	"container/list"
	"iter"
	"log/slog"
	"sync"
	"time"
)

// Cache is a concurrency-safe in-memory map whose entries expire after a
// fixed TTL and whose size is bounded.
//
// The design is explicit and "mechanical": a map gives O(1) key lookup and
// a doubly-linked list keeps insertion order. Cleanup only ever looks at the
// front of the list, the oldest surviving key.
//
// Overwriting a key replaces its entry in place: the key keeps its original
// slot in the list. Eviction order is therefore insertion order, not
// recency.
type Cache[K comparable, V any] struct {
	mu sync.RWMutex

	ttl       time.Duration
	maxSize   int
	now       func() time.Time
	retention Retention

	items map[K]*list.Element
	order *list.List // Front = oldest insertion, Back = newest

	logger  *slog.Logger
	metrics Metrics
	onEvict func(key K, value V, reason EvictReason)
}

// Item is a copied key/value pair returned by Snapshot.
type Item[K comparable, V any] struct {
	Key       K
	Value     V
	ExpiresAt time.Time
}

// New constructs a cache whose entries live for ttl.
//
// It fails with ErrInvalidTTL when ttl <= 0 and with ErrInvalidMaxSize when
// the configured bound is negative. The configuration cannot change later.
func New[K comparable, V any](ttl time.Duration, opts ...Option) (*Cache[K, V], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	if cfg.maxSize < 0 {
		return nil, ErrInvalidMaxSize
	}

	c := &Cache[K, V]{
		ttl:       ttl,
		maxSize:   cfg.maxSize,
		now:       cfg.now,
		retention: cfg.retention,
		items:     make(map[K]*list.Element),
		order:     list.New(),
		logger:    cfg.logger,
		metrics:   cfg.metrics,
	}

	c.logger.Debug("cache created",
		slog.Duration("ttl", ttl),
		slog.Int("max_size", cfg.maxSize),
		slog.String("retention", cfg.retention.String()),
	)

	return c, nil
}

// NewDefault returns a cache with DefaultTTL and DefaultMaxSize.
func NewDefault[K comparable, V any]() *Cache[K, V] {
	c, _ := New[K, V](DefaultTTL)
	return c
}

// TTL returns the time to live applied to every entry.
func (c *Cache[K, V]) TTL() time.Duration { return c.ttl }

// MaxSize returns the size bound; zero means unbounded.
func (c *Cache[K, V]) MaxSize() int { return c.maxSize }

// SetEvictCallback registers fn for every entry dropped by cleanup.
// Explicit Remove and Clear do not trigger it.
//
// fn runs with the write lock held and must not call back into the cache.
// value is the zero value when the entry's value was already reclaimed.
func (c *Cache[K, V]) SetEvictCallback(fn func(key K, value V, reason EvictReason)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Get returns the value stored under key.
//
// A missing key, an expired entry and a reclaimed value all look the same:
// the zero value and false. Get never mutates; an expired entry stays in
// place until the next mutation sweeps it.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, ok := c.lookup(key)
	if ok {
		c.metrics.Hit()
	} else {
		c.metrics.Miss()
	}
	return v, ok
}

func (c *Cache[K, V]) lookup(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	return el.Value.(*entry[K, V]).live(c.now())
}

// Put stores value under key with a fresh expiration and returns the value
// it replaced, if that value is still readable.
//
// An existing key is overwritten where it stands; it does not move to the
// back of the eviction order.
func (c *Cache[K, V]) Put(key K, value V) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.cleanupLocked(now, 1)

	prev, existed := c.storeLocked(key, value, now)
	c.metrics.Size(c.order.Len())
	if !existed {
		var zero V
		return zero, false
	}
	return prev.read()
}

// PutIfAbsent stores value only when key has no live entry.
//
// It returns the winning value: the existing one if a live, unexpired
// entry was found, otherwise the value just installed. Among concurrent
// callers for the same key exactly one installs its value and all of them
// return it.
func (c *Cache[K, V]) PutIfAbsent(key K, value V) V {
	// Optimistic probe under the shared lock.
	if existing, ok := c.lookup(key); ok {
		return existing
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	// Re-check: another writer may have won between the two locks.
	if el, ok := c.items[key]; ok {
		if existing, ok := el.Value.(*entry[K, V]).live(now); ok {
			return existing
		}
	}

	c.cleanupLocked(now, 1)
	c.storeLocked(key, value, now)
	c.metrics.Size(c.order.Len())
	return value
}

// Remove deletes key and returns its value if the entry was still live.
// An expired or reclaimed entry is dropped all the same, but reported as
// absent.
func (c *Cache[K, V]) Remove(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.cleanupLocked(now, -1)

	el, ok := c.items[key]
	if !ok {
		c.metrics.Size(c.order.Len())
		var zero V
		return zero, false
	}

	e := el.Value.(*entry[K, V])
	c.deleteLocked(el, e)
	c.metrics.Size(c.order.Len())
	return e.live(now)
}

// Clear drops every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*list.Element)
	c.order.Init()
	c.metrics.Size(0)
}

// ContainsKey reports whether key is physically present.
//
// It does not look at expiry: an expired entry that has not been swept yet
// still counts. Use Get for a liveness check.
func (c *Cache[K, V]) ContainsKey(key K) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.items[key]
	return ok
}

// Len returns the number of stored entries.
//
// Note: Len includes entries that have expired but haven't been swept yet.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

// IsEmpty reports whether no entries are stored, expired ones included.
func (c *Cache[K, V]) IsEmpty() bool {
	return c.Len() == 0
}

// PutAll calls Put for every pair of src, in src's order. Each insertion
// runs its own cleanup and respects the bound.
//
//	c.PutAll(maps.All(m))
func (c *Cache[K, V]) PutAll(src iter.Seq2[K, V]) {
	if src == nil {
		return
	}
	for k, v := range src {
		c.Put(k, v)
	}
}

// Snapshot copies the live entries in insertion order.
//
// The result is detached from the cache: later writes, expirations and
// evictions do not show up in it.
func (c *Cache[K, V]) Snapshot() []Item[K, V] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	out := make([]Item[K, V], 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry[K, V])
		v, ok := e.live(now)
		if !ok {
			continue
		}
		out = append(out, Item[K, V]{Key: e.key, Value: v, ExpiresAt: e.expiresAt})
	}
	return out
}

// Entries is not supported: a live view cannot follow lazy expiration.
// It always returns ErrUnsupported.
func (c *Cache[K, V]) Entries() ([]Item[K, V], error) {
	return nil, ErrUnsupported
}

// Keys is not supported. It always returns ErrUnsupported.
func (c *Cache[K, V]) Keys() ([]K, error) {
	return nil, ErrUnsupported
}

// Values is not supported. It always returns ErrUnsupported.
func (c *Cache[K, V]) Values() ([]V, error) {
	return nil, ErrUnsupported
}

// ContainsValue scans Values for a match under equal and therefore fails
// with ErrUnsupported as well.
func (c *Cache[K, V]) ContainsValue(value V, equal func(a, b V) bool) (bool, error) {
	values, err := c.Values()
	if err != nil {
		return false, err
	}
	for _, v := range values {
		if equal(v, value) {
			return true, nil
		}
	}
	return false, nil
}

// cleanupLocked sweeps the front of the insertion order.
//
// The oldest entry is dropped while it has expired, or while the cache is
// bounded and the pending change (sizeDelta) would reach the bound. It
// stops at the first entry that satisfies neither.
func (c *Cache[K, V]) cleanupLocked(now time.Time, sizeDelta int) {
	removed := 0

sweep:
	for el := c.order.Front(); el != nil; el = c.order.Front() {
		e := el.Value.(*entry[K, V])

		var reason EvictReason
		switch {
		case e.hasExpired(now):
			reason = EvictExpired
		case c.maxSize > 0 && c.order.Len()+sizeDelta >= c.maxSize:
			reason = EvictCapacity
		default:
			break sweep
		}

		c.deleteLocked(el, e)
		c.metrics.Evicted(reason)
		if c.onEvict != nil {
			v, _ := e.read()
			c.onEvict(e.key, v, reason)
		}
		removed++
	}

	if removed > 0 {
		c.logger.Debug("cache sweep",
			slog.Int("removed", removed),
			slog.Int("size", c.order.Len()),
		)
	}
}

// storeLocked installs a new entry for key. An existing key keeps its
// list position; the replaced entry is returned.
func (c *Cache[K, V]) storeLocked(key K, value V, now time.Time) (*entry[K, V], bool) {
	e := newEntry(key, value, now.Add(c.ttl), c.retention)

	if el, ok := c.items[key]; ok {
		prev := el.Value.(*entry[K, V])
		el.Value = e
		return prev, true
	}

	c.items[key] = c.order.PushBack(e)
	return nil, false
}

func (c *Cache[K, V]) deleteLocked(el *list.Element, e *entry[K, V]) {
	delete(c.items, e.key)
	c.order.Remove(el)
}
