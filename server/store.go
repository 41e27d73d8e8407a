package server

import (
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// DefaultCacheName is the cache addressed by requests with an empty cache
// name
const DefaultCacheName = "default"

// --------------------------------------------------------------------------
// Entry
// --------------------------------------------------------------------------

// entry is a stored value with its expiration bookkeeping. The value and
// the creation metadata are immutable; only the last access time is
// updated in place.
type entry struct {
	value      []byte
	created    time.Time
	lifespan   time.Duration // 0 = immortal
	maxIdle    time.Duration // 0 = no idle limit
	lastAccess atomic.Int64  // unix nanos
}

func newEntry(value []byte, lifespan, maxIdle time.Duration) *entry {
	e := &entry{value: value, created: time.Now(), lifespan: lifespan, maxIdle: maxIdle}
	e.lastAccess.Store(e.created.UnixNano())
	return e
}

func (e *entry) expired(now time.Time) bool {
	if e.lifespan > 0 && now.Sub(e.created) >= e.lifespan {
		return true
	}
	if e.maxIdle > 0 && now.Sub(time.Unix(0, e.lastAccess.Load())) >= e.maxIdle {
		return true
	}
	return false
}

// --------------------------------------------------------------------------
// Cache
// --------------------------------------------------------------------------

// Cache is a single named key/value space. Expired entries are reaped
// lazily on access.
type Cache struct {
	name    string
	entries *xsync.MapOf[string, *entry]
}

func newCache(name string) *Cache {
	return &Cache{name: name, entries: xsync.NewMapOf[string, *entry]()}
}

// Name returns the cache name
func (c *Cache) Name() string {
	return c.name
}

// Get returns the live value for key
func (c *Cache) Get(key []byte) ([]byte, bool) {
	e, ok := c.entries.Load(string(key))
	if !ok {
		return nil, false
	}
	now := time.Now()
	if e.expired(now) {
		c.entries.Compute(string(key), func(cur *entry, loaded bool) (*entry, bool) {
			// Only drop the entry we saw; a concurrent Put may have
			// replaced it already.
			return cur, loaded && cur == e
		})
		return nil, false
	}
	e.lastAccess.Store(now.UnixNano())
	return e.value, true
}

// Put stores a value and returns the previous live value, if any
func (c *Cache) Put(key, value []byte, lifespan, maxIdle time.Duration) (prev []byte, had bool) {
	old, loaded := c.entries.LoadAndStore(string(key), newEntry(value, lifespan, maxIdle))
	if !loaded || old.expired(time.Now()) {
		return nil, false
	}
	return old.value, true
}

// PutIfAbsent stores a value only when no live value exists. It reports
// whether the store was applied and returns the previous value otherwise.
func (c *Cache) PutIfAbsent(key, value []byte, lifespan, maxIdle time.Duration) (prev []byte, applied bool) {
	fresh := newEntry(value, lifespan, maxIdle)
	now := time.Now()
	var existing *entry
	c.entries.Compute(string(key), func(cur *entry, loaded bool) (*entry, bool) {
		if loaded && !cur.expired(now) {
			existing = cur
			return cur, false
		}
		return fresh, false
	})
	if existing != nil {
		return existing.value, false
	}
	return nil, true
}

// Remove deletes the key and returns the previous live value, if any
func (c *Cache) Remove(key []byte) (prev []byte, had bool) {
	old, loaded := c.entries.LoadAndDelete(string(key))
	if !loaded || old.expired(time.Now()) {
		return nil, false
	}
	return old.value, true
}

// Contains reports whether a live value exists for key without touching
// its idle clock
func (c *Cache) Contains(key []byte) bool {
	e, ok := c.entries.Load(string(key))
	return ok && !e.expired(time.Now())
}

// --------------------------------------------------------------------------
// Store
// --------------------------------------------------------------------------

// Store is the cache-manager collaborator of the protocol layer: a
// registry of named caches. The protocol layer only ever resolves caches
// by name; the storage semantics behind them are of no concern to it.
type Store struct {
	caches *xsync.MapOf[string, *Cache]
}

// NewStore creates a store defining the default cache plus the given
// named caches
func NewStore(names ...string) *Store {
	s := &Store{caches: xsync.NewMapOf[string, *Cache]()}
	s.caches.Store(DefaultCacheName, newCache(DefaultCacheName))
	for _, name := range names {
		if name == "" {
			continue
		}
		s.caches.Store(name, newCache(name))
	}
	return s
}

// Cache resolves a cache by name; the empty name selects the default
// cache. The boolean reports whether the cache is defined.
func (s *Store) Cache(name string) (*Cache, bool) {
	if name == "" {
		name = DefaultCacheName
	}
	return s.caches.Load(name)
}
