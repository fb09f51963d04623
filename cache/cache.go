// Package cache implements the engine's process-wide Positive Cache (§3,
// §4.4 of the specification): a bounded, time-expiring map from hostname to
// a snapshot value, with LRU eviction when full.
//
// It is generic over the snapshot type so the root hostresolver package can
// store its own Host-derived value without an import cycle, the same way
// github.com/OpenPrinting/go-avahi parameterizes its eventqueue and Poller
// source registration over the event type.
package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

type entry[V any] struct {
	key       string
	value     V
	insertedAt time.Time
	ttl       time.Duration
	elem      *list.Element
}

// Cache is a bounded, TTL-expiring, LRU-evicted map from string key to V.
//
// Insert evicts at most one entry per call, the least recently used one,
// and only when the cache is already at capacity and the key is new, so
// the cache never holds more than Cap entries. Expired entries are not
// swept on Insert; they are dropped when Get finds them or when they reach
// the front of the LRU order. This mirrors the source's
// _ExpireCacheEntries, which evicts a single oldest entry per call rather
// than evicting down to a watermark (§9, Open Question).
type Cache[V any] struct {
	cap int
	mu  sync.Mutex
	m   map[string]*entry[V]
	lru *list.List // list of *entry[V], front = least recently used
}

// New returns an empty Cache bounded at cap entries.
func New[V any](cap int) *Cache[V] {
	return &Cache[V]{
		cap: cap,
		m:   map[string]*entry[V]{},
		lru: list.New(),
	}
}

// Len returns the current number of live entries, including ones that have
// expired but have not yet been touched by Get or Insert.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// Clear empties the cache.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = map[string]*entry[V]{}
	c.lru.Init()
}

// Get returns the value inserted under key, and the time that has passed
// since it was inserted, if it exists and has not expired. An expired entry
// is evicted on this call and reported as a miss.
func (c *Cache[V]) Get(key string) (value V, age time.Duration, ok bool) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.m[key]
	if !found {
		return value, 0, false
	}

	if now.Sub(e.insertedAt) >= e.ttl {
		c.evict(e)
		return value, 0, false
	}

	c.lru.MoveToBack(e.elem)
	return e.value, now.Sub(e.insertedAt), true
}

// Insert stores value under key with the given ttl, replacing any existing
// entry for key. If the cache is at capacity, the single least recently
// used entry is evicted first.
func (c *Cache[V]) Insert(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.m[key]; ok {
		e.value = value
		e.insertedAt = time.Now()
		e.ttl = ttl
		c.lru.MoveToBack(e.elem)
		return
	}

	if len(c.m) >= c.cap && c.cap > 0 {
		c.evictOldest()
	}

	e := &entry[V]{key: key, value: value, insertedAt: time.Now(), ttl: ttl}
	e.elem = c.lru.PushBack(e)
	c.m[key] = e

	if c.lru.Len() != len(c.m) {
		panic(fmt.Sprintf("hostresolver/cache: map and list out of sync: len(map)=%d, len(list)=%d", len(c.m), c.lru.Len()))
	}
}

// Delete removes key from the cache, if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.m[key]; ok {
		c.evict(e)
	}
}

func (c *Cache[V]) evictOldest() {
	front := c.lru.Front()
	if front == nil {
		return
	}
	c.evict(front.Value.(*entry[V]))
}

// evict removes e from both the map and the LRU list. Caller must hold mu.
func (c *Cache[V]) evict(e *entry[V]) {
	delete(c.m, e.key)
	c.lru.Remove(e.elem)
}
