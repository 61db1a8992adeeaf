package cache

import (
	"context"
	"sync"
	"time"

	"github.com/nxtreaming/mcpcore/internal/pool"
	"github.com/nxtreaming/mcpcore/internal/protocol"
)

// ResourceCache stores LRU/TTL-bounded sequences of content items keyed
// by resource URI. Every item handed to a caller, and every item stored,
// is a pool-acquired copy — the cache never shares backing arrays between
// the stored entry and a caller's result, so callers are free to mutate
// or release what they receive without corrupting the cache.
type ResourceCache struct {
	mu       sync.RWMutex
	entries  map[string]*resourceEntry
	order    *lruList
	capacity int
	ttl      time.Duration
	stats    Stats
}

type resourceEntry struct {
	key        string
	handles    []*pool.Handle
	expiresAt  time.Time // zero means never
	lastAccess time.Time
	node       *lruNode
}

// NewResourceCache creates a cache with the given entry capacity and
// default TTL (used when put is called with ttl == 0).
func NewResourceCache(capacity int, defaultTTL time.Duration) *ResourceCache {
	return &ResourceCache{
		entries:  make(map[string]*resourceEntry),
		order:    newLRUList(),
		capacity: capacity,
		ttl:      defaultTTL,
	}
}

// Get returns copies of the stored items for uri, acquired from pool. The
// returned handles are owned by the caller, who must release each one.
// ok is false if the key is absent or its entry has expired (in which
// case the expired entry is evicted).
func (c *ResourceCache) Get(p *pool.ObjectPool, uri string) (items []*pool.Handle, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[uri]
	if !found {
		c.stats.Misses++
		return nil, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.removeLocked(e)
		c.stats.Misses++
		return nil, false
	}

	copies := make([]*pool.Handle, 0, len(e.handles))
	for _, h := range e.handles {
		ch, err := p.Acquire(context.Background())
		if err != nil {
			for _, got := range copies {
				got.Release()
			}
			c.stats.Misses++
			return nil, false
		}
		src := h.Item()
		dst := ch.Item()
		dst.Type = src.Type
		dst.MimeType = src.MimeType
		dst.Data = append(dst.Data[:0], src.Data...)
		copies = append(copies, ch)
	}

	e.lastAccess = time.Now()
	c.order.moveToFront(e.node)
	c.stats.Hits++
	return copies, true
}

// Put stores deep copies (acquired from p) of items under uri, evicting
// any previous entry for that key. ttl == 0 uses the cache's default
// TTL; a negative ttl never expires. Capacity 0 silently discards the
// write.
func (c *ResourceCache) Put(p *pool.ObjectPool, uri string, items []*protocol.ContentItem, ttl time.Duration) error {
	if c.capacity == 0 {
		return nil
	}

	copies := make([]*pool.Handle, 0, len(items))
	for _, src := range items {
		h, err := p.Acquire(context.Background())
		if err != nil {
			for _, got := range copies {
				got.Release()
			}
			return err
		}
		dst := h.Item()
		dst.Type = src.Type
		dst.MimeType = src.MimeType
		dst.Data = append(dst.Data[:0], src.Data...)
		copies = append(copies, h)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	switch {
	case ttl == 0:
		if c.ttl > 0 {
			expiresAt = time.Now().Add(c.ttl)
		}
	case ttl > 0:
		expiresAt = time.Now().Add(ttl)
	default:
		// negative: never expires, expiresAt stays zero
	}

	if old, exists := c.entries[uri]; exists {
		c.removeLocked(old)
	}

	e := &resourceEntry{
		key:        uri,
		handles:    copies,
		expiresAt:  expiresAt,
		lastAccess: time.Now(),
	}
	e.node = c.order.pushFront(uri)
	c.entries[uri] = e

	for len(c.entries) > c.capacity {
		c.evictOldestLocked()
	}
	return nil
}

// Invalidate removes uri's entry, releasing its items to the pool.
func (c *ResourceCache) Invalidate(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[uri]; ok {
		c.removeLocked(e)
	}
}

// PruneExpired removes every entry whose TTL has elapsed, releasing
// items to the pool.
func (c *ResourceCache) PruneExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for uri, e := range c.entries {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			c.removeLocked(c.entries[uri])
		}
	}
}

// Len reports the number of cached entries.
func (c *ResourceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a snapshot including the current entry count. The
// configured capacity is not part of the snapshot.
func (c *ResourceCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Entries = len(c.entries)
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

func (c *ResourceCache) removeLocked(e *resourceEntry) {
	for _, h := range e.handles {
		h.Release()
	}
	delete(c.entries, e.key)
	c.order.remove(e.node)
}

func (c *ResourceCache) evictOldestLocked() {
	key := c.order.back()
	if key == "" {
		return
	}
	if e, ok := c.entries[key]; ok {
		c.removeLocked(e)
		c.stats.Evictions++
	}
}
