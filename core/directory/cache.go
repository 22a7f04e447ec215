package directory

import (
	"sync"
	"time"
)

// Cache stores resolved endpoint information per domain. Implementations own
// their eviction policy; the resolver only reads, writes, and invalidates.
type Cache interface {
	// Get returns the cached info for a domain, or false if absent/expired.
	Get(domain string) (*EndpointInfo, bool)

	// Put stores info for a domain, replacing any previous entry.
	Put(domain string, info *EndpointInfo)

	// Invalidate removes the entry for a domain, if present.
	Invalidate(domain string)
}

type ttlEntry struct {
	info      *EndpointInfo
	fetchedAt time.Time
}

// TTLCache is a mutex-guarded in-memory Cache with time-based eviction.
// A ttl of zero means entries never expire within the process lifetime.
type TTLCache struct {
	entries map[string]*ttlEntry
	ttl     time.Duration
	mu      sync.RWMutex
}

// NewTTLCache creates a TTLCache with the given entry lifetime.
func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{
		entries: make(map[string]*ttlEntry),
		ttl:     ttl,
	}
}

// Get returns the cached info for a domain if it has not expired.
func (c *TTLCache) Get(domain string) (*EndpointInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[domain]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && time.Since(entry.fetchedAt) >= c.ttl {
		return nil, false
	}
	return entry.info, true
}

// Put stores info for a domain, resetting its expiry.
func (c *TTLCache) Put(domain string, info *EndpointInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[domain] = &ttlEntry{info: info, fetchedAt: time.Now()}
}

// Invalidate removes the entry for a domain.
func (c *TTLCache) Invalidate(domain string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, domain)
}

var _ Cache = (*TTLCache)(nil)
