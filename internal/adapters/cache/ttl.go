package cache

import (
	"hash/maphash"
	"sync"
	"time"
)

const defaultShards = 32

// TTLCache is an in-memory key/value store with per-entry expiry.
// Keys are spread over independently locked shards so that writes to
// unrelated keys do not contend. Expiry is checked on read; an expired
// entry is removed by the reader that finds it.
type TTLCache struct {
	seed   maphash.Seed
	shards []*shard
	now    func() time.Time
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Option configures a TTLCache.
type Option func(*TTLCache)

// WithClock replaces time.Now as the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(c *TTLCache) {
		c.now = now
	}
}

// WithShards sets the number of lock shards. Values below 1 are ignored.
func WithShards(n int) Option {
	return func(c *TTLCache) {
		if n > 0 {
			c.shards = newShards(n)
		}
	}
}

// New creates an empty TTLCache.
func New(opts ...Option) *TTLCache {
	c := &TTLCache{
		seed:   maphash.MakeSeed(),
		shards: newShards(defaultShards),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newShards(n int) []*shard {
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{entries: make(map[string]entry)}
	}
	return shards
}

func (c *TTLCache) shardFor(key string) *shard {
	return c.shards[maphash.String(c.seed, key)%uint64(len(c.shards))]
}

// Get returns the value stored under key. Entries whose TTL has elapsed
// are reported as missing.
func (c *TTLCache) Get(key string) (any, bool) {
	s := c.shardFor(key)
	now := c.now()

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if now.Before(e.expiresAt) {
		return e.value, true
	}

	s.mu.Lock()
	// A writer may have refreshed the entry since the read above.
	if cur, ok := s.entries[key]; ok && !now.Before(cur.expiresAt) {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return nil, false
}

// Set stores value under key for ttl. A ttl of zero or less stores an
// entry that is already expired.
func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	if ttl < 0 {
		ttl = 0
	}
	s := c.shardFor(key)
	e := entry{value: value, expiresAt: c.now().Add(ttl)}

	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
}

// Len returns the number of stored entries, including expired entries
// that have not been read since they expired.
func (c *TTLCache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}
