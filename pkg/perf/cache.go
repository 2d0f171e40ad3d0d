package perf

import (
	"hash/fnv"
	"sync"
	"time"
)

const cacheShards = 16

// Cache memoizes per-lane tuples with a TTL. Sharded to keep concurrent
// endpoint builds from contending on one lock. Entries expire lazily on read.
type Cache struct {
	shards [cacheShards]cacheShard
	ttl    time.Duration
	nowFn  func() time.Time
}

type cacheShard struct {
	mu sync.RWMutex
	m  map[string]cacheEntry
}

type cacheEntry struct {
	t        Tuple
	expireAt int64 // unix nano; 0 = no expiry
}

// NewCache creates a cache; ttl <= 0 keeps entries forever.
func NewCache(ttl time.Duration) *Cache {
	c := &Cache{ttl: ttl, nowFn: time.Now}
	for i := range c.shards {
		c.shards[i].m = make(map[string]cacheEntry, 8)
	}
	return c
}

func (c *Cache) shard(key string) *cacheShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &c.shards[h.Sum32()%cacheShards]
}

// Get returns the cached tuple for key if present and not expired.
func (c *Cache) Get(key string) (Tuple, bool) {
	s := c.shard(key)
	s.mu.RLock()
	e, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return Tuple{}, false
	}
	if e.expireAt != 0 && c.nowFn().UnixNano() >= e.expireAt {
		s.mu.Lock()
		delete(s.m, key)
		s.mu.Unlock()
		return Tuple{}, false
	}
	return e.t, true
}

// Set stores the tuple for key with the cache TTL.
func (c *Cache) Set(key string, t Tuple) {
	var exp int64
	if c.ttl > 0 {
		exp = c.nowFn().Add(c.ttl).UnixNano()
	}
	s := c.shard(key)
	s.mu.Lock()
	s.m[key] = cacheEntry{t: t, expireAt: exp}
	s.mu.Unlock()
}

// Invalidate drops the entry for key.
func (c *Cache) Invalidate(key string) {
	s := c.shard(key)
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	n := 0
	now := c.nowFn().UnixNano()
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.RLock()
		for _, e := range s.m {
			if e.expireAt == 0 || now < e.expireAt {
				n++
			}
		}
		s.mu.RUnlock()
	}
	return n
}
