package blockdb

import (
	"sync"

	"github.com/alphadose/haxmap"
	lru "github.com/hashicorp/golang-lru"
)

// Cache sits in front of the data log on the read path.  Because stored
// payloads are immutable a cache never needs invalidation; eviction
// policy is the only difference between implementations.
//
// Cached slices are shared with callers and must not be modified.
type Cache interface {
	// Get returns the cached payload for a key, if present.
	Get(key string) ([]byte, bool)

	// Add records a payload just read from the data log.
	Add(key string, value []byte)
}

const defaultCacheSize = 256

type lruCache struct {
	c *lru.Cache
}

// NewLRUCache returns a Cache evicting least-recently-used payloads
// beyond size entries.
func NewLRUCache(size int) Cache {
	if size <= 0 {
		size = defaultCacheSize
	}
	c, _ := lru.New(size)
	return &lruCache{c: c}
}

func (l *lruCache) Get(key string) ([]byte, bool) {
	if v, ok := l.c.Get(key); ok {
		return v.([]byte), true
	}
	return nil, false
}

func (l *lruCache) Add(key string, value []byte) {
	l.c.Add(key, value)
}

// FIFOCache is a lock-free-read cache with first-in-first-out eviction.
// Lookups go through a haxmap so concurrent readers never contend;
// eviction is serialized on a small mutex.
type FIFOCache struct {
	_       noCopy
	m       *haxmap.Map[string, []byte]
	keys    chan string
	evictMu sync.Mutex
}

// NewFIFOCache returns a Cache holding roughly size payloads.
func NewFIFOCache(size int) *FIFOCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	if Debug {
		debugf("creating fifo cache, size %d", size)
	}
	return &FIFOCache{
		m:    haxmap.New[string, []byte](),
		keys: make(chan string, size+10),
	}
}

func (c *FIFOCache) Get(key string) ([]byte, bool) {
	return c.m.Get(key)
}

func (c *FIFOCache) Add(key string, value []byte) {
	if _, loaded := c.m.GetOrSet(key, value); loaded {
		return
	}

	// If the key channel is nearly full, clear out the oldest entries.
	if cap(c.keys)-len(c.keys) < 5 {
		c.evictMu.Lock()
		for cap(c.keys)-len(c.keys) < 10 {
			c.m.Del(<-c.keys)
		}
		c.evictMu.Unlock()
	}

	// Store our key for future fifo clearing
	c.keys <- key
}

type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
