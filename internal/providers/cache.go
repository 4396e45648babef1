package providers

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
)

// defaultCacheEntries bounds the in-process response cache. Entries are
// small decoded results, not raw completions.
const defaultCacheEntries = 1024

// Cache memoizes provider results keyed by (operation, content hash,
// generation options). A re-run of the same document with the same options
// answers identify and categorize calls without touching the backend.
type Cache struct {
	mu      sync.Mutex
	entries map[string][]byte
	order   []string
	max     int
}

// NewCache creates a cache bounded to max entries (defaultCacheEntries when
// max <= 0).
func NewCache(max int) *Cache {
	if max <= 0 {
		max = defaultCacheEntries
	}
	return &Cache{entries: make(map[string][]byte), max: max}
}

// Key derives the cache key for one call. Only parameters that change the
// model's answer participate; timeout and retry policy do not.
func Key(op, content string, opts Options) string {
	h := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%s:%s:%s:%.2f:%d",
		op, hex.EncodeToString(h[:]), opts.Model, opts.Temperature, opts.MaxTokens)
}

// Get returns the cached payload for key.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores a payload, evicting the oldest entry at capacity.
func (c *Cache) Put(key string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		c.entries[key] = payload
		return
	}
	if len(c.order) >= c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = payload
	c.order = append(c.order, key)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
