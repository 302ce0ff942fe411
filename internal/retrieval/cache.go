package retrieval

import (
	"sort"
	"sync"
)

// ContentCache holds full document text keyed by doc ID, populated lazily as
// Tier 3 loads complete. Presence of a key means the full content was
// already fetched once; later queries serve it without a refetch. The cache
// is unbounded within a session and explicitly clearable.
type ContentCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewContentCache returns an empty cache.
func NewContentCache() *ContentCache {
	return &ContentCache{entries: make(map[string]string)}
}

// Get returns the cached full text for docID, if present.
func (c *ContentCache) Get(docID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	text, ok := c.entries[docID]
	return text, ok
}

// Put stores the full text for docID.
func (c *ContentCache) Put(docID, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[docID] = text
}

// Clear removes every entry.
func (c *ContentCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
}

// Len returns the number of cached documents.
func (c *ContentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns the cached doc IDs in ascending order.
func (c *ContentCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
