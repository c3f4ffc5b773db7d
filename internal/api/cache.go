package api

import (
	"sync"

	"github.com/claimscore/claimscore/pkg/scoring"
)

// SummaryCache is a thread-safe LRU cache of batch summaries. Summaries are
// not persisted, so batch reads include one only while it is cached.
type SummaryCache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*cacheEntry
	order   []string // oldest first
}

type cacheEntry struct {
	summary *scoring.Summary
}

// NewSummaryCache creates a cache with the given maximum number of entries.
// If maxSize <= 0, it defaults to 100.
func NewSummaryCache(maxSize int) *SummaryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &SummaryCache{
		maxSize: maxSize,
		entries: make(map[string]*cacheEntry),
	}
}

// Get retrieves a summary from the cache, or nil if not found.
func (c *SummaryCache) Get(batchID string) *scoring.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[batchID]
	if !ok {
		return nil
	}

	// Move to end (most recently used)
	c.moveToEnd(batchID)
	return entry.summary
}

// Put adds a summary to the cache, evicting the oldest if full.
func (c *SummaryCache) Put(batchID string, summary *scoring.Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[batchID]; ok {
		c.entries[batchID] = &cacheEntry{summary: summary}
		c.moveToEnd(batchID)
		return
	}

	// Evict oldest if at capacity
	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[batchID] = &cacheEntry{summary: summary}
	c.order = append(c.order, batchID)
}

// Len returns the number of cached summaries.
func (c *SummaryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *SummaryCache) moveToEnd(id string) {
	for i, k := range c.order {
		if k == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, id)
			return
		}
	}
}
