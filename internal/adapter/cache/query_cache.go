package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"godlearn/internal/domain"
)

// QueryCache memoizes retrieval results per (query, topN). Retrieval is
// deterministic, so cached results stay correct until ingestion bumps the
// store generation.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
}

type cacheEntry struct {
	results   []domain.ScoredChunk
	timestamp time.Time
	gen       uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func cacheKey(query string, topN int) string {
	data := []byte(query)
	data = append(data, byte(topN>>8), byte(topN))
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

// Get returns cached results when present, fresh and from the same store
// generation.
func (c *QueryCache) Get(query string, topN int, gen uint64) ([]domain.ScoredChunk, bool) {
	c.mu.RLock()
	entry, exists := c.entries[cacheKey(query, topN)]
	c.mu.RUnlock()

	if !exists || entry.gen != gen || time.Since(entry.timestamp) > c.ttl {
		return nil, false
	}
	return entry.results, true
}

func (c *QueryCache) Put(query string, topN int, gen uint64, results []domain.ScoredChunk) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query, topN)
	if _, exists := c.entries[key]; !exists {
		if len(c.order) >= c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = &cacheEntry{
		results:   results,
		timestamp: time.Now(),
		gen:       gen,
	}
}
