package cache

import (
	"sync"
	"time"

	"flight-tracker-service/internal/domain/entity"

	gocache "github.com/patrickmn/go-cache"
)

// SearchCache holds ranked search results until the next write to the store.
// Every Flush bumps a generation so a search that started before the flush
// cannot store its stale result after it.
type SearchCache struct {
	mu         sync.Mutex
	items      *gocache.Cache
	generation uint64
}

// NewSearchCache creates a cache whose entries expire after ttl.
// A ttl <= 0 disables caching and returns nil.
func NewSearchCache(ttl time.Duration) *SearchCache {
	if ttl <= 0 {
		return nil
	}
	return &SearchCache{
		items: gocache.New(ttl, 2*ttl),
	}
}

// Get returns a copy of the cached results for key
func (c *SearchCache) Get(key string) ([]entity.ScoredFlight, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		return nil, false
	}
	results := v.([]entity.ScoredFlight)
	return append([]entity.ScoredFlight(nil), results...), true
}

// Generation returns the current flush generation
func (c *SearchCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// SetIfGeneration stores results only if no flush happened since generation was read
func (c *SearchCache) SetIfGeneration(key string, results []entity.ScoredFlight, generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return false
	}
	c.items.SetDefault(key, append([]entity.ScoredFlight(nil), results...))
	return true
}

// Flush drops every entry
func (c *SearchCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.items.Flush()
}

// Len returns the number of cached entries, expired ones included
func (c *SearchCache) Len() int {
	return c.items.ItemCount()
}
