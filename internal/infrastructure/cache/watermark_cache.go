package cache

import (
	"context"
	"sync"
	"time"

	"github.com/backoffice/backend/internal/domain/integration"
)

// WatermarkCache stores per-store last-imported-ID maps so repeated
// introspection does not rescan every entity table. The database stays the
// source of truth: a miss or a stale entry only costs a requery, and every
// completed sync overwrites the entry.
type WatermarkCache interface {
	// Get returns the cached watermark map for a store. The second return is
	// false on a miss.
	Get(ctx context.Context, storeID int64) (map[integration.EntityType]int64, bool, error)

	// Set stores the watermark map for a store.
	Set(ctx context.Context, storeID int64, ids map[integration.EntityType]int64) error

	// Invalidate drops the entry for a store.
	Invalidate(ctx context.Context, storeID int64) error
}

// InMemoryWatermarkCache is a process-local WatermarkCache, suitable for
// single-instance deployments and testing.
type InMemoryWatermarkCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[int64]inMemoryEntry
	now     func() time.Time
}

type inMemoryEntry struct {
	ids       map[integration.EntityType]int64
	expiresAt time.Time
}

// NewInMemoryWatermarkCache creates an in-memory cache with the given entry
// lifetime. A non-positive ttl means entries never expire.
func NewInMemoryWatermarkCache(ttl time.Duration) *InMemoryWatermarkCache {
	return &InMemoryWatermarkCache{
		ttl:     ttl,
		entries: make(map[int64]inMemoryEntry),
		now:     time.Now,
	}
}

var _ WatermarkCache = (*InMemoryWatermarkCache)(nil)

// Get returns the cached watermark map for a store
func (c *InMemoryWatermarkCache) Get(ctx context.Context, storeID int64) (map[integration.EntityType]int64, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[storeID]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, storeID)
		c.mu.Unlock()
		return nil, false, nil
	}

	out := make(map[integration.EntityType]int64, len(entry.ids))
	for k, v := range entry.ids {
		out[k] = v
	}
	return out, true, nil
}

// Set stores the watermark map for a store
func (c *InMemoryWatermarkCache) Set(ctx context.Context, storeID int64, ids map[integration.EntityType]int64) error {
	copied := make(map[integration.EntityType]int64, len(ids))
	for k, v := range ids {
		copied[k] = v
	}
	entry := inMemoryEntry{ids: copied}
	if c.ttl > 0 {
		entry.expiresAt = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	c.entries[storeID] = entry
	c.mu.Unlock()
	return nil
}

// Invalidate drops the entry for a store
func (c *InMemoryWatermarkCache) Invalidate(ctx context.Context, storeID int64) error {
	c.mu.Lock()
	delete(c.entries, storeID)
	c.mu.Unlock()
	return nil
}
