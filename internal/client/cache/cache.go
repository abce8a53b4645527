// Package cache implements LocalCache: a keyed, TTL-aware store of entity
// and list snapshots per scope, with pattern invalidation and warming.
package cache

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/models"
)

type entry struct {
	value      any
	insertedAt time.Time
}

// LocalCache is safe for concurrent use. A zero TTL disables expiry.
type LocalCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

// New returns a LocalCache whose entries expire after ttl.
func New(ttl time.Duration) *LocalCache {
	return &LocalCache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// ListKey builds the cache key for a scope's list snapshot with the given
// request params.
func ListKey(scopeID int64, params models.ListParams) string {
	return "categories:list:scope:" + strconv.FormatInt(scopeID, 10) + ":" + params.Fingerprint()
}

// ListKeyPrefix matches every list snapshot of a scope regardless of params.
func ListKeyPrefix(scopeID int64) string {
	return "categories:list:scope:" + strconv.FormatInt(scopeID, 10) + ":"
}

// EntityKey builds the cache key for a single entity snapshot.
func EntityKey(scopeID, id int64) string {
	return "categories:entity:scope:" + strconv.FormatInt(scopeID, 10) + ":" + strconv.FormatInt(id, 10)
}

// Get returns the cached value for key, or (nil, false) if absent or past
// its TTL. Expired entries are removed on access.
func (c *LocalCache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(e.insertedAt) >= c.ttl {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur.insertedAt.Equal(e.insertedAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with the current timestamp.
func (c *LocalCache) Set(key string, value any) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, insertedAt: c.now()}
	c.mu.Unlock()
}

// Invalidate removes a single key.
func (c *LocalCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateByPattern removes every key the matcher accepts and returns how
// many entries were dropped.
func (c *LocalCache) InvalidateByPattern(match func(key string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if match(k) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// InvalidatePrefix removes every key starting with prefix.
func (c *LocalCache) InvalidatePrefix(prefix string) int {
	return c.InvalidateByPattern(func(k string) bool { return strings.HasPrefix(k, prefix) })
}

// InvalidateScope drops every list and entity snapshot of a scope. Used
// after any mutation so stale aggregates are never served.
func (c *LocalCache) InvalidateScope(scopeID int64) {
	c.InvalidatePrefix(ListKeyPrefix(scopeID))
	c.InvalidatePrefix("categories:entity:scope:" + strconv.FormatInt(scopeID, 10) + ":")
}

// Warm populates per-entity snapshots from a list response.
func (c *LocalCache) Warm(scopeID int64, entities []models.Category) {
	now := c.now()
	c.mu.Lock()
	for _, e := range entities {
		c.entries[EntityKey(scopeID, e.ID)] = entry{value: e, insertedAt: now}
	}
	c.mu.Unlock()
}

// Len reports the number of live entries (expired ones included until read).
func (c *LocalCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// WithClock overrides the time source. Test hook.
func (c *LocalCache) WithClock(now func() time.Time) *LocalCache {
	c.now = now
	return c
}
