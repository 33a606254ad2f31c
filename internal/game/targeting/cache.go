package targeting

import (
	"github.com/cespare/xxhash/v2"
)

// Cache memoizes legal target sets for a single state version. Any version
// change drops every entry, so cached results are never stale.
type Cache struct {
	version uint64
	entries map[uint64]cacheEntry
	hits    int
	misses  int
}

type cacheEntry struct {
	key     string
	targets []Target
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[uint64]cacheEntry)}
}

// Stats returns the hit and miss counts.
func (c *Cache) Stats() (hits, misses int) {
	return c.hits, c.misses
}

// Len returns the number of entries for the current version.
func (c *Cache) Len() int {
	return len(c.entries)
}

func cacheKey(f Filter, controller string) string {
	return f.Key() + "#" + controller
}

func (c *Cache) get(version uint64, f Filter, controller string) ([]Target, bool) {
	if version != c.version {
		c.reset(version)
	}
	key := cacheKey(f, controller)
	entry, ok := c.entries[xxhash.Sum64String(key)]
	if !ok || entry.key != key {
		c.misses++
		return nil, false
	}
	c.hits++
	return append([]Target(nil), entry.targets...), true
}

func (c *Cache) put(version uint64, f Filter, controller string, targets []Target) {
	if version != c.version {
		c.reset(version)
	}
	key := cacheKey(f, controller)
	c.entries[xxhash.Sum64String(key)] = cacheEntry{key: key, targets: append([]Target(nil), targets...)}
}

func (c *Cache) reset(version uint64) {
	c.version = version
	clear(c.entries)
}
