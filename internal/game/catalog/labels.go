package catalog

import (
	"sync"

	"github.com/grandline/opcg-server-go/internal/game/effects"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DefaultLabelCacheSize bounds a LabelCache created with a non-positive size.
const DefaultLabelCacheSize = 512

// LabelCache memoizes label parsing. Once full it evicts the least recently
// used label.
type LabelCache struct {
	mu      sync.Mutex
	size    int
	parser  effects.LabelParser
	entries *orderedmap.OrderedMap[string, effects.LabelInfo]
	hits    uint64
	misses  uint64
}

// NewLabelCache wraps parser, or effects.ParseLabel when nil.
func NewLabelCache(size int, parser effects.LabelParser) *LabelCache {
	if size <= 0 {
		size = DefaultLabelCacheSize
	}
	if parser == nil {
		parser = effects.LabelParserFunc(effects.ParseLabel)
	}
	return &LabelCache{
		size:    size,
		parser:  parser,
		entries: orderedmap.New[string, effects.LabelInfo](),
	}
}

// Parse implements effects.LabelParser.
func (c *LabelCache) Parse(label string) effects.LabelInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	if info, ok := c.entries.Get(label); ok {
		c.hits++
		// move to the most recent end
		c.entries.Delete(label)
		c.entries.Set(label, info)
		return info
	}

	c.misses++
	info := c.parser.Parse(label)
	c.entries.Set(label, info)
	for c.entries.Len() > c.size {
		oldest := c.entries.Oldest()
		c.entries.Delete(oldest.Key)
	}
	return info
}

// Len returns the number of cached labels.
func (c *LabelCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Stats returns the cache hit and miss counts.
func (c *LabelCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
