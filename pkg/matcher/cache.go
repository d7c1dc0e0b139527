package matcher

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is used when NewCache is given a non-positive size.
const DefaultCacheSize = 512

// Cache keeps compiled patterns for ad-hoc route keys. It is safe for
// concurrent use.
type Cache struct {
	patterns *lru.Cache[string, *Pattern]
}

// NewCache creates a pattern cache holding up to size keys.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	patterns, err := lru.New[string, *Pattern](size)
	if err != nil {
		return nil, err
	}
	return &Cache{patterns: patterns}, nil
}

// Pattern returns the compiled pattern for key, compiling it on a miss.
// Invalid keys are reported and never cached.
func (c *Cache) Pattern(key string) (*Pattern, error) {
	if p, ok := c.patterns.Get(key); ok {
		return p, nil
	}
	p, err := CompileKey(key)
	if err != nil {
		return nil, err
	}
	c.patterns.Add(key, p)
	return p, nil
}

// Len returns the number of cached patterns.
func (c *Cache) Len() int {
	return c.patterns.Len()
}
