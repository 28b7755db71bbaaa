package indexstore

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache keeps recently loaded course indexes in memory. An entry is served
// only while its version is still the course's current version.
type Cache struct {
	store   *Store
	entries *lru.Cache[string, *CourseIndex]
}

func NewCache(store *Store, size int) (*Cache, error) {
	if size <= 0 {
		size = 8
	}
	entries, err := lru.New[string, *CourseIndex](size)
	if err != nil {
		return nil, fmt.Errorf("create index cache: %w", err)
	}
	return &Cache{store: store, entries: entries}, nil
}

// Load returns the current course index, reading from disk only when the
// cached copy is missing or stale.
func (c *Cache) Load(ctx context.Context, course string) (*CourseIndex, error) {
	version, err := c.store.Version(course)
	if err != nil {
		c.entries.Remove(course)
		return nil, err
	}
	if ci, ok := c.entries.Get(course); ok && ci.Version == version {
		return ci, nil
	}

	ci, err := c.store.Load(ctx, course)
	if err != nil {
		return nil, err
	}
	c.entries.Add(course, ci)
	return ci, nil
}

// Invalidate drops the cached entry for a course.
func (c *Cache) Invalidate(course string) {
	c.entries.Remove(course)
}

// Len reports how many courses are cached.
func (c *Cache) Len() int {
	return c.entries.Len()
}
