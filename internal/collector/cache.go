package collector

import (
	"strconv"
	"sync"

	"catalog/collector/internal/domain"

	"golang.org/x/sync/singleflight"
)

// CategoryPathCache holds the category maps computed during one collection run,
// keyed by abstract product id. Entries are written once and never invalidated;
// a new cache is created for every run.
type CategoryPathCache struct {
	mu      sync.RWMutex
	entries map[int64]domain.CategoryMap
	group   singleflight.Group
}

func NewCategoryPathCache() *CategoryPathCache {
	return &CategoryPathCache{
		entries: make(map[int64]domain.CategoryMap),
	}
}

func (c *CategoryPathCache) Get(abstractProductID int64) (domain.CategoryMap, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	categories, ok := c.entries[abstractProductID]
	return categories, ok
}

// GetOrCompute returns the cached map for the product or runs compute exactly once
// for it, even when called concurrently. Failed computations are not stored.
func (c *CategoryPathCache) GetOrCompute(abstractProductID int64, compute func() (domain.CategoryMap, error)) (domain.CategoryMap, error) {
	if categories, ok := c.Get(abstractProductID); ok {
		return categories, nil
	}

	v, err, _ := c.group.Do(strconv.FormatInt(abstractProductID, 10), func() (any, error) {
		if categories, ok := c.Get(abstractProductID); ok {
			return categories, nil
		}

		categories, err := compute()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if existing, ok := c.entries[abstractProductID]; ok {
			return existing, nil
		}
		c.entries[abstractProductID] = categories
		return categories, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(domain.CategoryMap), nil
}

func (c *CategoryPathCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
