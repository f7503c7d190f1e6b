package content

import (
	"encoding/json"
	"sync"
	"time"
)

// CurrentSet is the loaded set served to drills.
type CurrentSet struct {
	Set      string
	Items    []Item
	LoadedAt time.Time
}

// Page is a window of the current set.
type Page struct {
	Set   string `json:"set"`
	Count int    `json:"count"`
	Items []Item `json:"items"`
}

// MarshalJSON writes a null set when nothing is loaded.
func (p Page) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Set   *string `json:"set"`
		Count int     `json:"count"`
		Items []Item  `json:"items"`
	}{Set: setOrNull(p.Set), Count: p.Count, Items: p.Items})
}

func setOrNull(set string) *string {
	if set == "" {
		return nil
	}
	return &set
}

// Cache holds the single current set for the process.
type Cache struct {
	mu      sync.RWMutex
	current CurrentSet
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Load returns the current set. Items must not be modified.
func (c *Cache) Load() CurrentSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Replace swaps the current set atomically.
func (c *Cache) Replace(set string, items []Item, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = CurrentSet{Set: set, Items: items, LoadedAt: at}
}

// Page returns items [offset, offset+limit). Negative values count as zero
// and a zero limit means no limit. Count is always the full set size.
func (c *Cache) Page(offset, limit int) Page {
	current := c.Load()
	page := Page{Set: current.Set, Count: len(current.Items), Items: []Item{}}
	offset = max(offset, 0)
	limit = max(limit, 0)
	if offset >= len(current.Items) {
		return page
	}
	end := len(current.Items)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	page.Items = current.Items[offset:end]
	return page
}

// Find returns the item with id in the current set.
func (c *Cache) Find(id string) (Item, bool) {
	for _, item := range c.Load().Items {
		if item.ID() == id {
			return item, true
		}
	}
	return nil, false
}
