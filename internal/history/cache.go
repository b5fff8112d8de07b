package history

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/aconic-ni/customsclass-r/internal/hscode"
)

// Cached serves List from an expiring LRU of per-user item lists. The wrapped
// Store stays authoritative: Save and Clear always reach it and then drop the
// user's cached list.
type Cached struct {
	next  Store
	lists *expirable.LRU[string, []Item]

	mu   sync.Mutex
	gens map[string]uint64 // bumped by every write of the user
}

// NewCached wraps next with a cache of up to size users kept for ttl.
func NewCached(next Store, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = 256
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cached{
		next:  next,
		lists: expirable.NewLRU[string, []Item](size, nil, ttl),
		gens:  make(map[string]uint64),
	}
}

// Save implements Store.
func (c *Cached) Save(ctx context.Context, userID, brand, description string, result hscode.ResultData) (Item, error) {
	item, err := c.next.Save(ctx, userID, brand, description, result)
	c.invalidate(cacheKey(userID))
	return item, err
}

// List implements Store. A list read while a write of the same user was in
// flight is returned but not cached.
func (c *Cached) List(ctx context.Context, userID string) ([]Item, error) {
	key := cacheKey(userID)
	if items, ok := c.lists.Get(key); ok {
		return cloneItems(items), nil
	}

	c.mu.Lock()
	gen := c.gens[key]
	c.mu.Unlock()

	items, err := c.next.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gens[key] == gen {
		c.lists.Add(key, cloneItems(items))
	}
	c.mu.Unlock()
	return items, nil
}

// Clear implements Store.
func (c *Cached) Clear(ctx context.Context, userID string) (int64, error) {
	deleted, err := c.next.Clear(ctx, userID)
	c.invalidate(cacheKey(userID))
	return deleted, err
}

func (c *Cached) invalidate(key string) {
	c.mu.Lock()
	c.gens[key]++
	c.lists.Remove(key)
	c.mu.Unlock()
}

func cacheKey(userID string) string {
	return strings.TrimSpace(userID)
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
