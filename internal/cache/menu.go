package cache

import (
	"context"
	"errors"
	"time"

	"github.com/jwtpizza/pizzaweb/internal/model"
)

const menuKey = "menu:v1"

// GetMenu returns the cached menu or ErrCacheMiss. An entry that does not
// decode counts as a miss.
func (c *Cache) GetMenu(ctx context.Context) ([]model.MenuItem, error) {
	var items []model.MenuItem
	if err := c.getJSON(ctx, menuKey, &items); err != nil {
		if errors.Is(err, errCorrupt) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return items, nil
}

// SetMenu caches the menu for ttl.
func (c *Cache) SetMenu(ctx context.Context, items []model.MenuItem, ttl time.Duration) error {
	return c.setJSON(ctx, menuKey, items, ttl)
}

// InvalidateMenu drops the cached menu, e.g. after an admin adds a pizza.
func (c *Cache) InvalidateMenu(ctx context.Context) error {
	return c.client.Del(ctx, menuKey).Err()
}
