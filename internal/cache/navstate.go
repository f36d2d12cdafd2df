package cache

import (
	"context"
	"time"
)

const (
	navStateKeyPrefix = "navstate:"

	// NavStateTTL bounds how long a redirect target has to pick up its state.
	NavStateTTL = 5 * time.Minute
)

// NavState is a one-shot payload handed from one page to the next across a
// redirect. It is scoped to a session and a destination path.
type NavState struct {
	cache *Cache
}

// NewNavState creates a NavState store.
func NewNavState(c *Cache) *NavState {
	return &NavState{cache: c}
}

func navStateKey(sessionID, path string) string {
	return navStateKeyPrefix + sessionID + ":" + path
}

// Put stores v for the next visit of path by the session. A later Put for
// the same path replaces the earlier one.
func (n *NavState) Put(ctx context.Context, sessionID, path string, v any) error {
	return n.cache.setJSON(ctx, navStateKey(sessionID, path), v, NavStateTTL)
}

// Take reads and removes the state for path. Returns ErrCacheMiss when
// there is nothing to consume.
func (n *NavState) Take(ctx context.Context, sessionID, path string, v any) error {
	return n.cache.takeJSON(ctx, navStateKey(sessionID, path), v)
}
