package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwtpizza/pizzaweb/internal/model"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFromClient(client), mr
}

func TestNew_ParsesURLAndPings(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := New(context.Background(), "redis://"+mr.Addr()+"/0", 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	assert.NoError(t, c.Ping(context.Background()))

	_, err = New(context.Background(), "not-a-url", 0)
	assert.Error(t, err)
}

func TestSessionStore_Lifecycle(t *testing.T) {
	t.Parallel()
	c, mr := newTestCache(t)
	store := NewSessionStore(c, time.Hour)
	ctx := context.Background()

	sess, err := store.Create(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	assert.False(t, sess.IsAuthenticated())

	sess.Token = "abcdef"
	sess.User = &model.User{ID: 3, Name: "pizza franchisee", Roles: []model.RoleAssignment{{Role: model.RoleFranchisee, ObjectID: 2}}}
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAuthenticated())
	assert.True(t, got.User.HasRole(model.RoleFranchisee))
	assert.Equal(t, time.Hour, mr.TTL(sessionKeyPrefix+sess.ID))

	require.NoError(t, store.Delete(ctx, sess.ID))
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSessionStore_GetRejectsBadIDs(t *testing.T) {
	t.Parallel()
	c, mr := newTestCache(t)
	store := NewSessionStore(c, time.Hour)

	_, err := store.Get(context.Background(), "../../etc")
	assert.ErrorIs(t, err, ErrCacheMiss)

	id := "01HZX3J4Q6N2W7Y8Z9ABCDEFGH"
	require.NoError(t, mr.Set(sessionKeyPrefix+id, "{not json"))
	_, err = store.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSessionStore_Expires(t *testing.T) {
	t.Parallel()
	c, mr := newTestCache(t)
	store := NewSessionStore(c, time.Minute)

	sess, err := store.Create(context.Background())
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(context.Background(), sess.ID)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSessionStore_Touch(t *testing.T) {
	t.Parallel()
	c, mr := newTestCache(t)
	store := NewSessionStore(c, time.Hour)
	ctx := context.Background()

	sess, err := store.Create(ctx)
	require.NoError(t, err)

	mr.FastForward(50 * time.Minute)
	require.NoError(t, store.Touch(ctx, sess.ID))
	assert.Equal(t, time.Hour, mr.TTL(sessionKeyPrefix+sess.ID))

	require.NoError(t, store.Delete(ctx, sess.ID))
	assert.ErrorIs(t, store.Touch(ctx, sess.ID), ErrCacheMiss)
}

func TestNavState_TakeIsOneShot(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache(t)
	nav := NewNavState(c)
	ctx := context.Background()

	type createStore struct {
		Store string `json:"store"`
	}

	require.NoError(t, nav.Put(ctx, "s1", "/franchise-dashboard/create-store", createStore{Store: "Orem"}))

	// Other sessions and paths see nothing.
	var other createStore
	assert.ErrorIs(t, nav.Take(ctx, "s2", "/franchise-dashboard/create-store", &other), ErrCacheMiss)
	assert.ErrorIs(t, nav.Take(ctx, "s1", "/admin-dashboard", &other), ErrCacheMiss)

	var got createStore
	require.NoError(t, nav.Take(ctx, "s1", "/franchise-dashboard/create-store", &got))
	assert.Equal(t, "Orem", got.Store)

	var again createStore
	assert.ErrorIs(t, nav.Take(ctx, "s1", "/franchise-dashboard/create-store", &again), ErrCacheMiss)
	assert.Empty(t, again.Store)
}

func TestNavState_TakeCorrupt(t *testing.T) {
	t.Parallel()
	c, mr := newTestCache(t)
	nav := NewNavState(c)

	require.NoError(t, mr.Set(navStateKey("s1", "/payment"), "{not json"))
	var got map[string]string
	err := nav.Take(context.Background(), "s1", "/payment", &got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.False(t, mr.Exists(navStateKey("s1", "/payment")), "the entry is consumed even when it does not decode")
}

func TestNavState_Expires(t *testing.T) {
	t.Parallel()
	c, mr := newTestCache(t)
	nav := NewNavState(c)

	require.NoError(t, nav.Put(context.Background(), "s1", "/payment", map[string]string{"next": "/payment"}))
	mr.FastForward(NavStateTTL + time.Second)

	var got map[string]string
	assert.ErrorIs(t, nav.Take(context.Background(), "s1", "/payment", &got), ErrCacheMiss)
}

func TestMenuCache_CorruptIsMiss(t *testing.T) {
	t.Parallel()
	c, mr := newTestCache(t)

	require.NoError(t, mr.Set(menuKey, "[{"))
	_, err := c.GetMenu(context.Background())
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMenuCache(t *testing.T) {
	t.Parallel()
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, err := c.GetMenu(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)

	menu := []model.MenuItem{{ID: 1, Title: "Veggie", Image: "pizza1.png", Price: 0.0038, Description: "A garden of delight"}}
	require.NoError(t, c.SetMenu(ctx, menu, time.Minute))

	got, err := c.GetMenu(ctx)
	require.NoError(t, err)
	assert.Equal(t, menu, got)

	require.NoError(t, c.InvalidateMenu(ctx))
	_, err = c.GetMenu(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.SetMenu(ctx, menu, time.Minute))
	mr.FastForward(2 * time.Minute)
	_, err = c.GetMenu(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCheckRateLimit_TokenBucket(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	for i := 0; i < 3; i++ {
		res := c.checkRateLimit(ctx, "rl:test", 1, 3, 60, now)
		assert.True(t, res.Allowed, "attempt %d", i)
	}

	res := c.checkRateLimit(ctx, "rl:test", 1, 3, 60, now)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Second, res.RetryAfter)

	res = c.checkRateLimit(ctx, "rl:test", 1, 3, 60, now.Add(2*time.Second))
	assert.True(t, res.Allowed)
}

func TestCheckRateLimit_FailsOpen(t *testing.T) {
	t.Parallel()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	c := NewFromClient(client)
	mr.Close()

	res := c.CheckLoginRateLimit(context.Background(), "10.0.0.1", 1, 5)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(5), res.Remaining)
}
