package cache

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jwtpizza/pizzaweb/internal/model"
)

const sessionKeyPrefix = "session:"

// SessionStore keeps browser sessions in Redis as JSON with a sliding TTL.
type SessionStore struct {
	cache *Cache
	ttl   time.Duration
}

// NewSessionStore creates a SessionStore.
func NewSessionStore(c *Cache, ttl time.Duration) *SessionStore {
	return &SessionStore{cache: c, ttl: ttl}
}

// TTL returns the session lifetime.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

// Create persists a fresh anonymous session with a new ULID.
func (s *SessionStore) Create(ctx context.Context) (*model.Session, error) {
	now := time.Now().UTC()
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	sess := &model.Session{ID: id.String(), CreatedAt: now}
	if err := s.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get loads a session. Returns ErrCacheMiss if it does not exist or is
// unreadable.
func (s *SessionStore) Get(ctx context.Context, id string) (*model.Session, error) {
	if _, err := ulid.ParseStrict(id); err != nil {
		return nil, ErrCacheMiss
	}

	var sess model.Session
	if err := s.cache.getJSON(ctx, sessionKeyPrefix+id, &sess); err != nil {
		if errors.Is(err, errCorrupt) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	sess.ID = id
	return &sess, nil
}

// Save writes the session and refreshes its TTL.
func (s *SessionStore) Save(ctx context.Context, sess *model.Session) error {
	return s.cache.setJSON(ctx, sessionKeyPrefix+sess.ID, sess, s.ttl)
}

// Touch restarts the TTL of an existing session. Returns ErrCacheMiss if
// it is gone.
func (s *SessionStore) Touch(ctx context.Context, id string) error {
	ok, err := s.cache.client.Expire(ctx, sessionKeyPrefix+id, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis expire session: %w", err)
	}
	if !ok {
		return ErrCacheMiss
	}
	return nil
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.cache.client.Del(ctx, sessionKeyPrefix+id).Err()
}
