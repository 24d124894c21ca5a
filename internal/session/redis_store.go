package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/and161185/useradmin/internal/errs"
)

// RedisStore keeps sessions as JSON values whose TTL is the remaining idle time.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, prefix: "session:", now: time.Now}
}

func (r *RedisStore) key(id string) string { return r.prefix + id }

func (r *RedisStore) put(ctx context.Context, s Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return r.client.Del(ctx, r.key(s.ID)).Err()
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	return r.client.Set(ctx, r.key(s.ID), data, ttl).Err()
}

// Create stores a new session.
func (r *RedisStore) Create(ctx context.Context, s Session) error {
	if s.ID == "" || s.Claims.UserID == 0 {
		return errors.New("session: missing id or user")
	}
	if !s.ExpiresAt.After(r.now()) {
		return errors.New("session: expires_at must be in the future")
	}
	return r.put(ctx, s)
}

// Get loads a session by ID.
func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, errs.ErrNotFound
	}
	val, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("session: unmarshal: %w", err)
	}
	return &s, nil
}

// Touch slides the expiry and rewrites the value. It never recreates a key that
// was deleted meanwhile; a missing session is errs.ErrNotFound.
func (r *RedisStore) Touch(ctx context.Context, s *Session, idle time.Duration) error {
	s.ExpiresAt = r.now().Add(idle)
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return r.client.Del(ctx, r.key(s.ID)).Err()
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	err = r.client.SetArgs(ctx, r.key(s.ID), data, redis.SetArgs{Mode: "XX", TTL: ttl}).Err()
	if errors.Is(err, redis.Nil) {
		return errs.ErrNotFound
	}
	return err
}

// Delete removes a session; unknown IDs are not an error.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}
