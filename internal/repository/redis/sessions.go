package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SalesUP-GmbH/leanx-erp-system/internal/core/domain"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/core/port"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/repository"
)

// SessionRepository stores session state as JSON under a prefixed key. Redis
// key expiry enforces the idle timeout, so an expired session reads exactly
// like one that never existed.
type SessionRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewSessionRepository constructs a Redis-backed session store.
func NewSessionRepository(client *redis.Client, keyPrefix string) *SessionRepository {
	return &SessionRepository{client: client, keyPrefix: keyPrefix}
}

// Create persists a new session state with the supplied TTL.
func (r *SessionRepository) Create(ctx context.Context, state domain.SessionState, ttl time.Duration) error {
	if state.ID == "" {
		return errors.New("session id must not be empty")
	}
	if ttl <= 0 {
		return errors.New("session ttl must be positive")
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}

	if err := r.client.Set(ctx, r.key(state.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}

	return nil
}

// Get loads a session state. Unknown and expired identifiers both return
// repository.ErrNotFound.
func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.SessionState, error) {
	payload, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var state domain.SessionState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}

	return &state, nil
}

// Update rewrites the session state in place while preserving the remaining TTL.
func (r *SessionRepository) Update(ctx context.Context, state domain.SessionState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}

	// KEEPTTL leaves the expiry untouched; XX refuses to resurrect a session
	// that has already expired.
	res, err := r.client.SetArgs(ctx, r.key(state.ID), payload, redis.SetArgs{
		Mode:    "XX",
		KeepTTL: true,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("redis update session: %w", err)
	}
	if res == "" {
		return repository.ErrNotFound
	}

	return nil
}

// Touch refreshes the idle timeout without modifying the stored state.
func (r *SessionRepository) Touch(ctx context.Context, id string, ttl time.Duration) error {
	ok, err := r.client.Expire(ctx, r.key(id), ttl).Result()
	if err != nil {
		return fmt.Errorf("redis expire session: %w", err)
	}
	if !ok {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a session. Deleting an absent session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) key(id string) string {
	if r.keyPrefix == "" {
		return id
	}
	return fmt.Sprintf("%s:%s", r.keyPrefix, id)
}

var _ port.SessionStore = (*SessionRepository)(nil)
