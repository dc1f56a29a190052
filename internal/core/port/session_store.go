package port

import (
	"context"
	"time"

	"github.com/SalesUP-GmbH/leanx-erp-system/internal/core/domain"
)

// SessionStore persists session state keyed by session identifier. The store
// enforces the idle timeout through key expiry; an expired session is
// indistinguishable from one that never existed.
type SessionStore interface {
	Create(ctx context.Context, state domain.SessionState, ttl time.Duration) error
	// Get returns repository.ErrNotFound when the identifier is unknown or expired.
	Get(ctx context.Context, id string) (*domain.SessionState, error)
	// Update rewrites the state in place, preserving the remaining TTL.
	Update(ctx context.Context, state domain.SessionState) error
	// Touch refreshes the idle timeout without modifying state.
	Touch(ctx context.Context, id string, ttl time.Duration) error
	// Delete is idempotent; removing an absent session is not an error.
	Delete(ctx context.Context, id string) error
}
