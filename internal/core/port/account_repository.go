package port

import (
	"context"
	"time"

	"github.com/SalesUP-GmbH/leanx-erp-system/internal/core/domain"
)

// AccountRepository exposes the persistence behavior the authentication core
// requires from the account store. Counter mutations must be atomic: under
// concurrent attempts against the same account no increment may be lost.
type AccountRepository interface {
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// IncrementFailedAttempts adds one to the failed-login counter and
	// returns the post-increment value.
	IncrementFailedAttempts(ctx context.Context, id string) (int, error)
	ResetFailedAttempts(ctx context.Context, id string) error
	Lock(ctx context.Context, id string) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
	// UpdatePassword sets the new hash, appends it to the password history,
	// and trims the history to historyLimit entries, all within a single
	// transaction. Partial application is not acceptable.
	UpdatePassword(ctx context.Context, id string, passwordHash string, passwordAlgo string, changedAt time.Time, historyLimit int) error
	ListPasswordHistory(ctx context.Context, id string, limit int) ([]domain.PasswordHistoryEntry, error)
}
