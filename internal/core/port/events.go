package port

import (
	"context"

	"github.com/SalesUP-GmbH/leanx-erp-system/internal/core/domain"
)

// EventPublisher emits security events for downstream consumers (audit,
// notification delivery). Publishing is best-effort; failures must not block
// the authentication flow.
type EventPublisher interface {
	PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error
}
