package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SalesUP-GmbH/leanx-erp-system/internal/core/domain"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("account_id", accountID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishAccountLocked logs auth.account.locked events.
func (p *StubPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	payload := map[string]any{
		"account_id":      event.AccountID,
		"username":        event.Username,
		"locked_at":       event.LockedAt,
		"failed_attempts": event.FailedAttempts,
		"metadata":        event.Metadata,
	}
	p.logEvent("auth.account.locked", event.AccountID, event.LockedAt, payload)
	return nil
}

// PublishPasswordChanged logs auth.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"account_id": event.AccountID,
		"changed_at": event.ChangedAt,
		"reason":     event.Reason,
		"metadata":   event.Metadata,
	}
	p.logEvent("auth.password.changed", event.AccountID, event.ChangedAt, payload)
	return nil
}

// PublishLoginFailed logs auth.login.failed events.
func (p *StubPublisher) PublishLoginFailed(_ context.Context, event domain.LoginFailedEvent) error {
	payload := map[string]any{
		"account_id":  event.AccountID,
		"username":    event.Username,
		"failed_at":   event.FailedAt,
		"attempt_num": event.AttemptNum,
		"metadata":    event.Metadata,
	}
	p.logEvent("auth.login.failed", event.AccountID, event.FailedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
