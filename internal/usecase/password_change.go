package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SalesUP-GmbH/leanx-erp-system/internal/core/domain"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/core/port"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/infra/security"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/repository"
)

var (
	// ErrConfirmationMismatch means password and confirmation differ. A
	// client-side error, distinct from policy violations.
	ErrConfirmationMismatch = errors.New("password confirmation does not match")
	// ErrPasswordReused means the candidate matches the current password or
	// one of the retained history entries.
	ErrPasswordReused  = errors.New("password was used recently")
	ErrAccountNotFound = errors.New("account not found")
)

// PasswordService applies validated password changes with history-based reuse
// prevention.
type PasswordService struct {
	accounts    port.AccountRepository
	validator   *security.PasswordValidator
	hasher      *security.Hasher
	events      port.EventPublisher
	historySize int
	logger      *zap.Logger
	now         func() time.Time
}

// NewPasswordService wires the password change use case.
func NewPasswordService(accounts port.AccountRepository, validator *security.PasswordValidator, hasher *security.Hasher, events port.EventPublisher, historySize int, logger *zap.Logger) *PasswordService {
	return &PasswordService{
		accounts:    accounts,
		validator:   validator,
		hasher:      hasher,
		events:      events,
		historySize: historySize,
		logger:      logger,
		now:         time.Now,
	}
}

// ChangePassword validates and applies a new password for the account bound
// to username. Order: confirmation equality, policy rules, reuse against the
// current hash and retained history, then one transactional update. reason
// records why the change was forced and travels on the published event.
func (s *PasswordService) ChangePassword(ctx context.Context, username, newPassword, confirmPassword string, reason domain.ChangeReason) error {
	if newPassword != confirmPassword {
		return ErrConfirmationMismatch
	}

	if err := s.validator.Validate(newPassword); err != nil {
		return err
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("load account: %w", err)
	}

	reused, err := s.inRecentHistory(ctx, account, newPassword)
	if err != nil {
		return err
	}
	if reused {
		return ErrPasswordReused
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	changedAt := s.now().UTC()
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash, security.PasswordAlgo, changedAt, s.historySize); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.logger.Info("password changed",
		zap.String("user_id", account.ID),
		zap.String("reason", string(reason)),
	)

	if err := s.events.PublishPasswordChanged(ctx, domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		AccountID: account.ID,
		ChangedAt: changedAt,
		Reason:    string(reason),
	}); err != nil {
		s.logger.Warn("publish password changed event", zap.Error(err))
	}

	return nil
}

// inRecentHistory verifies the candidate against the current hash and each
// retained history digest. Salted digests rule out set-membership checks, so
// every comparison runs the hasher.
func (s *PasswordService) inRecentHistory(ctx context.Context, account *domain.Account, candidate string) (bool, error) {
	match, err := s.hasher.Verify(candidate, account.PasswordHash)
	if err != nil {
		return false, fmt.Errorf("compare against current password: %w", err)
	}
	if match {
		return true, nil
	}

	entries, err := s.accounts.ListPasswordHistory(ctx, account.ID, s.historySize)
	if err != nil {
		return false, fmt.Errorf("load password history: %w", err)
	}

	for _, entry := range entries {
		match, err := s.hasher.Verify(candidate, entry.PasswordHash)
		if err != nil {
			return false, fmt.Errorf("compare against password history: %w", err)
		}
		if match {
			return true, nil
		}
	}

	return false, nil
}
