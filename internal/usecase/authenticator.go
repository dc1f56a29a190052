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
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords so responses never reveal which usernames exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrAccountDeactivated = errors.New("account deactivated")
)

// AuthOutcome tags the result of a successful credential check.
type AuthOutcome string

const (
	// OutcomeSuccess grants a full authenticated session.
	OutcomeSuccess AuthOutcome = "success"
	// OutcomeFirstLogin requires a password change before a session is granted.
	OutcomeFirstLogin AuthOutcome = "first_login"
	// OutcomePasswordExpired requires a password change before a session is granted.
	OutcomePasswordExpired AuthOutcome = "password_expired"
)

// AuthResult carries the outcome of an authentication attempt. Blocking
// conditions that still need client action are outcome variants, not errors.
type AuthResult struct {
	Outcome AuthOutcome
	Account *domain.Account
	Reason  domain.ChangeReason
}

// AuthService implements credential authentication with lockout tracking.
type AuthService struct {
	accounts  port.AccountRepository
	hasher    *security.Hasher
	events    port.EventPublisher
	logger    *zap.Logger
	threshold int
	now       func() time.Time
}

// NewAuthService wires the credential authentication use case. threshold is
// the failed-attempt count at which an account locks.
func NewAuthService(accounts port.AccountRepository, hasher *security.Hasher, events port.EventPublisher, threshold int, logger *zap.Logger) *AuthService {
	return &AuthService{
		accounts:  accounts,
		hasher:    hasher,
		events:    events,
		logger:    logger,
		threshold: threshold,
		now:       time.Now,
	}
}

// Authenticate verifies a username/password pair. Checks run in a fixed
// order: locked, deactivated, threshold already exceeded, password expired,
// first login, then password verification. Locked accounts never reach the
// hasher. Counter mutations go through the store's atomic operations so
// concurrent attempts against one account never lose an increment.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*AuthResult, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	switch account.Status {
	case domain.AccountStatusLocked:
		return nil, ErrAccountLocked
	case domain.AccountStatusDeactivated:
		return nil, ErrAccountDeactivated
	}

	// A counter already at the threshold means a lock is owed but was never
	// applied, for instance after a crash between increment and lock.
	if account.FailedLoginAttempts >= s.threshold {
		if err := s.lockAccount(ctx, account); err != nil {
			return nil, err
		}
		return nil, ErrAccountLocked
	}

	if account.PasswordExpired(s.now()) {
		return &AuthResult{
			Outcome: OutcomePasswordExpired,
			Account: account,
			Reason:  domain.ChangeReasonPasswordExpired,
		}, nil
	}

	if account.IsFirstLogin() {
		return &AuthResult{
			Outcome: OutcomeFirstLogin,
			Account: account,
			Reason:  domain.ChangeReasonFirstLogin,
		}, nil
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !ok {
		return nil, s.handleFailedAttempt(ctx, account)
	}

	if err := s.accounts.ResetFailedAttempts(ctx, account.ID); err != nil {
		return nil, fmt.Errorf("reset failed attempts: %w", err)
	}
	if err := s.accounts.RecordLogin(ctx, account.ID, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	return &AuthResult{
		Outcome: OutcomeSuccess,
		Account: account,
	}, nil
}

func (s *AuthService) handleFailedAttempt(ctx context.Context, account *domain.Account) error {
	attempts, err := s.accounts.IncrementFailedAttempts(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("increment failed attempts: %w", err)
	}

	s.logger.Warn("failed login attempt",
		zap.String("user_id", account.ID),
		zap.Int("attempts", attempts),
	)

	if err := s.events.PublishLoginFailed(ctx, domain.LoginFailedEvent{
		EventID:    uuid.NewString(),
		AccountID:  account.ID,
		Username:   account.Username,
		FailedAt:   s.now().UTC(),
		AttemptNum: attempts,
	}); err != nil {
		s.logger.Warn("publish login failed event", zap.Error(err))
	}

	if attempts >= s.threshold {
		if err := s.lockAccount(ctx, account); err != nil {
			return err
		}
		return ErrAccountLocked
	}

	return ErrInvalidCredentials
}

func (s *AuthService) lockAccount(ctx context.Context, account *domain.Account) error {
	if err := s.accounts.Lock(ctx, account.ID); err != nil {
		return fmt.Errorf("lock account: %w", err)
	}

	s.logger.Warn("account locked after repeated failures",
		zap.String("user_id", account.ID),
	)

	if err := s.events.PublishAccountLocked(ctx, domain.AccountLockedEvent{
		EventID:        uuid.NewString(),
		AccountID:      account.ID,
		Username:       account.Username,
		LockedAt:       s.now().UTC(),
		FailedAttempts: s.threshold,
	}); err != nil {
		s.logger.Warn("publish account locked event", zap.Error(err))
	}

	return nil
}
