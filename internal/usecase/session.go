package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/SalesUP-GmbH/leanx-erp-system/internal/core/domain"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/core/port"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/infra/security"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/repository"
)

// ErrSessionNotFound signals an unknown or expired session identifier.
var ErrSessionNotFound = errors.New("session not found")

// SessionService manages the lifecycle of server-side sessions. Session
// identifiers are 256-bit random values; a promoted session always receives a
// fresh identifier so a pre-login identifier never survives authentication.
type SessionService struct {
	store       port.SessionStore
	idleTimeout time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewSessionService wires the session lifecycle use case.
func NewSessionService(store port.SessionStore, idleTimeout time.Duration, logger *zap.Logger) *SessionService {
	return &SessionService{
		store:       store,
		idleTimeout: idleTimeout,
		logger:      logger,
		now:         time.Now,
	}
}

// BeginAnonymous creates a fresh anonymous session.
func (s *SessionService) BeginAnonymous(ctx context.Context) (*domain.SessionState, error) {
	id, err := security.GenerateSecureToken(security.SessionIDBytes)
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	state := domain.SessionState{
		ID:        id,
		Kind:      domain.SessionAnonymous,
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.Create(ctx, state, s.idleTimeout); err != nil {
		return nil, fmt.Errorf("create anonymous session: %w", err)
	}

	return &state, nil
}

// Promote replaces the presented session with a fresh authenticated one. The
// old identifier is deleted first so it can never be replayed after login.
func (s *SessionService) Promote(ctx context.Context, currentID, userID, username string) (*domain.SessionState, error) {
	if currentID != "" {
		if err := s.store.Delete(ctx, currentID); err != nil {
			return nil, fmt.Errorf("drop pre-login session: %w", err)
		}
	}

	id, err := security.GenerateSecureToken(security.SessionIDBytes)
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	state := domain.SessionState{
		ID:        id,
		Kind:      domain.SessionAuthenticated,
		UserID:    userID,
		Username:  username,
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.Create(ctx, state, s.idleTimeout); err != nil {
		return nil, fmt.Errorf("create authenticated session: %w", err)
	}

	s.logger.Info("session promoted",
		zap.String("user_id", userID),
	)

	return &state, nil
}

// Get loads the session state for an identifier. Lookup is explicit about
// absence: unknown and expired identifiers return ErrSessionNotFound.
func (s *SessionService) Get(ctx context.Context, id string) (*domain.SessionState, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}

	state, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	return state, nil
}

// IsAuthenticated reports whether the identifier maps to a session bound to a
// user identity.
func (s *SessionService) IsAuthenticated(ctx context.Context, id string) (bool, error) {
	state, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}

	return state.IsAuthenticated(), nil
}

// Touch refreshes the idle timeout of an existing session.
func (s *SessionService) Touch(ctx context.Context, id string) error {
	if err := s.store.Touch(ctx, id, s.idleTimeout); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// End terminates a session. Ending an absent or expired session succeeds.
func (s *SessionService) End(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}
