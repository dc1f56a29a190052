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

// ErrTokenInvalid covers every way a temporary token can fail to redeem:
// unknown session, expired session, already-consumed token, or mismatch. The
// caller cannot distinguish these cases.
var ErrTokenInvalid = errors.New("temporary token invalid or expired")

// TokenService issues and redeems single-use password-change tokens. The raw
// token travels to the client once; the server keeps only its SHA-256 inside
// the pending session state, whose TTL bounds the token lifetime.
type TokenService struct {
	sessions   port.SessionStore
	pendingTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewTokenService wires the temporary token use case.
func NewTokenService(sessions port.SessionStore, pendingTTL time.Duration, logger *zap.Logger) *TokenService {
	return &TokenService{
		sessions:   sessions,
		pendingTTL: pendingTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Issue rotates the caller's session into a pending-password-change session
// carrying the hash of a fresh random token, and returns the raw token. The
// presented session identifier is deleted first.
func (s *TokenService) Issue(ctx context.Context, currentSessionID, userID, username string, reason domain.ChangeReason) (*domain.TemporaryToken, error) {
	raw, err := security.GenerateSecureToken(security.TempTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate temporary token: %w", err)
	}

	sessionID, err := security.GenerateSecureToken(security.SessionIDBytes)
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	if currentSessionID != "" {
		if err := s.sessions.Delete(ctx, currentSessionID); err != nil {
			return nil, fmt.Errorf("drop pre-challenge session: %w", err)
		}
	}

	issuedAt := s.now().UTC()
	state := domain.SessionState{
		ID:        sessionID,
		Kind:      domain.SessionPendingPasswordChange,
		UserID:    userID,
		Username:  username,
		TokenHash: security.HashToken(raw),
		Reason:    reason,
		CreatedAt: issuedAt,
	}

	if err := s.sessions.Create(ctx, state, s.pendingTTL); err != nil {
		return nil, fmt.Errorf("create pending session: %w", err)
	}

	s.logger.Info("temporary token issued",
		zap.String("user_id", userID),
		zap.String("reason", string(reason)),
	)

	return &domain.TemporaryToken{
		Value:     raw,
		Reason:    reason,
		Username:  username,
		SessionID: sessionID,
		ExpiresAt: issuedAt.Add(s.pendingTTL),
	}, nil
}

// Redeem validates a supplied token against the pending session. The stored
// hash is cleared whether or not the comparison succeeds, so a token can be
// tried exactly once. Comparison is constant time.
func (s *TokenService) Redeem(ctx context.Context, sessionID, supplied string) (*domain.SessionState, error) {
	state, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("load pending session: %w", err)
	}

	if !state.HasPendingToken() {
		return nil, ErrTokenInvalid
	}

	match := security.TokensEqual(supplied, state.TokenHash)

	state.TokenHash = ""
	if err := s.sessions.Update(ctx, *state); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("consume temporary token: %w", err)
	}

	if !match {
		s.logger.Warn("temporary token mismatch",
			zap.String("user_id", state.UserID),
		)
		return nil, ErrTokenInvalid
	}

	return state, nil
}
