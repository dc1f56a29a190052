package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/SalesUP-GmbH/leanx-erp-system/internal/core/domain"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/repository"
)

type stubAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	history  map[string][]domain.PasswordHistoryEntry

	lockCalls        []string
	resetCalls       []string
	recordedLogins   []string
	updatedPasswords []string
	historyLimit     int
}

func newStubAccountRepo(accounts ...*domain.Account) *stubAccountRepo {
	repo := &stubAccountRepo{
		accounts: make(map[string]*domain.Account),
		history:  make(map[string][]domain.PasswordHistoryEntry),
	}
	for _, account := range accounts {
		repo.accounts[account.ID] = account
	}
	return repo
}

func (r *stubAccountRepo) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.Username == username {
			copied := *account
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (r *stubAccountRepo) IncrementFailedAttempts(_ context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	account.FailedLoginAttempts++
	return account.FailedLoginAttempts, nil
}

func (r *stubAccountRepo) ResetFailedAttempts(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.FailedLoginAttempts = 0
	r.resetCalls = append(r.resetCalls, id)
	return nil
}

func (r *stubAccountRepo) Lock(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.Status = domain.AccountStatusLocked
	r.lockCalls = append(r.lockCalls, id)
	return nil
}

func (r *stubAccountRepo) RecordLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	stamped := at
	account.LastLoginAt = &stamped
	r.recordedLogins = append(r.recordedLogins, id)
	return nil
}

func (r *stubAccountRepo) UpdatePassword(_ context.Context, id string, passwordHash string, passwordAlgo string, changedAt time.Time, historyLimit int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.PasswordHash = passwordHash
	account.PasswordAlgo = passwordAlgo
	account.LastPasswordChange = changedAt
	account.PasswordExpiresAt = nil

	r.history[id] = append([]domain.PasswordHistoryEntry{{
		AccountID:    id,
		PasswordHash: passwordHash,
		SetAt:        changedAt,
	}}, r.history[id]...)
	if len(r.history[id]) > historyLimit {
		r.history[id] = r.history[id][:historyLimit]
	}

	r.updatedPasswords = append(r.updatedPasswords, id)
	r.historyLimit = historyLimit
	return nil
}

func (r *stubAccountRepo) ListPasswordHistory(_ context.Context, id string, limit int) ([]domain.PasswordHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.history[id]
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]domain.PasswordHistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

type stubSessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.SessionState
	ttls     map[string]time.Duration
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{
		sessions: make(map[string]domain.SessionState),
		ttls:     make(map[string]time.Duration),
	}
}

func (s *stubSessionStore) Create(_ context.Context, state domain.SessionState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[state.ID] = state
	s.ttls[state.ID] = ttl
	return nil
}

func (s *stubSessionStore) Get(_ context.Context, id string) (*domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := state
	return &copied, nil
}

func (s *stubSessionStore) Update(_ context.Context, state domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[state.ID]; !ok {
		return repository.ErrNotFound
	}
	s.sessions[state.ID] = state
	return nil
}

func (s *stubSessionStore) Touch(_ context.Context, id string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return repository.ErrNotFound
	}
	s.ttls[id] = ttl
	return nil
}

func (s *stubSessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	delete(s.ttls, id)
	return nil
}

func (s *stubSessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type stubPublisher struct {
	mu              sync.Mutex
	lockedEvents    []domain.AccountLockedEvent
	passwordEvents  []domain.PasswordChangedEvent
	loginFailEvents []domain.LoginFailedEvent
}

func (p *stubPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lockedEvents = append(p.lockedEvents, event)
	return nil
}

func (p *stubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.passwordEvents = append(p.passwordEvents, event)
	return nil
}

func (p *stubPublisher) PublishLoginFailed(_ context.Context, event domain.LoginFailedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loginFailEvents = append(p.loginFailEvents, event)
	return nil
}
