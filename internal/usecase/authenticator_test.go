package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/SalesUP-GmbH/leanx-erp-system/internal/core/domain"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/infra/security"
)

const lockoutThreshold = 3

func testHasher(t *testing.T) *security.Hasher {
	t.Helper()
	h, err := security.NewHasher(security.Argon2Config{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	return h
}

func activeAccount(t *testing.T, h *security.Hasher, password string) *domain.Account {
	t.Helper()
	hash, err := h.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	lastLogin := time.Now().UTC().Add(-24 * time.Hour)
	return &domain.Account{
		ID:           "acct-1",
		Username:     "jdoe",
		PasswordHash: hash,
		PasswordAlgo: security.PasswordAlgo,
		Status:       domain.AccountStatusActive,
		LastLoginAt:  &lastLogin,
		CreatedAt:    time.Now().UTC().Add(-30 * 24 * time.Hour),
	}
}

func newAuthService(t *testing.T, repo *stubAccountRepo, h *security.Hasher, events *stubPublisher) *AuthService {
	t.Helper()
	return NewAuthService(repo, h, events, lockoutThreshold, zaptest.NewLogger(t))
}

func TestAuthenticateSuccess(t *testing.T) {
	h := testHasher(t)
	account := activeAccount(t, h, "Correct!Pass1")
	account.FailedLoginAttempts = 2
	repo := newStubAccountRepo(account)
	events := &stubPublisher{}
	svc := newAuthService(t, repo, h, events)

	result, err := svc.Authenticate(context.Background(), "jdoe", "Correct!Pass1")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("expected success outcome, got %s", result.Outcome)
	}

	if len(repo.resetCalls) != 1 {
		t.Fatalf("expected failed attempts reset, got %d calls", len(repo.resetCalls))
	}
	if len(repo.recordedLogins) != 1 {
		t.Fatalf("expected login recorded, got %d calls", len(repo.recordedLogins))
	}
}

func TestAuthenticateUnknownUsername(t *testing.T) {
	h := testHasher(t)
	repo := newStubAccountRepo()
	svc := newAuthService(t, repo, h, &stubPublisher{})

	_, err := svc.Authenticate(context.Background(), "ghost", "whatever")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown username, got %v", err)
	}
}

func TestAuthenticateWrongPasswordBelowThreshold(t *testing.T) {
	h := testHasher(t)
	account := activeAccount(t, h, "Correct!Pass1")
	repo := newStubAccountRepo(account)
	events := &stubPublisher{}
	svc := newAuthService(t, repo, h, events)

	_, err := svc.Authenticate(context.Background(), "jdoe", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if repo.accounts["acct-1"].FailedLoginAttempts != 1 {
		t.Fatalf("expected counter incremented to 1, got %d", repo.accounts["acct-1"].FailedLoginAttempts)
	}
	if len(repo.lockCalls) != 0 {
		t.Fatal("account must not lock below the threshold")
	}
	if len(events.loginFailEvents) != 1 {
		t.Fatalf("expected a login failed event, got %d", len(events.loginFailEvents))
	}
}

func TestAuthenticateLocksWhenThresholdReached(t *testing.T) {
	h := testHasher(t)
	account := activeAccount(t, h, "Correct!Pass1")
	account.FailedLoginAttempts = lockoutThreshold - 1
	repo := newStubAccountRepo(account)
	events := &stubPublisher{}
	svc := newAuthService(t, repo, h, events)

	_, err := svc.Authenticate(context.Background(), "jdoe", "wrong")
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked when the increment reaches the threshold, got %v", err)
	}

	if repo.accounts["acct-1"].Status != domain.AccountStatusLocked {
		t.Fatal("expected account status locked")
	}
	if len(events.lockedEvents) != 1 {
		t.Fatalf("expected an account locked event, got %d", len(events.lockedEvents))
	}
}

func TestAuthenticateLockedAccountShortCircuits(t *testing.T) {
	h := testHasher(t)
	account := activeAccount(t, h, "Correct!Pass1")
	account.Status = domain.AccountStatusLocked
	repo := newStubAccountRepo(account)
	svc := newAuthService(t, repo, h, &stubPublisher{})

	// Even the correct password is rejected and the counter stays put.
	_, err := svc.Authenticate(context.Background(), "jdoe", "Correct!Pass1")
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
	if repo.accounts["acct-1"].FailedLoginAttempts != 0 {
		t.Fatal("locked account must not accrue attempts")
	}
}

func TestAuthenticateDeactivatedAccount(t *testing.T) {
	h := testHasher(t)
	account := activeAccount(t, h, "Correct!Pass1")
	account.Status = domain.AccountStatusDeactivated
	repo := newStubAccountRepo(account)
	svc := newAuthService(t, repo, h, &stubPublisher{})

	_, err := svc.Authenticate(context.Background(), "jdoe", "Correct!Pass1")
	if !errors.Is(err, ErrAccountDeactivated) {
		t.Fatalf("expected ErrAccountDeactivated, got %v", err)
	}
}

func TestAuthenticateAppliesOwedLock(t *testing.T) {
	h := testHasher(t)
	account := activeAccount(t, h, "Correct!Pass1")
	account.FailedLoginAttempts = lockoutThreshold
	repo := newStubAccountRepo(account)
	events := &stubPublisher{}
	svc := newAuthService(t, repo, h, events)

	_, err := svc.Authenticate(context.Background(), "jdoe", "Correct!Pass1")
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked for counter already at threshold, got %v", err)
	}
	if repo.accounts["acct-1"].Status != domain.AccountStatusLocked {
		t.Fatal("expected lock to be applied")
	}
}

func TestAuthenticateFirstLogin(t *testing.T) {
	h := testHasher(t)
	account := activeAccount(t, h, "Correct!Pass1")
	account.LastLoginAt = nil
	repo := newStubAccountRepo(account)
	svc := newAuthService(t, repo, h, &stubPublisher{})

	result, err := svc.Authenticate(context.Background(), "jdoe", "Correct!Pass1")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if result.Outcome != OutcomeFirstLogin {
		t.Fatalf("expected first login outcome, got %s", result.Outcome)
	}
	if result.Reason != domain.ChangeReasonFirstLogin {
		t.Fatalf("expected first login reason, got %s", result.Reason)
	}
}

func TestAuthenticatePasswordExpired(t *testing.T) {
	h := testHasher(t)
	account := activeAccount(t, h, "Correct!Pass1")
	expired := time.Now().UTC().Add(-time.Hour)
	account.PasswordExpiresAt = &expired
	repo := newStubAccountRepo(account)
	svc := newAuthService(t, repo, h, &stubPublisher{})

	result, err := svc.Authenticate(context.Background(), "jdoe", "Correct!Pass1")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if result.Outcome != OutcomePasswordExpired {
		t.Fatalf("expected password expired outcome, got %s", result.Outcome)
	}
	if result.Reason != domain.ChangeReasonPasswordExpired {
		t.Fatalf("expected password expired reason, got %s", result.Reason)
	}
}

func TestAuthenticateConcurrentFailuresLoseNoIncrements(t *testing.T) {
	h := testHasher(t)
	account := activeAccount(t, h, "Correct!Pass1")
	repo := newStubAccountRepo(account)
	// High threshold keeps the account unlocked for the whole run.
	svc := NewAuthService(repo, h, &stubPublisher{}, 1000, zaptest.NewLogger(t))

	const attempts = 20
	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			_, _ = svc.Authenticate(context.Background(), "jdoe", "wrong")
		}()
	}
	wg.Wait()

	if got := repo.accounts["acct-1"].FailedLoginAttempts; got != attempts {
		t.Fatalf("expected %d recorded attempts, got %d", attempts, got)
	}
}
