package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/SalesUP-GmbH/leanx-erp-system/internal/core/domain"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/repository"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func pendingState(id string) domain.SessionState {
	return domain.SessionState{
		ID:        id,
		Kind:      domain.SessionPendingPasswordChange,
		UserID:    "acct-1",
		Username:  "jdoe",
		TokenHash: "deadbeef",
		Reason:    domain.ChangeReasonFirstLogin,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewSessionRepository(client, "auth:session")

	ctx := context.Background()
	ttl := 2 * time.Minute
	state := pendingState("sess-1")

	if err := repo.Create(ctx, state, ttl); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	loaded, err := repo.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if loaded.Kind != domain.SessionPendingPasswordChange {
		t.Fatalf("expected pending kind, got %s", loaded.Kind)
	}
	if loaded.UserID != "acct-1" || loaded.Username != "jdoe" {
		t.Fatalf("unexpected identity: %+v", loaded)
	}
	if loaded.TokenHash != "deadbeef" {
		t.Fatalf("expected token hash preserved, got %q", loaded.TokenHash)
	}

	remaining := server.TTL("auth:session:sess-1")
	if remaining <= 0 || remaining > ttl {
		t.Fatalf("expected ttl within (0, %v], got %v", ttl, remaining)
	}
}

func TestSessionRepository_GetMissing(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewSessionRepository(client, "auth:session")

	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepository_GetExpired(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewSessionRepository(client, "auth:session")

	ctx := context.Background()
	if err := repo.Create(ctx, pendingState("sess-1"), time.Minute); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	server.FastForward(2 * time.Minute)

	// An expired session reads exactly like one that never existed.
	if _, err := repo.Get(ctx, "sess-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestSessionRepository_UpdateKeepsTTL(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewSessionRepository(client, "auth:session")

	ctx := context.Background()
	ttl := 2 * time.Minute
	state := pendingState("sess-1")

	if err := repo.Create(ctx, state, ttl); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// Burning the token rewrites the state without touching the expiry.
	state.TokenHash = ""
	if err := repo.Update(ctx, state); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	loaded, err := repo.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if loaded.TokenHash != "" {
		t.Fatalf("expected token hash cleared, got %q", loaded.TokenHash)
	}
	if loaded.HasPendingToken() {
		t.Fatal("cleared token must not read as pending")
	}

	remaining := server.TTL("auth:session:sess-1")
	if remaining <= 0 || remaining > ttl {
		t.Fatalf("expected original ttl preserved within (0, %v], got %v", ttl, remaining)
	}
}

func TestSessionRepository_UpdateMissing(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewSessionRepository(client, "auth:session")

	if err := repo.Update(context.Background(), pendingState("missing")); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepository_UpdateDoesNotResurrect(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewSessionRepository(client, "auth:session")

	ctx := context.Background()
	state := pendingState("sess-1")
	if err := repo.Create(ctx, state, time.Minute); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	server.FastForward(2 * time.Minute)

	state.TokenHash = ""
	if err := repo.Update(ctx, state); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an expired session, got %v", err)
	}
	if server.Exists("auth:session:sess-1") {
		t.Fatal("update must not recreate an expired session")
	}
}

func TestSessionRepository_TouchRefreshesTTL(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewSessionRepository(client, "auth:session")

	ctx := context.Background()
	if err := repo.Create(ctx, pendingState("sess-1"), time.Minute); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := repo.Touch(ctx, "sess-1", 5*time.Minute); err != nil {
		t.Fatalf("Touch returned error: %v", err)
	}

	remaining := server.TTL("auth:session:sess-1")
	if remaining <= time.Minute || remaining > 5*time.Minute {
		t.Fatalf("expected refreshed ttl within (1m, 5m], got %v", remaining)
	}
}

func TestSessionRepository_TouchMissing(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewSessionRepository(client, "auth:session")

	if err := repo.Touch(context.Background(), "missing", time.Minute); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepository_DeleteIsIdempotent(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewSessionRepository(client, "auth:session")

	ctx := context.Background()
	if err := repo.Create(ctx, pendingState("sess-1"), time.Minute); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := repo.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if server.Exists("auth:session:sess-1") {
		t.Fatal("expected session key removed")
	}
	if err := repo.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("deleting an absent session must succeed, got %v", err)
	}
}

func TestSessionRepository_CreateInvalidInput(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewSessionRepository(client, "auth:session")

	state := pendingState("")
	if err := repo.Create(context.Background(), state, time.Minute); err == nil {
		t.Fatal("expected error for empty session id")
	}

	state = pendingState("sess-1")
	if err := repo.Create(context.Background(), state, 0); err == nil {
		t.Fatal("expected error for non-positive ttl")
	}
}
