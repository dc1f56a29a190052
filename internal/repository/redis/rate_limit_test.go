package redis

import (
	"context"
	"testing"
	"time"
)

func TestRateLimitRepository_RecordAndCount(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "ratelimit:login", TTL: 5 * time.Minute})

	ctx := context.Background()
	base := time.Now()

	for _, at := range []time.Time{base.Add(-2 * time.Minute), base.Add(-10 * time.Second), base} {
		if err := repo.RecordAttempt(ctx, "10.0.0.1", at); err != nil {
			t.Fatalf("RecordAttempt returned error: %v", err)
		}
	}

	// Only the attempts inside the window count; the two-minute-old one falls out.
	count, err := repo.CountAttempts(ctx, "10.0.0.1", time.Minute, base)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 attempts in window, got %d", count)
	}

	count, err = repo.CountAttempts(ctx, "10.0.0.1", time.Hour, base)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 attempts in wide window, got %d", count)
	}

	remaining := server.TTL("ratelimit:login:10.0.0.1")
	if remaining <= 0 || remaining > 5*time.Minute {
		t.Fatalf("expected key ttl within (0, 5m], got %v", remaining)
	}
}

func TestRateLimitRepository_CountUnknownIdentifier(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "ratelimit:login", TTL: time.Minute})

	count, err := repo.CountAttempts(context.Background(), "203.0.113.9", time.Minute, time.Now())
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 attempts for unseen identifier, got %d", count)
	}
}

func TestRateLimitRepository_TrimWindow(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "ratelimit:login", TTL: time.Hour})

	ctx := context.Background()
	base := time.Now()

	for _, at := range []time.Time{base.Add(-3 * time.Minute), base.Add(-2 * time.Minute), base} {
		if err := repo.RecordAttempt(ctx, "10.0.0.1", at); err != nil {
			t.Fatalf("RecordAttempt returned error: %v", err)
		}
	}

	if err := repo.TrimWindow(ctx, "10.0.0.1", time.Minute, base); err != nil {
		t.Fatalf("TrimWindow returned error: %v", err)
	}

	count, err := repo.CountAttempts(ctx, "10.0.0.1", time.Hour, base)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only the in-window attempt to survive, got %d", count)
	}
}

func TestRateLimitRepository_OldestAttempt(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "ratelimit:login", TTL: time.Hour})

	ctx := context.Background()
	base := time.Now()
	oldest := base.Add(-30 * time.Second)

	for _, at := range []time.Time{base, oldest, base.Add(-10 * time.Second)} {
		if err := repo.RecordAttempt(ctx, "10.0.0.1", at); err != nil {
			t.Fatalf("RecordAttempt returned error: %v", err)
		}
	}

	got, ok, err := repo.OldestAttempt(ctx, "10.0.0.1", time.Minute, base)
	if err != nil {
		t.Fatalf("OldestAttempt returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected an attempt inside the window")
	}
	if got.UnixNano() != oldest.UnixNano() {
		t.Fatalf("expected oldest attempt %d, got %d", oldest.UnixNano(), got.UnixNano())
	}
}

func TestRateLimitRepository_OldestAttemptEmpty(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "ratelimit:login", TTL: time.Hour})

	_, ok, err := repo.OldestAttempt(context.Background(), "10.0.0.1", time.Minute, time.Now())
	if err != nil {
		t.Fatalf("OldestAttempt returned error: %v", err)
	}
	if ok {
		t.Fatal("expected no attempt for an unseen identifier")
	}
}

func TestRateLimitRepository_RejectsNonPositiveWindow(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "ratelimit:login", TTL: time.Hour})

	ctx := context.Background()
	now := time.Now()

	if _, err := repo.CountAttempts(ctx, "10.0.0.1", 0, now); err == nil {
		t.Fatal("expected error for zero window on count")
	}
	if err := repo.TrimWindow(ctx, "10.0.0.1", -time.Second, now); err == nil {
		t.Fatal("expected error for negative window on trim")
	}
	if _, _, err := repo.OldestAttempt(ctx, "10.0.0.1", 0, now); err == nil {
		t.Fatal("expected error for zero window on oldest")
	}
}
