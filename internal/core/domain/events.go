package domain

import "time"

// AccountLockedEvent captures an automatic lockout after repeated failures.
type AccountLockedEvent struct {
	EventID        string
	AccountID      string
	Username       string
	LockedAt       time.Time
	FailedAttempts int
	Metadata       map[string]any
}

// PasswordChangedEvent captures a completed password change.
type PasswordChangedEvent struct {
	EventID   string
	AccountID string
	ChangedAt time.Time
	Reason    string
	Metadata  map[string]any
}

// LoginFailedEvent captures a rejected authentication attempt for audit.
type LoginFailedEvent struct {
	EventID    string
	AccountID  string
	Username   string
	FailedAt   time.Time
	AttemptNum int
	Metadata   map[string]any
}
