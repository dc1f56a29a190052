package domain

import "time"

// AccountStatus enumerates possible account states.
type AccountStatus string

const (
	AccountStatusActive      AccountStatus = "active"
	AccountStatusLocked      AccountStatus = "locked"
	AccountStatusDeactivated AccountStatus = "deactivated"
)

// Account mirrors the persisted representation in the accounts table.
type Account struct {
	ID                  string
	Username            string
	PasswordHash        string
	PasswordAlgo        string
	Status              AccountStatus
	FailedLoginAttempts int
	PasswordExpiresAt   *time.Time
	LastLoginAt         *time.Time
	CreatedAt           time.Time
	LastPasswordChange  time.Time
}

// IsFirstLogin reports whether the account still carries its provisioned
// password and has never completed a login. A forced password change clears
// the condition even before the first recorded login.
func (a Account) IsFirstLogin() bool {
	return a.LastLoginAt == nil && a.LastPasswordChange.IsZero()
}

// PasswordExpired reports whether the account's password expiry lies before the supplied moment.
func (a Account) PasswordExpired(at time.Time) bool {
	if a.PasswordExpiresAt == nil {
		return false
	}
	return a.PasswordExpiresAt.Before(at)
}

// PasswordHistoryEntry tracks historical password hashes for reuse prevention,
// ordered most-recent-first and trimmed to the configured history size.
type PasswordHistoryEntry struct {
	ID           string
	AccountID    string
	PasswordHash string
	SetAt        time.Time
}
