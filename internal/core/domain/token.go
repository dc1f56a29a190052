package domain

import "time"

// ChangeReason discriminates why a password change was forced.
type ChangeReason string

const (
	ChangeReasonFirstLogin      ChangeReason = "first_login"
	ChangeReasonPasswordExpired ChangeReason = "password_expired"
)

// TemporaryToken is the single-use credential handed to a client that must
// change its password before a full session is granted. Only the raw value
// travels to the client; the server retains its hash inside the pending
// session state.
type TemporaryToken struct {
	Value     string
	Reason    ChangeReason
	Username  string
	SessionID string
	ExpiresAt time.Time
}
