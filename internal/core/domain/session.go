package domain

import "time"

// SessionKind tags the authentication state a session is in. Replaces the
// attribute-bag session model with an explicit tagged state.
type SessionKind string

const (
	SessionAnonymous             SessionKind = "anonymous"
	SessionAuthenticated         SessionKind = "authenticated"
	SessionPendingPasswordChange SessionKind = "pending_password_change"
)

// SessionState is the server-side authenticated context bound to a session
// identifier. The backing store enforces the idle timeout via key expiry.
type SessionState struct {
	ID        string       `json:"id"`
	Kind      SessionKind  `json:"kind"`
	UserID    string       `json:"user_id,omitempty"`
	Username  string       `json:"username,omitempty"`
	TokenHash string       `json:"token_hash,omitempty"`
	Reason    ChangeReason `json:"reason,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// IsAuthenticated reports whether the session carries a bound user identity.
func (s SessionState) IsAuthenticated() bool {
	return s.Kind == SessionAuthenticated && s.UserID != ""
}

// HasPendingToken reports whether an unredeemed password-change token is attached.
func (s SessionState) HasPendingToken() bool {
	return s.Kind == SessionPendingPasswordChange && s.TokenHash != ""
}
