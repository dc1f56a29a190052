package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SalesUP-GmbH/leanx-erp-system/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: middleware.GetTraceID(c),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SessionSummary is the session view returned after login. The session
// identifier itself travels only in the cookie.
type SessionSummary struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginSuccessResponse is returned when credentials grant a full session.
type LoginSuccessResponse struct {
	Status  string         `json:"status"`
	Session SessionSummary `json:"session"`
}

// ChallengeSummary carries the single-use token a client needs to complete a
// forced password change.
type ChallengeSummary struct {
	Token     string    `json:"token"`
	Reason    string    `json:"reason"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginChallengeResponse is returned when a password change is required
// before a session can be granted.
type LoginChallengeResponse struct {
	Status    string           `json:"status"`
	Challenge ChallengeSummary `json:"challenge"`
}

// ChangePasswordRequest defines the payload for the change-password endpoint.
type ChangePasswordRequest struct {
	Token              string `json:"token" binding:"required"`
	NewPassword        string `json:"newPassword" binding:"required"`
	ConfirmNewPassword string `json:"confirmNewPassword" binding:"required"`
}

// SessionStatusResponse describes the caller's authenticated session.
type SessionStatusResponse struct {
	Authenticated bool      `json:"authenticated"`
	Username      string    `json:"username"`
	CreatedAt     time.Time `json:"created_at"`
}
