package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SalesUP-GmbH/leanx-erp-system/internal/infra/security"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/transport/http/middleware"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/usecase"
)

// CookieConfig carries the session cookie parameters.
type CookieConfig struct {
	Name        string
	Secure      bool
	IdleTimeout time.Duration
	PendingTTL  time.Duration
}

// AuthHandler exposes the authentication endpoints.
type AuthHandler struct {
	auth      *usecase.AuthService
	passwords *usecase.PasswordService
	sessions  *usecase.SessionService
	tokens    *usecase.TokenService
	cookie    CookieConfig
	logger    *zap.Logger
}

// NewAuthHandler wires the authentication HTTP surface.
func NewAuthHandler(auth *usecase.AuthService, passwords *usecase.PasswordService, sessions *usecase.SessionService, tokens *usecase.TokenService, cookie CookieConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		passwords: passwords,
		sessions:  sessions,
		tokens:    tokens,
		cookie:    cookie,
		logger:    logger,
	}
}

var loginErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid username or password"},
	{Err: usecase.ErrAccountLocked, Status: http.StatusUnauthorized, Message: "account is locked"},
	{Err: usecase.ErrAccountDeactivated, Status: http.StatusUnauthorized, Message: "account is deactivated"},
}

// Login authenticates a username/password pair. A success rotates the session
// cookie; a forced password change answers with a single-use challenge token;
// a failure ends whatever session the client presented.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	presentedID, _ := c.Cookie(h.cookie.Name)
	ctx := c.Request.Context()

	result, err := h.auth.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if endErr := h.sessions.End(ctx, presentedID); endErr != nil {
			h.logger.Warn("end session after failed login", zap.Error(endErr))
		}
		h.clearCookie(c)
		RespondWithMappedError(c, err, loginErrorCases, http.StatusInternalServerError, "authentication failed")
		return
	}

	switch result.Outcome {
	case usecase.OutcomeSuccess:
		state, err := h.sessions.Promote(ctx, presentedID, result.Account.ID, result.Account.Username)
		if err != nil {
			h.logger.Error("promote session", zap.Error(err))
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "authentication failed"))
			return
		}

		h.setCookie(c, state.ID, h.cookie.IdleTimeout)
		c.JSON(http.StatusOK, LoginSuccessResponse{
			Status: "success",
			Session: SessionSummary{
				Username:  state.Username,
				CreatedAt: state.CreatedAt,
			},
		})

	case usecase.OutcomeFirstLogin, usecase.OutcomePasswordExpired:
		token, err := h.tokens.Issue(ctx, presentedID, result.Account.ID, result.Account.Username, result.Reason)
		if err != nil {
			h.logger.Error("issue temporary token", zap.Error(err))
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "authentication failed"))
			return
		}

		h.setCookie(c, token.SessionID, h.cookie.PendingTTL)
		c.JSON(http.StatusOK, LoginChallengeResponse{
			Status: "challenge",
			Challenge: ChallengeSummary{
				Token:     token.Value,
				Reason:    string(token.Reason),
				ExpiresAt: token.ExpiresAt,
			},
		})

	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "authentication failed"))
	}
}

// Logout ends the presented session. Ending an absent session still succeeds.
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID, _ := c.Cookie(h.cookie.Name)

	if err := h.sessions.End(c.Request.Context(), sessionID); err != nil {
		h.logger.Error("end session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "logout failed"))
		return
	}

	h.clearCookie(c)
	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

var changePasswordErrorCases = []ErrorCase{
	{Err: usecase.ErrConfirmationMismatch, Status: http.StatusBadRequest, Message: "password confirmation does not match"},
	{Err: usecase.ErrPasswordReused, Status: http.StatusBadRequest, Message: "password was used recently"},
	{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
	{Err: usecase.ErrTokenInvalid, Status: http.StatusUnauthorized, Message: "invalid or expired token"},
}

// ChangePassword redeems a challenge token and applies a validated password
// change. The confirmation check runs before the token is consumed so a
// mistyped form does not burn the single-use token.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	if req.NewPassword != req.ConfirmNewPassword {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "password confirmation does not match"))
		return
	}

	sessionID, err := c.Cookie(h.cookie.Name)
	if err != nil || sessionID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid or expired token"))
		return
	}

	ctx := c.Request.Context()

	state, err := h.tokens.Redeem(ctx, sessionID, req.Token)
	if err != nil {
		RespondWithMappedError(c, err, changePasswordErrorCases, http.StatusInternalServerError, "password change failed")
		return
	}

	if err := h.passwords.ChangePassword(ctx, state.Username, req.NewPassword, req.ConfirmNewPassword, state.Reason); err != nil {
		var policyErr *security.PasswordValidationError
		if errors.As(err, &policyErr) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, policyErr.Message))
			return
		}
		RespondWithMappedError(c, err, changePasswordErrorCases, http.StatusInternalServerError, "password change failed")
		return
	}

	if err := h.sessions.End(ctx, state.ID); err != nil {
		h.logger.Warn("end pending session", zap.Error(err))
	}
	h.clearCookie(c)

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed successfully"})
}

// Session reports the caller's authenticated session. The access guard has
// already rejected unauthenticated callers and attached the session state.
func (h *AuthHandler) Session(c *gin.Context) {
	state, ok := middleware.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	c.JSON(http.StatusOK, SessionStatusResponse{
		Authenticated: true,
		Username:      state.Username,
		CreatedAt:     state.CreatedAt,
	})
}

func (h *AuthHandler) setCookie(c *gin.Context, sessionID string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.Name, sessionID, int(ttl.Seconds()), "/", "", h.cookie.Secure, true)
}

func (h *AuthHandler) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}
