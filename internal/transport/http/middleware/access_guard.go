package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SalesUP-GmbH/leanx-erp-system/internal/core/domain"
)

// SessionResolver is the session behavior the guard depends on.
type SessionResolver interface {
	Get(ctx context.Context, id string) (*domain.SessionState, error)
	Touch(ctx context.Context, id string) error
}

// exemptSuffixes lists the route suffixes reachable without a session. Exact
// suffix match on the request path, everything else requires authentication.
var exemptSuffixes = []string{"/login", "/logout", "/change-password"}

// AccessGuard rejects unauthenticated requests with 401. Exempted routes pass
// through untouched; authenticated requests get their idle TTL refreshed and
// the resolved session attached to the request context.
func AccessGuard(sessions SessionResolver, cookieName string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, suffix := range exemptSuffixes {
			if strings.HasSuffix(path, suffix) {
				c.Next()
				return
			}
		}

		sessionID, err := c.Cookie(cookieName)
		if err != nil || sessionID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		state, err := sessions.Get(c.Request.Context(), sessionID)
		if err != nil || !state.IsAuthenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		if err := sessions.Touch(c.Request.Context(), sessionID); err != nil {
			logger.Warn("session touch failed", zap.Error(err))
		}

		c.Set(SessionKey, state)
		c.Next()
	}
}

// SessionFromContext returns the session state attached by the guard.
func SessionFromContext(c *gin.Context) (*domain.SessionState, bool) {
	value, exists := c.Get(SessionKey)
	if !exists {
		return nil, false
	}
	state, ok := value.(*domain.SessionState)
	return state, ok
}
