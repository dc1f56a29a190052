package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/SalesUP-GmbH/leanx-erp-system/internal/infra/config"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/transport/http/handlers"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/transport/http/middleware"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth      *usecase.AuthService
	Passwords *usecase.PasswordService
	Sessions  *usecase.SessionService
	Tokens    *usecase.TokenService
}

// DatabaseChecker exposes readiness behavior for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behavior for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Metrics     *middleware.HTTPMetrics
	Database    DatabaseChecker
	Cache       CacheChecker
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	healthChecks := make([]handlers.ReadinessCheck, 0, 2)
	if deps.Database != nil {
		healthChecks = append(healthChecks, handlers.ReadinessCheck{Name: "database", Check: deps.Database.Ping})
	}
	if deps.Cache != nil {
		healthChecks = append(healthChecks, handlers.ReadinessCheck{Name: "redis", Check: deps.Cache.HealthCheck})
	}

	healthHandler := handlers.NewHealthHandler(healthChecks...)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	cookie := handlers.CookieConfig{
		Name:        deps.Config.Session.CookieName,
		Secure:      deps.Config.Session.CookieSecure,
		IdleTimeout: deps.Config.Session.IdleTimeout,
		PendingTTL:  deps.Config.Session.PendingTTL,
	}

	authHandler := handlers.NewAuthHandler(
		deps.Services.Auth,
		deps.Services.Passwords,
		deps.Services.Sessions,
		deps.Services.Tokens,
		cookie,
		deps.Logger,
	)

	api := r.Group("/api")
	api.Use(middleware.AccessGuard(deps.Services.Sessions, cookie.Name, deps.Logger))
	{
		authGroup := api.Group("/auth")

		loginHandlers := append(buildLoginMiddlewares(deps), authHandler.Login)
		authGroup.POST("/login", loginHandlers...)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.POST("/change-password", authHandler.ChangePassword)
		authGroup.GET("/session", authHandler.Session)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.NewErrorResponse(c, "resource not found"))
	})

	return r
}

func buildLoginMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.LoginMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       "auth_login_ip",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
