package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/SalesUP-GmbH/leanx-erp-system/internal/core/port"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/infra/config"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/infra/database"
	kafkainfra "github.com/SalesUP-GmbH/leanx-erp-system/internal/infra/kafka"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/infra/logger"
	redisinfra "github.com/SalesUP-GmbH/leanx-erp-system/internal/infra/redis"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/infra/security"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/infra/telemetry"
	postgresrepo "github.com/SalesUP-GmbH/leanx-erp-system/internal/repository/postgres"
	redisrepo "github.com/SalesUP-GmbH/leanx-erp-system/internal/repository/redis"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/transport/http/middleware"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/transport/http/routes"
	"github.com/SalesUP-GmbH/leanx-erp-system/internal/usecase"
)

// Application bundles the wired dependencies and the HTTP server lifecycle.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	tracer *telemetry.TracerProvider
}

// New wires every dependency from configuration. Construction fails fast; a
// service with a broken password policy or unreachable store never starts.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	hasher, err := security.NewHasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	validator := security.NewPolicyValidator(security.PolicyConfig{
		MinLength:                cfg.Password.MinLength,
		MaxLength:                cfg.Password.MaxLength,
		RequireUppercase:         cfg.Password.RequireUppercase,
		RequireLowercase:         cfg.Password.RequireLowercase,
		RequireNumbers:           cfg.Password.RequireNumbers,
		RequireSpecialCharacters: cfg.Password.RequireSpecialCharacters,
		MinStrengthScore:         cfg.Password.MinStrengthScore,
	})

	accounts := postgresrepo.NewAccountRepository(pool)
	sessionStore := redisrepo.NewSessionRepository(redisClient.Client(), cfg.Session.KeyPrefix)

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "auth:rate-limit",
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	authService := usecase.NewAuthService(accounts, hasher, eventPublisher, cfg.Password.NumFailedAttemptsBeforeLockout, log)
	sessionService := usecase.NewSessionService(sessionStore, cfg.Session.IdleTimeout, log)
	tokenService := usecase.NewTokenService(sessionStore, cfg.Session.PendingTTL, log)
	passwordService := usecase.NewPasswordService(accounts, validator, hasher, eventPublisher, cfg.Password.HistorySize, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     metrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:      authService,
			Passwords: passwordService,
			Sessions:  sessionService,
			Tokens:    tokenService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		tracer: tracer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			if err := a.tracer.Shutdown(context.Background()); err != nil {
				a.logger.Warn("tracer shutdown", zap.Error(err))
			}
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
