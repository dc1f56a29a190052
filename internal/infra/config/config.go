package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Session   SessionSettings   `mapstructure:"session"`
	Password  PasswordSettings  `mapstructure:"password"`
	Argon2    Argon2Settings    `mapstructure:"argon2"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the Redis connection backing sessions and rate limits.
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

// KafkaSettings configures the Kafka producer for security events.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// SessionSettings configures session lifecycle behavior. The idle timeout is
// applied at promotion time; the session store enforces expiry.
type SessionSettings struct {
	CookieName  string        `mapstructure:"cookie_name"`
	KeyPrefix   string        `mapstructure:"key_prefix"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// PendingTTL bounds the lifetime of a pending password-change session
	// and the temporary token it carries. It must not exceed IdleTimeout.
	PendingTTL   time.Duration `mapstructure:"pending_ttl"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
}

// PasswordSettings carries the password policy. Every value is validated at
// startup; a missing or malformed entry is fatal, never a per-request error.
type PasswordSettings struct {
	MinLength                      int `mapstructure:"min_length"`
	MaxLength                      int `mapstructure:"max_length"`
	RequireUppercase               bool `mapstructure:"require_uppercase"`
	RequireLowercase               bool `mapstructure:"require_lowercase"`
	RequireNumbers                 bool `mapstructure:"require_numbers"`
	RequireSpecialCharacters       bool `mapstructure:"require_special_characters"`
	HistorySize                    int `mapstructure:"history_size"`
	NumFailedAttemptsBeforeLockout int `mapstructure:"num_failed_attempts_before_lockout"`
	MinStrengthScore               int `mapstructure:"min_strength_score"`
}

// Argon2Settings configures Argon2id password hashing parameters.
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

// RateLimitSettings configures the sliding window applied to login attempts.
type RateLimitSettings struct {
	WindowDuration   time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts int           `mapstructure:"login_max_attempts"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("AUTH")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"kafka.brokers",
		"kafka.topic_prefix",
		"session.cookie_name",
		"session.key_prefix",
		"session.idle_timeout",
		"session.pending_ttl",
		"session.cookie_secure",
		"password.min_length",
		"password.max_length",
		"password.require_uppercase",
		"password.require_lowercase",
		"password.require_numbers",
		"password.require_special_characters",
		"password.history_size",
		"password.num_failed_attempts_before_lockout",
		"password.min_strength_score",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
		"rate_limit.window_duration",
		"rate_limit.login_max_attempts",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations that would leave the authentication core in
// an undefined state. Called once at startup; failures abort the process.
func (c *AppConfig) Validate() error {
	if c.Password.MinLength <= 0 {
		return fmt.Errorf("config: password.min_length must be positive, got %d", c.Password.MinLength)
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return fmt.Errorf("config: password.max_length (%d) must not be below password.min_length (%d)",
			c.Password.MaxLength, c.Password.MinLength)
	}
	if c.Password.HistorySize < 0 {
		return fmt.Errorf("config: password.history_size must not be negative, got %d", c.Password.HistorySize)
	}
	if c.Password.NumFailedAttemptsBeforeLockout <= 0 {
		return fmt.Errorf("config: password.num_failed_attempts_before_lockout must be positive, got %d",
			c.Password.NumFailedAttemptsBeforeLockout)
	}
	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("config: session.idle_timeout must be positive, got %s", c.Session.IdleTimeout)
	}
	if c.Session.PendingTTL <= 0 {
		return fmt.Errorf("config: session.pending_ttl must be positive, got %s", c.Session.PendingTTL)
	}
	if c.Session.PendingTTL > c.Session.IdleTimeout {
		return fmt.Errorf("config: session.pending_ttl (%s) must not exceed session.idle_timeout (%s)",
			c.Session.PendingTTL, c.Session.IdleTimeout)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "auth-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "auth")
	v.SetDefault("postgres.password", "auth_password")
	v.SetDefault("postgres.database", "auth")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "auth")

	v.SetDefault("session.cookie_name", "session_id")
	v.SetDefault("session.key_prefix", "auth:session")
	v.SetDefault("session.idle_timeout", "30m")
	v.SetDefault("session.pending_ttl", "15m")
	v.SetDefault("session.cookie_secure", true)

	v.SetDefault("password.min_length", 8)
	v.SetDefault("password.max_length", 128)
	v.SetDefault("password.require_uppercase", true)
	v.SetDefault("password.require_lowercase", true)
	v.SetDefault("password.require_numbers", true)
	v.SetDefault("password.require_special_characters", true)
	v.SetDefault("password.history_size", 5)
	v.SetDefault("password.num_failed_attempts_before_lockout", 5)
	v.SetDefault("password.min_strength_score", 0)

	v.SetDefault("argon2.memory", 65536)
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.login_max_attempts", 10)

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "auth-service")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "AUTH_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
