// Package config loads server and CLI settings from a file and USERADMIN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Session  SessionConfig  `mapstructure:"session"`
	Security SecurityConfig `mapstructure:"security"`
	Limiter  LimiterConfig  `mapstructure:"limiter"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Blob     BlobConfig     `mapstructure:"blob"`
	OTel     OTelConfig     `mapstructure:"otel"`
	Audit    AuditConfig    `mapstructure:"audit"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"` // development, production
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	BaseURL string `mapstructure:"base_url"` // used in reset links
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SessionConfig controls server-side sessions.
type SessionConfig struct {
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	CookieName  string        `mapstructure:"cookie_name"`
	Secure      bool          `mapstructure:"secure"`
}

// SecurityConfig holds keys and token lifetimes.
type SecurityConfig struct {
	CookieKey     string        `mapstructure:"cookie_key"`
	RememberMeTTL time.Duration `mapstructure:"remember_me_ttl"`
	ResetTokenTTL time.Duration `mapstructure:"reset_token_ttl"`
}

// LimiterConfig configures login throttling. MaxFails 0 disables it.
type LimiterConfig struct {
	Window   time.Duration `mapstructure:"window"`
	MaxFails int           `mapstructure:"max_fails"`
	BlockFor time.Duration `mapstructure:"block_for"`
}

// SMTPConfig configures outbound mail. An empty Host logs reset links instead.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
}

// BlobConfig selects attachment storage.
type BlobConfig struct {
	Driver      string `mapstructure:"driver"` // local | s3
	LocalDir    string `mapstructure:"local_dir"`
	S3Bucket    string `mapstructure:"s3_bucket"`
	S3Region    string `mapstructure:"s3_region"`
	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	ServiceName   string  `mapstructure:"service_name"`
	CollectorAddr string  `mapstructure:"collector_addr"`
	SampleRatio   float64 `mapstructure:"sample_ratio"`
}

// AuditConfig holds audit log defaults.
type AuditConfig struct {
	DefaultRangeDays int `mapstructure:"default_range_days"`
	PurgeKeepDays    int `mapstructure:"purge_keep_days"`
}

// EnvPrefix prefixes every environment override, e.g. USERADMIN_DATABASE_DSN.
const EnvPrefix = "USERADMIN"

// Load reads path (optional, any format viper understands), applies env overrides and validates.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "useradmin")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.base_url", "http://localhost:8080")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("server.max_upload_bytes", 5<<20)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("session.idle_timeout", "20m")
	v.SetDefault("session.cookie_name", "useradmin_session")
	v.SetDefault("session.secure", false)

	v.SetDefault("security.cookie_key", "")
	v.SetDefault("security.remember_me_ttl", "720h")
	v.SetDefault("security.reset_token_ttl", "1h")

	v.SetDefault("limiter.window", "15m")
	v.SetDefault("limiter.max_fails", 5)
	v.SetDefault("limiter.block_for", "15m")

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "noreply@localhost")
	v.SetDefault("smtp.from_name", "User Admin")

	v.SetDefault("blob.driver", "local")
	v.SetDefault("blob.local_dir", "uploads")
	v.SetDefault("blob.s3_bucket", "")
	v.SetDefault("blob.s3_region", "us-east-1")
	v.SetDefault("blob.s3_endpoint", "")
	v.SetDefault("blob.s3_access_key", "")
	v.SetDefault("blob.s3_secret_key", "")

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.service_name", "useradmin")
	v.SetDefault("otel.collector_addr", "localhost:4317")
	v.SetDefault("otel.sample_ratio", 1.0)

	v.SetDefault("audit.default_range_days", 7)
	v.SetDefault("audit.purge_keep_days", 30)
}

// MinCookieKeyLen is the shortest accepted security.cookie_key.
const MinCookieKeyLen = 32

// Validate validates the configuration.
func (c *Config) Validate() error {
	var problems []error
	if c.Database.DSN == "" {
		problems = append(problems, errors.New("database.dsn is required"))
	}
	if len(c.Security.CookieKey) < MinCookieKeyLen {
		problems = append(problems, fmt.Errorf("security.cookie_key must be at least %d bytes", MinCookieKeyLen))
	}
	if c.Session.IdleTimeout <= 0 {
		problems = append(problems, errors.New("session.idle_timeout must be positive"))
	}
	switch c.Blob.Driver {
	case "local":
	case "s3":
		if c.Blob.S3Bucket == "" {
			problems = append(problems, errors.New("blob.s3_bucket is required for the s3 driver"))
		}
	default:
		problems = append(problems, fmt.Errorf("unknown blob.driver %q", c.Blob.Driver))
	}
	if c.Audit.DefaultRangeDays < 1 || c.Audit.PurgeKeepDays < 1 {
		problems = append(problems, errors.New("audit day counts must be at least 1"))
	}
	if c.SMTP.Host == "" && !c.LogMailAllowed() {
		problems = append(problems, errors.New("smtp.host is required when app.env is production"))
	}
	return errors.Join(problems...)
}

// LogMailAllowed reports whether reset links may be written to the log instead of mailed.
func (c *Config) LogMailAllowed() bool {
	return c.App.Debug || c.App.Env != "production"
}
