package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultSessionTTL             = 15 * time.Minute
	DefaultSessionCleanupInterval = 5 * time.Minute
	DefaultSessionCookieName      = "logingate.sid"
	DefaultPostgresMaxConns       = 10

	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

type Config struct {
	Environment string `toml:"environment"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// postgres
	PostgresHost     string `toml:"postgres_host"`
	PostgresPort     string `toml:"postgres_port"`
	PostgresDBName   string `toml:"postgres_db_name"`
	PostgresUser     string `toml:"postgres_user"`
	PostgresSSLMode  string `toml:"postgres_ssl_mode"`
	PostgresMaxConns int32  `toml:"postgres_max_conns"`
	RunMigrations    bool   `toml:"run_migrations"`

	// sessions
	SessionStore           string        `toml:"session_store"`
	SessionTTL             time.Duration `toml:"session_ttl"`
	SessionCleanupInterval time.Duration `toml:"session_cleanup_interval"`
	SessionCookieName      string        `toml:"session_cookie_name"`
	SessionCacheSizeMB     int           `toml:"session_cache_size_mb"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// frontend
	StaticDir      string   `toml:"static_dir"`
	ProtectedPaths []string `toml:"protected_paths"`
	AllowedOrigins []string `toml:"allowed_origins"`

	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// Load reads the TOML file at path and returns the validated config for env.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate fills in defaults and rejects configs the server cannot start with.
func (c *Config) Validate() error {
	if c.Port <= 0 {
		return errors.New("port not set")
	}
	if c.PostgresHost == "" || c.PostgresPort == "" || c.PostgresDBName == "" {
		return errors.New("postgres host, port and db name must be set")
	}

	if c.PostgresUser == "" {
		c.PostgresUser = "postgres"
	}
	if c.PostgresSSLMode == "" {
		c.PostgresSSLMode = "disable"
	}
	if c.PostgresMaxConns <= 0 {
		c.PostgresMaxConns = DefaultPostgresMaxConns
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = DefaultSessionTTL
	}
	if c.SessionCleanupInterval <= 0 {
		c.SessionCleanupInterval = DefaultSessionCleanupInterval
	}
	if c.SessionCookieName == "" {
		c.SessionCookieName = DefaultSessionCookieName
	}
	if c.SessionCacheSizeMB <= 0 {
		c.SessionCacheSizeMB = 16
	}

	switch c.SessionStore {
	case "":
		c.SessionStore = SessionStoreRedis
	case SessionStoreRedis, SessionStoreMemory:
	default:
		return fmt.Errorf("unknown session store: %s", c.SessionStore)
	}
	if c.SessionStore == SessionStoreRedis && (c.RedisHost == "" || c.RedisPort == "") {
		return errors.New("redis host and port must be set for the redis session store")
	}

	if c.ProtectedPaths == nil {
		c.ProtectedPaths = []string{"/mensaje"}
	}

	return nil
}

// IsProduction reports whether cookies must be marked secure.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(c.Environment) {
	case "prod", "production":
		return true
	default:
		return false
	}
}
