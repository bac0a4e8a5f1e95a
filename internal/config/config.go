// Package config provides configuration management for the todo API server.
//
// Settings come from the environment, optionally seeded from an env file
// named by APP_ENV_FILE (default .env). Defaults live in the envDefault tags
// of Config. DATABASE_URL names the SQLite database file, for example
// /var/lib/todo/todos.db; a Postgres-style connection string is treated as a
// file name.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Supported store backends.
const (
	StoreBackendSQLite = "sqlite"
	StoreBackendMemory = "memory"
)

// Env file lookup. The file is optional.
const (
	envFileVar     = "APP_ENV_FILE"
	defaultEnvFile = ".env"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int           `env:"APP_SERVER_PORT"      envDefault:"3000"`
	LogLevel        string        `env:"APP_LOG_LEVEL"        envDefault:"info"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	MetricsEnabled  bool          `env:"APP_METRICS_ENABLED"  envDefault:"true"`

	// Store settings. DatabaseURL is a SQLite database file path, not a
	// connection URL. It is ignored by the memory backend.
	StoreBackend    string        `env:"APP_STORE_BACKEND"        envDefault:"sqlite"`
	DatabaseURL     string        `env:"DATABASE_URL"             envDefault:"todos.db"`
	StoreTimeout    time.Duration `env:"APP_STORE_TIMEOUT"        envDefault:"5s"`
	MaxOpenConns    int           `env:"APP_DB_MAX_OPEN_CONNS"    envDefault:"10"`
	MaxIdleConns    int           `env:"APP_DB_MAX_IDLE_CONNS"    envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"APP_DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	// CORS: the single browser origin allowed to call the API.
	AllowedOrigin string `env:"APP_CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:8000"`
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidStoreBackend    = errors.New("store backend must be one of: sqlite, memory")
	ErrDatabaseURLRequired    = errors.New("database URL must be set when store backend is sqlite")
	ErrInvalidStoreTimeout    = errors.New("store timeout must be positive")
	ErrInvalidMaxOpenConns    = errors.New("max open connections must be positive")
	ErrInvalidMaxIdleConns    = errors.New("max idle connections must be between 0 and max open connections")
	ErrInvalidConnMaxLifetime = errors.New("connection max lifetime cannot be negative")
	ErrInvalidAllowedOrigin   = errors.New("allowed origin must be an http or https origin without a path")
)

// Load reads configuration from an optional env file and the process
// environment. Variables already set in the environment win over the file.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadEnvFile loads APP_ENV_FILE (default .env) when it exists.
func loadEnvFile() error {
	path := defaultEnvFile
	if val := os.Getenv(envFileVar); val != "" {
		path = val
	}

	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}

	return nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	return c.validateOrigin()
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}

// validateStore validates store and connection pool configuration.
func (c *Config) validateStore() error {
	switch c.StoreBackend {
	case StoreBackendSQLite:
		if c.DatabaseURL == "" {
			return ErrDatabaseURLRequired
		}
	case StoreBackendMemory:
	default:
		return ErrInvalidStoreBackend
	}

	if c.StoreTimeout <= 0 {
		return ErrInvalidStoreTimeout
	}

	if c.MaxOpenConns < 1 {
		return ErrInvalidMaxOpenConns
	}

	if c.MaxIdleConns < 0 || c.MaxIdleConns > c.MaxOpenConns {
		return ErrInvalidMaxIdleConns
	}

	if c.ConnMaxLifetime < 0 {
		return ErrInvalidConnMaxLifetime
	}

	return nil
}

// validateOrigin checks that AllowedOrigin is a bare scheme://host[:port].
func (c *Config) validateOrigin() error {
	u, err := url.Parse(c.AllowedOrigin)
	if err != nil {
		return ErrInvalidAllowedOrigin
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidAllowedOrigin
	}

	if u.Host == "" || u.User != nil || u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		return ErrInvalidAllowedOrigin
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}
