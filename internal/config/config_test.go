// Package config provides configuration management for the todo API server.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoad_DefaultValues(t *testing.T) {
	// Arrange - Clear all environment variables
	clearEnvVars(t)

	// Act
	cfg, err := Load()

	// Assert
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	want := Config{
		ServerPort:      3000,
		LogLevel:        "info",
		ShutdownTimeout: 30 * time.Second,
		MetricsEnabled:  true,
		StoreBackend:    StoreBackendSQLite,
		DatabaseURL:     "todos.db",
		StoreTimeout:    5 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		AllowedOrigin:   "http://localhost:8000",
	}
	if *cfg != want {
		t.Errorf("Load() = %+v, want %+v", *cfg, want)
	}
}

func TestConfig_EveryFieldHasEnvTags(t *testing.T) {
	typ := reflect.TypeOf(Config{})
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.Tag.Get("env") == "" {
			t.Errorf("field %s has no env tag", field.Name)
		}
		if _, ok := field.Tag.Lookup("envDefault"); !ok {
			t.Errorf("field %s has no envDefault tag", field.Name)
		}
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(*testing.T, *Config)
	}{
		{
			name:    "custom server port",
			envVars: map[string]string{"APP_SERVER_PORT": "9090"},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.ServerPort != 9090 {
					t.Errorf("ServerPort = %d, want 9090", cfg.ServerPort)
				}
			},
		},
		{
			name:    "custom log level",
			envVars: map[string]string{"APP_LOG_LEVEL": "debug"},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.LogLevel != "debug" {
					t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
				}
			},
		},
		{
			name:    "custom shutdown timeout",
			envVars: map[string]string{"APP_SHUTDOWN_TIMEOUT": "60s"},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.ShutdownTimeout != 60*time.Second {
					t.Errorf("ShutdownTimeout = %v, want 60s", cfg.ShutdownTimeout)
				}
			},
		},
		{
			name:    "metrics disabled",
			envVars: map[string]string{"APP_METRICS_ENABLED": "false"},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.MetricsEnabled {
					t.Error("MetricsEnabled = true, want false")
				}
			},
		},
		{
			name: "memory backend",
			envVars: map[string]string{
				"APP_STORE_BACKEND": StoreBackendMemory,
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.StoreBackend != StoreBackendMemory {
					t.Errorf("StoreBackend = %s, want memory", cfg.StoreBackend)
				}
			},
		},
		{
			name: "database and pool settings",
			envVars: map[string]string{
				"DATABASE_URL":     "/var/lib/todo/todos.db",
				"APP_STORE_TIMEOUT":    "2s",
				"APP_DB_MAX_OPEN_CONNS":    "20",
				"APP_DB_MAX_IDLE_CONNS":    "20",
				"APP_DB_CONN_MAX_LIFETIME": "1h",
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.DatabaseURL != "/var/lib/todo/todos.db" {
					t.Errorf("DatabaseURL = %s", cfg.DatabaseURL)
				}
				if cfg.StoreTimeout != 2*time.Second {
					t.Errorf("StoreTimeout = %v, want 2s", cfg.StoreTimeout)
				}
				if cfg.MaxOpenConns != 20 || cfg.MaxIdleConns != 20 {
					t.Errorf("pool = %d/%d, want 20/20", cfg.MaxOpenConns, cfg.MaxIdleConns)
				}
				if cfg.ConnMaxLifetime != time.Hour {
					t.Errorf("ConnMaxLifetime = %v, want 1h", cfg.ConnMaxLifetime)
				}
			},
		},
		{
			name:    "custom allowed origin",
			envVars: map[string]string{"APP_CORS_ALLOWED_ORIGIN": "https://todo.example.com"},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.AllowedOrigin != "https://todo.example.com" {
					t.Errorf("AllowedOrigin = %s", cfg.AllowedOrigin)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			clearEnvVars(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			// Act
			cfg, err := Load()

			// Assert
			if err != nil {
				t.Fatalf("Load() returned unexpected error: %v", err)
			}
			tt.validate(t, cfg)
		})
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr error
	}{
		{"port zero", map[string]string{"APP_SERVER_PORT": "0"}, ErrInvalidServerPort},
		{"port too high", map[string]string{"APP_SERVER_PORT": "70000"}, ErrInvalidServerPort},
		{"bad log level", map[string]string{"APP_LOG_LEVEL": "verbose"}, ErrInvalidLogLevel},
		{"negative shutdown timeout", map[string]string{"APP_SHUTDOWN_TIMEOUT": "-1s"}, ErrInvalidShutdownTimeout},
		{"unknown backend", map[string]string{"APP_STORE_BACKEND": "postgres"}, ErrInvalidStoreBackend},
		{"zero store timeout", map[string]string{"APP_STORE_TIMEOUT": "0s"}, ErrInvalidStoreTimeout},
		{"zero max open", map[string]string{"APP_DB_MAX_OPEN_CONNS": "0"}, ErrInvalidMaxOpenConns},
		{"idle above open", map[string]string{"APP_DB_MAX_OPEN_CONNS": "2", "APP_DB_MAX_IDLE_CONNS": "3"}, ErrInvalidMaxIdleConns},
		{"negative lifetime", map[string]string{"APP_DB_CONN_MAX_LIFETIME": "-1m"}, ErrInvalidConnMaxLifetime},
		{"origin with path", map[string]string{"APP_CORS_ALLOWED_ORIGIN": "http://localhost:8000/app"}, ErrInvalidAllowedOrigin},
		{"origin without scheme", map[string]string{"APP_CORS_ALLOWED_ORIGIN": "localhost:8000"}, ErrInvalidAllowedOrigin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			clearEnvVars(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			// Act
			_, err := Load()

			// Assert
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_ParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
	}{
		{"non-numeric port", map[string]string{"APP_SERVER_PORT": "abc"}},
		{"bad duration", map[string]string{"APP_SHUTDOWN_TIMEOUT": "soon"}},
		{"bad bool", map[string]string{"APP_METRICS_ENABLED": "maybe"}},
		{"bad pool size", map[string]string{"APP_DB_MAX_OPEN_CONNS": "many"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			if _, err := Load(); err == nil {
				t.Error("Load() expected parse error, got nil")
			}
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	// Arrange
	clearEnvVars(t)
	path := filepath.Join(t.TempDir(), "test.env")
	content := "DATABASE_URL=/tmp/from-file.db\nAPP_SERVER_PORT=4000\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv(envFileVar, path)
	t.Setenv("APP_SERVER_PORT", "5000")

	// Act
	cfg, err := Load()

	// Assert
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DatabaseURL != "/tmp/from-file.db" {
		t.Errorf("DatabaseURL = %s, want value from env file", cfg.DatabaseURL)
	}
	if cfg.ServerPort != 5000 {
		t.Errorf("ServerPort = %d, want 5000 (environment wins over file)", cfg.ServerPort)
	}
}

func TestLoad_EnvFileUnreadable(t *testing.T) {
	clearEnvVars(t)
	t.Setenv(envFileVar, t.TempDir())

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for a directory env file")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			ServerPort:      3000,
			LogLevel:        "info",
			ShutdownTimeout: time.Second,
			StoreBackend:    StoreBackendSQLite,
			DatabaseURL:     "todos.db",
			StoreTimeout:    time.Second,
			MaxOpenConns:    1,
			MaxIdleConns:    0,
			AllowedOrigin:   "http://localhost:8000",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(_ *Config) {}, nil},
		{"memory backend ignores database url", func(c *Config) {
			c.StoreBackend = StoreBackendMemory
			c.DatabaseURL = ""
		}, nil},
		{"sqlite requires database url", func(c *Config) { c.DatabaseURL = "" }, ErrDatabaseURLRequired},
		{"https origin with port", func(c *Config) { c.AllowedOrigin = "https://example.com:8443" }, nil},
		{"origin with query", func(c *Config) { c.AllowedOrigin = "http://example.com?x=1" }, ErrInvalidAllowedOrigin},
		{"origin with credentials", func(c *Config) { c.AllowedOrigin = "http://u:p@example.com" }, ErrInvalidAllowedOrigin},
		{"empty origin", func(c *Config) { c.AllowedOrigin = "" }, ErrInvalidAllowedOrigin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Address(t *testing.T) {
	tests := []struct {
		name string
		port int
		want string
	}{
		{"default port", 3000, ":3000"},
		{"custom port", 9090, ":9090"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{ServerPort: tt.port}
			if got := cfg.Address(); got != tt.want {
				t.Errorf("Address() = %s, want %s", got, tt.want)
			}
		})
	}
}

// clearEnvVars unsets every variable named by a Config env tag for the
// duration of the test and points the env file at a path that does not exist.
func clearEnvVars(t *testing.T) {
	t.Helper()
	typ := reflect.TypeOf(Config{})
	for i := 0; i < typ.NumField(); i++ {
		env := typ.Field(i).Tag.Get("env")
		t.Setenv(env, "")
		if err := os.Unsetenv(env); err != nil {
			t.Fatalf("failed to unset env var %s: %v", env, err)
		}
	}
	t.Setenv(envFileVar, filepath.Join(t.TempDir(), "missing.env"))
}
