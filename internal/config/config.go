package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full service configuration, loaded once at startup and
// passed by reference into the components that need it.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Query    QueryConfig    `mapstructure:"query"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	CORSOrigin string `mapstructure:"corsorigin"`
}

// DatabaseConfig holds the SQLite file location.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// QueryConfig holds execution limits for the query pipeline.
type QueryConfig struct {
	TimeoutSeconds int `mapstructure:"timeoutseconds"`
	BatchSize      int `mapstructure:"batchsize"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Timeout returns the query execution deadline as a duration.
func (q QueryConfig) Timeout() time.Duration {
	return time.Duration(q.TimeoutSeconds) * time.Second
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:       8000,
			CORSOrigin: "*",
		},
		Database: DatabaseConfig{
			Path: "/data/database.db",
		},
		Query: QueryConfig{
			TimeoutSeconds: 300,
			BatchSize:      10000,
		},
		Log: LogConfig{
			Level:  "INFO",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional .env file, and
// environment variables with the given prefix (e.g. "KARANG_"). The legacy
// SQLITE_DB_PATH and PORT variables are honored for compatibility with older
// deployments.
func Load(prefix string) (*Config, error) {
	v := viper.New()

	// 1. Load from .env file. The file is optional; a present but
	// malformed one is a misconfiguration and must fail loudly.
	v.SetConfigFile(".env")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	// 2. Load from environment variables.
	// KARANG_QUERY_BATCHSIZE -> query.batchsize
	prefixUpper := strings.ToUpper(prefix)
	for _, envStr := range os.Environ() {
		pair := strings.SplitN(envStr, "=", 2)
		key, value := pair[0], pair[1]

		if strings.HasPrefix(key, prefixUpper) {
			propKey := strings.TrimPrefix(key, prefixUpper)
			propKey = strings.ToLower(strings.ReplaceAll(propKey, "_", "."))
			propKey = strings.TrimPrefix(propKey, ".")

			v.Set(propKey, value)
		}
	}

	if path := os.Getenv("SQLITE_DB_PATH"); path != "" {
		v.Set("database.path", path)
	}
	if port := os.Getenv("PORT"); port != "" {
		v.Set("server.port", port)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Query.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("query timeout must be positive, got %d", cfg.Query.TimeoutSeconds)
	}
	if cfg.Query.BatchSize <= 0 {
		return nil, fmt.Errorf("query batch size must be positive, got %d", cfg.Query.BatchSize)
	}

	return cfg, nil
}
