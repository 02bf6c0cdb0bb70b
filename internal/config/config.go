// Package config provides configuration management for PO Approvals.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (DATABASE_URL, LEGACY_DSN, OUTBOX_BATCH_SIZE, ...)
// 3. Default values
//
// Import Path: github.com/ppockey/po-approvals/internal/config
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Legacy   LegacyConfig   `mapstructure:"legacy"`
	Outbox   OutboxConfig   `mapstructure:"outbox"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Decision DecisionConfig `mapstructure:"decision"`
	Log      LogConfig      `mapstructure:"log"`
	River    RiverConfig    `mapstructure:"river"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// CORS. A "*" origin is ignored unless UnsafeAllowAllOrigins is set.
	AllowedOrigins        []string `mapstructure:"allowed_origins"`
	AllowCredentials      bool     `mapstructure:"allow_credentials"`
	UnsafeAllowAllOrigins bool     `mapstructure:"unsafe_allow_all_origins"`
}

// DatabaseConfig contains PostgreSQL connection settings. The pool is shared
// by the repositories and River.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`

	// AutoMigrate applies the goose and River migrations on startup.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
// Priority: DATABASE_URL > constructed from individual fields.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslmode,
	)
}

// LegacyConfig points at PRMS.
type LegacyConfig struct {
	// Enabled false swaps in a writer that only logs and disables extraction.
	Enabled bool `mapstructure:"enabled"`
	// Driver is a database/sql driver name: "odbc" in production (build tag
	// odbc), "sqlite" for local runs.
	Driver          string  `mapstructure:"driver"`
	DSN             string  `mapstructure:"dsn"`
	Library         string  `mapstructure:"library"`
	MaxOpenConns    int     `mapstructure:"max_open_conns"`
	ClaimsPerSecond float64 `mapstructure:"claims_per_second"`
}

// OutboxConfig tunes the outbox processor.
type OutboxConfig struct {
	BatchSize   int           `mapstructure:"batch_size"`
	Interval    time.Duration `mapstructure:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// ExtractConfig schedules the legacy extract pass.
type ExtractConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// DecisionConfig tunes approve/deny.
type DecisionConfig struct {
	// MaxRetries bounds the serializable transaction attempts.
	MaxRetries uint `mapstructure:"max_retries"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// RiverConfig contains River Queue settings.
type RiverConfig struct {
	MaxWorkers                  int           `mapstructure:"max_workers"`
	CompletedJobRetentionPeriod time.Duration `mapstructure:"completed_job_retention_period"`
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	GeneralPoolSize int `mapstructure:"general_pool_size"`
	NotifyPoolSize  int `mapstructure:"notify_pool_size"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/po-approvals")

	// No prefix: database.max_conns -> DATABASE_MAX_CONNS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if c.Outbox.BatchSize < 1 || c.Outbox.BatchSize > 50 {
		return fmt.Errorf("outbox.batch_size must be between 1 and 50, got %d", c.Outbox.BatchSize)
	}
	if c.Outbox.MaxAttempts < 0 {
		return fmt.Errorf("outbox.max_attempts must not be negative")
	}
	if c.Decision.MaxRetries == 0 {
		return fmt.Errorf("decision.max_retries must be at least 1")
	}
	if c.Legacy.Enabled {
		if strings.TrimSpace(c.Legacy.DSN) == "" {
			return fmt.Errorf("legacy.dsn is required when legacy.enabled is true")
		}
		if strings.TrimSpace(c.Legacy.Driver) == "" {
			return fmt.Errorf("legacy.driver is required when legacy.enabled is true")
		}
	}
	if c.Legacy.ClaimsPerSecond < 0 {
		return fmt.Errorf("legacy.claims_per_second must not be negative")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.allow_credentials", true)
	v.SetDefault("server.unsafe_allow_all_origins", false)

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "po_approvals")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "po_approvals")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "10m")
	v.SetDefault("database.auto_migrate", false)

	// Legacy (PRMS)
	v.SetDefault("legacy.enabled", false)
	v.SetDefault("legacy.driver", "odbc")
	v.SetDefault("legacy.dsn", "")
	v.SetDefault("legacy.library", "CORP400D.GPIMI701")
	v.SetDefault("legacy.max_open_conns", 4)
	v.SetDefault("legacy.claims_per_second", 10)

	// Outbox
	v.SetDefault("outbox.batch_size", 25)
	v.SetDefault("outbox.interval", "1m")
	v.SetDefault("outbox.max_attempts", 10)

	// Extract
	v.SetDefault("extract.interval", "5m")

	// Decision
	v.SetDefault("decision.max_retries", 5)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// River
	v.SetDefault("river.max_workers", 4)
	v.SetDefault("river.completed_job_retention_period", "24h")

	// Worker pools
	v.SetDefault("worker.general_pool_size", 8)
	v.SetDefault("worker.notify_pool_size", 32)
}
