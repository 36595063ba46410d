// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// Config represents the full application configuration surface.
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Store     StoreConfig
	MongoDB   MongoDBConfig
	Postgres  PostgresConfig
	Reconcile ReconcileConfig
	Renderer  RendererConfig
	Reporting ReportingConfig
}

// AppConfig holds process-wide options.
type AppConfig struct {
	Env      string
	LogLevel string
}

// Development reports whether the process runs in development mode.
func (a AppConfig) Development() bool {
	return a.Env == "development"
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port           string
	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins []string
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Driver string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// PostgresConfig holds settings for PostgreSQL.
type PostgresConfig struct {
	URL      string
	MaxConns int
}

// ReconcileConfig holds settlement engine options.
type ReconcileConfig struct {
	// MissingSource is "fail" or "skip"
	MissingSource string
}

// RendererConfig points at the external PDF rendering service. Empty URL disables printing.
type RendererConfig struct {
	URL     string
	Timeout time.Duration
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	IntegrityCron string
	Timezone      string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are acceptable when configuration comes from the environment.
		_ = godotenv.Load()
	}

	cfg := &Config{
		App: AppConfig{
			Env:      getEnv("APP_ENV", "development"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:           getEnv("APP_PORT", "8080"),
			RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
			RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", DriverMemory),
		},
		MongoDB: MongoDBConfig{
			URI:    getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getEnv("MONGODB_DB_NAME", "coffeetrace"),
		},
		Postgres: PostgresConfig{
			URL:      os.Getenv("DATABASE_URL"),
			MaxConns: getEnvInt("DATABASE_MAX_CONNS", 10),
		},
		Reconcile: ReconcileConfig{
			MissingSource: getEnv("RECONCILE_MISSING_SOURCE", "fail"),
		},
		Renderer: RendererConfig{
			URL:     os.Getenv("RENDERER_URL"),
			Timeout: getEnvDuration("RENDERER_TIMEOUT", 15*time.Second),
		},
		Reporting: ReportingConfig{
			IntegrityCron: getEnv("INTEGRITY_CRON", "0 2 * * *"),
			Timezone:      getEnv("TIMEZONE", "America/Guatemala"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverMongo:
		if c.MongoDB.URI == "" || c.MongoDB.DBName == "" {
			return errors.New("MONGODB_URI and MONGODB_DB_NAME must be provided for the mongo driver")
		}
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return errors.New("DATABASE_URL must be provided for the postgres driver")
		}
	default:
		return fmt.Errorf("STORE_DRIVER %q is not supported", c.Store.Driver)
	}

	switch c.Reconcile.MissingSource {
	case "fail", "skip":
	default:
		return fmt.Errorf("RECONCILE_MISSING_SOURCE must be fail or skip, got %q", c.Reconcile.MissingSource)
	}

	if c.Server.RateLimitRPS <= 0 || c.Server.RateLimitBurst <= 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.Reporting.Timezone, err)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.ParseFloat(value, 64); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
