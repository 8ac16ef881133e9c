package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds the application configuration
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	ServerPort  int    `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL"   envDefault:"info"`

	JWTSecret      string        `env:"JWT_SECRET"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"30m"`
	BcryptCost     int           `env:"BCRYPT_COST"      envDefault:"10"`
	LoginRateLimit int           `env:"LOGIN_RATE_LIMIT" envDefault:"10"`

	StorageBackend    string        `env:"STORAGE_BACKEND"      envDefault:"memory"`
	DatabaseURL       string        `env:"DATABASE_URL"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS"    envDefault:"25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS"    envDefault:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	RedisURL          string        `env:"REDIS_URL"            envDefault:"redis://localhost:6379"`
	RunMigrations     bool          `env:"RUN_MIGRATIONS"       envDefault:"true"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:3000"`

	BatchFile       string `env:"BATCH_FILE"       envDefault:"data.json"`
	BatchCollection string `env:"BATCH_COLLECTION" envDefault:"documents"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment reports whether the service runs in the development environment
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// Validate checks cross-field constraints env tags cannot express
func (c *Config) Validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", c.ServerPort)
	}
	if c.JWTSecret == "" && !c.IsDevelopment() {
		return fmt.Errorf("JWT_SECRET is required outside development")
	}
	if c.LoginRateLimit <= 0 {
		return fmt.Errorf("invalid LOGIN_RATE_LIMIT: %d", c.LoginRateLimit)
	}
	switch c.StorageBackend {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (want memory, postgres or redis)", c.StorageBackend)
	}
	return nil
}
