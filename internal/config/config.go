package config

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/utafrali/GameStoreGo/internal/collection"
	pkgconfig "github.com/utafrali/GameStoreGo/pkg/config"
)

// Snapshot drivers.
const (
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// FileEnv names the optional TOML file layered under the environment.
const FileEnv = "STOREFRONT_CONFIG"

// Config holds all configuration for the storefront.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8090"`

	// Backend
	BackendURL        string `env:"BACKEND_URL" envDefault:"http://localhost:8080/api"`
	BackendTimeout    int    `env:"BACKEND_TIMEOUT_SECONDS" envDefault:"10"`
	BackendMaxRetries int    `env:"BACKEND_MAX_RETRIES" envDefault:"2"`

	// Circuit breaker
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Snapshot persistence
	SnapshotDriver   string `env:"SNAPSHOT_DRIVER" envDefault:"sqlite"`
	SnapshotTTLHours int    `env:"SNAPSHOT_TTL_HOURS" envDefault:"168"`
	SQLitePath       string `env:"SQLITE_PATH" envDefault:"data/storefront.db"`
	RedisHost        string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort        int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass        string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB          int    `env:"REDIS_DB" envDefault:"0"`

	// Session
	SessionFile string `env:"SESSION_FILE" envDefault:"~/.config/gamestore/session.toml"`

	// Collections
	CartFallbackPrice    float64 `env:"CART_FALLBACK_PRICE" envDefault:"59.99"`
	ClearPolicy          string  `env:"CLEAR_POLICY" envDefault:"strict"`
	MigrateGuestOnSignIn bool    `env:"MIGRATE_GUEST_ON_SIGNIN" envDefault:"false"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	clearPolicy collection.ClearPolicy
}

// Load reads configuration from the TOML file named by STOREFRONT_CONFIG, if
// any, overridden by environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadWithFile(cfg, os.Getenv(FileEnv)); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute http(s) URL, got %q", c.BackendURL)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT_SECONDS must be positive, got %d", c.BackendTimeout)
	}
	if c.BackendMaxRetries < 0 {
		return fmt.Errorf("BACKEND_MAX_RETRIES must not be negative, got %d", c.BackendMaxRetries)
	}

	c.SnapshotDriver = strings.ToLower(strings.TrimSpace(c.SnapshotDriver))
	switch c.SnapshotDriver {
	case DriverRedis, DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required when SNAPSHOT_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("SNAPSHOT_DRIVER must be one of redis, sqlite, memory, got %q", c.SnapshotDriver)
	}
	if c.SnapshotTTLHours < 0 {
		return fmt.Errorf("SNAPSHOT_TTL_HOURS must not be negative, got %d", c.SnapshotTTLHours)
	}

	if c.CartFallbackPrice <= 0 || math.IsNaN(c.CartFallbackPrice) || math.IsInf(c.CartFallbackPrice, 0) {
		return fmt.Errorf("CART_FALLBACK_PRICE must be a positive number, got %v", c.CartFallbackPrice)
	}
	policy, err := collection.ParseClearPolicy(c.ClearPolicy)
	if err != nil {
		return fmt.Errorf("CLEAR_POLICY: %w", err)
	}
	c.clearPolicy = policy

	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	if c.CBFailureRatio <= 0 || c.CBFailureRatio > 1.0 {
		return fmt.Errorf("CB_FAILURE_RATIO must be in (0.0, 1.0], got %f", c.CBFailureRatio)
	}
	return nil
}

// Collection returns the cache settings.
func (c *Config) Collection() collection.Config {
	return collection.Config{FallbackPrice: c.CartFallbackPrice, ClearPolicy: c.clearPolicy}
}

// SnapshotTTL returns how long redis snapshots live. Zero means no expiry.
func (c *Config) SnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLHours) * time.Hour
}
