// Package config loads the triage engine's runtime configuration from
// environment variables (with an optional YAML overlay), following the
// dotenv + envdecode + YAML layering the wider service stack uses.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `json:"host" env:"SERVER_HOST"`
	Port int    `json:"port" env:"SERVER_PORT"`
}

// DatabaseConfig controls the Postgres data store.
type DatabaseConfig struct {
	Driver          string `json:"driver" env:"DATABASE_DRIVER"`
	DSN             string `json:"dsn" env:"DATABASE_DSN"`
	Host            string `json:"host" env:"DATABASE_HOST"`
	Port            int    `json:"port" env:"DATABASE_PORT"`
	User            string `json:"user" env:"DATABASE_USER"`
	Password        string `json:"password" env:"DATABASE_PASSWORD"`
	Name            string `json:"name" env:"DATABASE_NAME"`
	SSLMode         string `json:"sslmode" env:"DATABASE_SSLMODE"`
	MaxOpenConns    int    `json:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `json:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `json:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME"`
}

// RedisConfig controls the cache/limiter/OTP backend.
type RedisConfig struct {
	Addr     string `json:"addr" env:"REDIS_ADDR"`
	Password string `json:"password" env:"REDIS_PASSWORD"`
	DB       int    `json:"db" env:"REDIS_DB"`
}

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level      string `json:"level" env:"LOG_LEVEL"`
	Format     string `json:"format" env:"LOG_FORMAT"`
	Output     string `json:"output" env:"LOG_OUTPUT"`
	FilePrefix string `json:"file_prefix" env:"LOG_FILE_PREFIX"`
}

// AuthConfig controls HTTP API authentication and role extraction.
type AuthConfig struct {
	JWTSecret  string `json:"jwt_secret" env:"AUTH_JWT_SECRET"`
	RoleClaim  string `json:"role_claim" env:"AUTH_ROLE_CLAIM"`
	LeadRole   string `json:"lead_role" env:"AUTH_LEAD_ROLE"`
}

// RateLimitConfig controls the fixed-window limiter in front of /triage.
type RateLimitConfig struct {
	WindowMS    int `json:"window_ms" env:"RATE_LIMIT_WINDOW_MS"`
	MaxRequests int `json:"max_requests" env:"RATE_LIMIT_MAX_REQUESTS"`
}

// EngineConfig controls orchestration timeouts and the circuit breaker.
type EngineConfig struct {
	AgentTimeoutMS       int `json:"agent_timeout_ms" env:"AGENT_TIMEOUT_MS"`
	RunTimeoutMS         int `json:"run_timeout_ms" env:"RUN_TIMEOUT_MS"`
	CircuitFailThreshold int `json:"circuit_fail_threshold" env:"CIRCUIT_FAIL_THRESHOLD"`
	CircuitResetMS       int `json:"circuit_reset_ms" env:"CIRCUIT_RESET_MS"`
}

// ActionConfig controls OTP and idempotency-key lifetimes for the Action Executor.
type ActionConfig struct {
	OTPTTLMS         int `json:"otp_ttl_ms" env:"OTP_TTL_MS"`
	IdempotencyTTLMS int `json:"idempotency_ttl_ms" env:"IDEMPOTENCY_TTL_MS"`
}

// ComplianceConfig controls policy evaluation inputs that are environmental
// rather than data-driven, e.g. what counts as "business hours".
type ComplianceConfig struct {
	BusinessHoursTZ    string `json:"business_hours_tz" env:"COMPLIANCE_BUSINESS_HOURS_TZ"`
	BusinessHoursStart int    `json:"business_hours_start" env:"COMPLIANCE_BUSINESS_HOURS_START"`
	BusinessHoursEnd   int    `json:"business_hours_end" env:"COMPLIANCE_BUSINESS_HOURS_END"`
}

// Location resolves the configured business-hours timezone, falling back to
// UTC if the name is empty or unknown (spec.md Open Question #2).
func (c ComplianceConfig) Location() *time.Location {
	if c.BusinessHoursTZ == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.BusinessHoursTZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Config is the top-level configuration structure.
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Redis      RedisConfig      `json:"redis"`
	Logging    LoggingConfig    `json:"logging"`
	Auth       AuthConfig       `json:"auth"`
	RateLimit  RateLimitConfig  `json:"rate_limit"`
	Engine     EngineConfig     `json:"engine"`
	Action     ActionConfig     `json:"action"`
	Compliance ComplianceConfig `json:"compliance"`
}

// New returns a configuration populated with the defaults from spec.md §6.
func New() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: DatabaseConfig{
			Driver:          "postgres",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			FilePrefix: "triage",
		},
		Auth: AuthConfig{
			RoleClaim: "role",
			LeadRole:  "lead",
		},
		RateLimit: RateLimitConfig{
			WindowMS:    60_000,
			MaxRequests: 300,
		},
		Engine: EngineConfig{
			AgentTimeoutMS:       1_000,
			RunTimeoutMS:         5_000,
			CircuitFailThreshold: 3,
			CircuitResetMS:       30_000,
		},
		Action: ActionConfig{
			OTPTTLMS:         300_000,
			IdempotencyTTLMS: 3_600_000,
		},
		Compliance: ComplianceConfig{
			BusinessHoursTZ:    "UTC",
			BusinessHoursStart: 9,
			BusinessHoursEnd:   17,
		},
	}
}

// ConnectionString builds a PostgreSQL connection string from host parameters.
func (c DatabaseConfig) ConnectionString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Load loads configuration from an optional YAML file and environment
// variables, environment taking precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	} else {
		_ = loadFromFile("configs/config.yaml", cfg)
	}

	if err := envdecode.Decode(cfg); err != nil {
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	applyDatabaseURLOverride(cfg)

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	expanded, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyDatabaseURLOverride makes a bare DATABASE_URL always win over a
// file-based DSN, reducing deploy friction.
func applyDatabaseURLOverride(cfg *Config) {
	if cfg == nil {
		return
	}
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		cfg.Database.DSN = dsn
	}
}
