// Package main provides the staffplan API server.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/staffplan/internal/staffing"
)

// Environment variables holding secrets. They override file values.
const (
	envJWTSecret     = "STAFFPLAN_JWT_SECRET"
	envDatabaseDSN   = "STAFFPLAN_DATABASE_DSN"
	envRedisPassword = "STAFFPLAN_REDIS_PASSWORD"
)

// Config represents the server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Capacity CapacityConfig `yaml:"capacity"`
	Redis    RedisConfig    `yaml:"redis"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Verbose  bool           `yaml:"-"` // set via CLI flag
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	HTTPAddress  string    `yaml:"http_address"`  // HTTP listen address (default: :8080)
	QueryTimeout string    `yaml:"query_timeout"` // per-request deadline (default: 10s)
	TLS          TLSConfig `yaml:"tls"`
}

// TLSConfig contains HTTPS settings for the API server.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// DatabaseConfig selects the Entity Store backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite (default) or postgres
	Path   string `yaml:"path"`   // SQLite file
	DSN    string `yaml:"dsn"`    // PostgreSQL connection string
}

// AuthConfig contains token, lockout and rate limit settings.
type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	AccessTokenTTL   string `yaml:"access_token_ttl"`
	RefreshTokenTTL  string `yaml:"refresh_token_ttl"`
	LockoutThreshold int    `yaml:"lockout_threshold"`
	LockoutDuration  string `yaml:"lockout_duration"`
	RateLimitPerIP   int    `yaml:"rate_limit_per_ip"`
	RateLimitPerUser int    `yaml:"rate_limit_per_user"`
	UserCacheSize    int    `yaml:"user_cache_size"`
	UserCacheTTL     string `yaml:"user_cache_ttl"`
}

// CapacityConfig tunes the capacity engine.
type CapacityConfig struct {
	CreateCheck  string `yaml:"create_check"` // interval (default) or now
	Availability string `yaml:"availability"` // exact (default) or upper_bound
	Lock         string `yaml:"lock"`         // memory (default), redis or none
	LockTTL      string `yaml:"lock_ttl"`     // redis lock expiry (default: 10s)
}

// RedisConfig configures the shared engineer lock.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // default: :9090
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	cfg.applyEnv()
	cfg.setDefaults()
	return cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv(envJWTSecret); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv(envDatabaseDSN); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(envRedisPassword); v != "" {
		c.Redis.Password = v
	}
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = ":8080"
	}
	if c.Server.QueryTimeout == "" {
		c.Server.QueryTimeout = "10s"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/staffplan.db"
	}
	if c.Auth.AccessTokenTTL == "" {
		c.Auth.AccessTokenTTL = "15m"
	}
	if c.Auth.RefreshTokenTTL == "" {
		c.Auth.RefreshTokenTTL = "168h"
	}
	if c.Auth.LockoutThreshold == 0 {
		c.Auth.LockoutThreshold = 5
	}
	if c.Auth.LockoutDuration == "" {
		c.Auth.LockoutDuration = "15m"
	}
	if c.Auth.RateLimitPerIP == 0 {
		c.Auth.RateLimitPerIP = 10
	}
	if c.Auth.RateLimitPerUser == 0 {
		c.Auth.RateLimitPerUser = 100
	}
	if c.Auth.UserCacheSize == 0 {
		c.Auth.UserCacheSize = 1024
	}
	if c.Auth.UserCacheTTL == "" {
		c.Auth.UserCacheTTL = "30s"
	}
	if c.Capacity.CreateCheck == "" {
		c.Capacity.CreateCheck = string(staffing.CreateCheckInterval)
	}
	if c.Capacity.Availability == "" {
		c.Capacity.Availability = string(staffing.AvailabilityExact)
	}
	if c.Capacity.Lock == "" {
		c.Capacity.Lock = "memory"
	}
	if c.Capacity.LockTTL == "" {
		c.Capacity.LockTTL = "10s"
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.HTTPAddress == "" {
		return fmt.Errorf("server.http_address is required")
	}
	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" {
			return fmt.Errorf("server.tls.cert_file is required when TLS is enabled")
		}
		if c.Server.TLS.KeyFile == "" {
			return fmt.Errorf("server.tls.key_file is required when TLS is enabled")
		}
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn (or %s) is required for postgres", envDatabaseDSN)
		}
	default:
		return fmt.Errorf("database.driver must be one of: sqlite, postgres")
	}

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret (or %s) must be at least 32 bytes", envJWTSecret)
	}
	if c.Auth.LockoutThreshold < 0 || c.Auth.RateLimitPerIP < 0 || c.Auth.RateLimitPerUser < 0 || c.Auth.UserCacheSize < 0 {
		return fmt.Errorf("auth limits must not be negative")
	}

	durations := map[string]string{
		"server.query_timeout":   c.Server.QueryTimeout,
		"auth.access_token_ttl":  c.Auth.AccessTokenTTL,
		"auth.refresh_token_ttl": c.Auth.RefreshTokenTTL,
		"auth.lockout_duration":  c.Auth.LockoutDuration,
		"auth.user_cache_ttl":    c.Auth.UserCacheTTL,
		"capacity.lock_ttl":      c.Capacity.LockTTL,
	}
	for field, value := range durations {
		if _, err := parsePositiveDuration(field, value); err != nil {
			return err
		}
	}

	if _, err := staffing.ParseCreatePolicy(c.Capacity.CreateCheck); err != nil {
		return fmt.Errorf("capacity.create_check: %w", err)
	}
	if _, err := staffing.ParseAvailabilityMode(c.Capacity.Availability); err != nil {
		return fmt.Errorf("capacity.availability: %w", err)
	}
	switch c.Capacity.Lock {
	case "memory", "none":
	case "redis":
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address is required when capacity.lock is redis")
		}
	default:
		return fmt.Errorf("capacity.lock must be one of: memory, redis, none")
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics.address is required when metrics are enabled")
	}
	return nil
}

func parsePositiveDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", field)
	}
	return d, nil
}

// mustDuration parses a field that Validate has already accepted.
func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		panic(err)
	}
	return d
}
