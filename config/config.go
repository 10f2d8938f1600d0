// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Draft store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Remote   RemoteConfig   `yaml:"remote"`
	Drafts   DraftsConfig   `yaml:"drafts"`
	Autosave AutosaveConfig `yaml:"autosave"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig configures the reference authority HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RemoteConfig configures the remote course authority.
// An empty URL runs without one: the registry neither hydrates nor syncs.
type RemoteConfig struct {
	URL     string            `yaml:"url"`
	APIKey  string            `yaml:"api_key,omitempty"`
	Timeout time.Duration     `yaml:"timeout,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// DraftsConfig configures the local draft store.
type DraftsConfig struct {
	Backend   string        `yaml:"backend"` // "memory", "sqlite" or "redis"
	DSN       string        `yaml:"dsn"`     // sqlite database path
	RedisURL  string        `yaml:"redis_url"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl,omitempty"` // redis only
}

// AutosaveConfig configures the two debounce tiers.
type AutosaveConfig struct {
	LocalDelay    time.Duration `yaml:"local_delay"`
	RemoteDelay   time.Duration `yaml:"remote_delay"`
	RemoteTimeout time.Duration `yaml:"remote_timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	cfg := Config{Metrics: MetricsConfig{Enabled: true}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	COURSESYNC_SERVER_HOST           - Server host (default: 0.0.0.0)
//	COURSESYNC_SERVER_PORT           - Server port (default: 8080)
//	COURSESYNC_REMOTE_URL            - Remote course authority (default: none)
//	COURSESYNC_REMOTE_API_KEY        - Bearer token for the remote authority
//	COURSESYNC_REMOTE_TIMEOUT        - HTTP client timeout (default: 10s)
//	COURSESYNC_DRAFTS_BACKEND        - memory, sqlite or redis (default: memory)
//	COURSESYNC_DRAFTS_DSN            - SQLite path (default: coursesync.db)
//	COURSESYNC_DRAFTS_REDIS_URL      - Redis URL for the redis backend
//	COURSESYNC_DRAFTS_KEY_PREFIX     - Draft key prefix (default: course-draft:)
//	COURSESYNC_AUTOSAVE_LOCAL_DELAY  - Local tier debounce (default: 800ms)
//	COURSESYNC_AUTOSAVE_REMOTE_DELAY - Remote tier debounce (default: 1500ms)
//	COURSESYNC_LOG_LEVEL             - debug, info, warn, error (default: info)
//	COURSESYNC_LOG_FORMAT            - json or console (default: json)
//	COURSESYNC_METRICS_ENABLED       - Enable /metrics endpoint (default: true)
func LoadFromEnv() (*Config, error) {
	cfg := Config{Metrics: MetricsConfig{Enabled: true}}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads path when it exists and falls back to environment
// variables otherwise. Every setting has a usable default, so the fallback
// never fails for lack of configuration.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies COURSESYNC_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("COURSESYNC_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("COURSESYNC_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	// Remote authority
	if v := os.Getenv("COURSESYNC_REMOTE_URL"); v != "" {
		cfg.Remote.URL = v
	}
	if v := os.Getenv("COURSESYNC_REMOTE_API_KEY"); v != "" {
		cfg.Remote.APIKey = v
	}
	envDuration("COURSESYNC_REMOTE_TIMEOUT", &cfg.Remote.Timeout)

	// Draft store
	if v := os.Getenv("COURSESYNC_DRAFTS_BACKEND"); v != "" {
		cfg.Drafts.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("COURSESYNC_DRAFTS_DSN"); v != "" {
		cfg.Drafts.DSN = v
	}
	if v := os.Getenv("COURSESYNC_DRAFTS_REDIS_URL"); v != "" {
		cfg.Drafts.RedisURL = v
	}
	if v := os.Getenv("COURSESYNC_DRAFTS_KEY_PREFIX"); v != "" {
		cfg.Drafts.KeyPrefix = v
	}

	// Autosave
	envDuration("COURSESYNC_AUTOSAVE_LOCAL_DELAY", &cfg.Autosave.LocalDelay)
	envDuration("COURSESYNC_AUTOSAVE_REMOTE_DELAY", &cfg.Autosave.RemoteDelay)
	envDuration("COURSESYNC_AUTOSAVE_REMOTE_TIMEOUT", &cfg.Autosave.RemoteTimeout)

	// Logging configuration
	if v := os.Getenv("COURSESYNC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("COURSESYNC_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("COURSESYNC_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("COURSESYNC_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// envDuration overwrites *dst with the parsed value of key, ignoring
// malformed values.
func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Remote.Timeout == 0 {
		cfg.Remote.Timeout = 10 * time.Second
	}

	if cfg.Drafts.Backend == "" {
		cfg.Drafts.Backend = BackendMemory
	}
	if cfg.Drafts.Backend == BackendSQLite && cfg.Drafts.DSN == "" {
		cfg.Drafts.DSN = "coursesync.db"
	}
	if cfg.Drafts.KeyPrefix == "" {
		cfg.Drafts.KeyPrefix = "course-draft:"
	}

	if cfg.Autosave.LocalDelay == 0 {
		cfg.Autosave.LocalDelay = 800 * time.Millisecond
	}
	if cfg.Autosave.RemoteDelay == 0 {
		cfg.Autosave.RemoteDelay = 1500 * time.Millisecond
	}
	if cfg.Autosave.RemoteTimeout == 0 {
		cfg.Autosave.RemoteTimeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", cfg.Server.Port)
	}

	if cfg.Remote.URL != "" {
		u, err := url.Parse(cfg.Remote.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("remote.url must be an http(s) URL, got %q", cfg.Remote.URL)
		}
	}

	switch cfg.Drafts.Backend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if cfg.Drafts.RedisURL == "" {
			return fmt.Errorf("drafts.redis_url is required when drafts.backend is 'redis'")
		}
	default:
		return fmt.Errorf("drafts.backend must be one of: memory, sqlite, redis, got %q", cfg.Drafts.Backend)
	}

	if cfg.Autosave.LocalDelay < 0 || cfg.Autosave.RemoteDelay < 0 || cfg.Autosave.RemoteTimeout < 0 {
		return fmt.Errorf("autosave delays must not be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	return nil
}
