// Package config loads process configuration for the prismlate CLI and
// HTTP service.
//
// Configuration is loaded from:
// 1. prismlate.yaml (optional, or the file given explicitly)
// 2. Environment variables prefixed PRISMLATE_ (log.level → PRISMLATE_LOG_LEVEL)
// 3. Default values
//
// User preferences (languages, service, API keys) live in the settings
// file, not here.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PRISMLATE"

// Config is the root configuration structure.
type Config struct {
	Log          LogConfig      `mapstructure:"log"`
	Server       ServerConfig   `mapstructure:"server"`
	Cache        CacheConfig    `mapstructure:"cache"`
	Usage        UsageConfig    `mapstructure:"usage"`
	Runner       RunnerConfig   `mapstructure:"runner"`
	Provider     ProviderConfig `mapstructure:"provider"`
	SettingsFile string         `mapstructure:"settings_file"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug, release, test
}

// CacheConfig selects the translation cache.
type CacheConfig struct {
	Backend    string        `mapstructure:"backend"` // memory, redis or none
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
	RedisURL   string        `mapstructure:"redis_url"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
}

// UsageConfig selects the usage ledger.
type UsageConfig struct {
	Backend  string `mapstructure:"backend"` // memory or redis
	RedisURL string `mapstructure:"redis_url"`
	Enforce  bool   `mapstructure:"enforce"`
}

// RunnerConfig tunes translation runs.
type RunnerConfig struct {
	FieldDelay    time.Duration `mapstructure:"field_delay"`
	Concurrency   int           `mapstructure:"concurrency"`
	MaxRetries    int           `mapstructure:"max_retries"`
	RateLimitRPM  int           `mapstructure:"rate_limit_rpm"`
	KeepHidden    bool          `mapstructure:"keep_hidden"`
	SelectionWait time.Duration `mapstructure:"selection_timeout"`
}

// ProviderConfig overrides provider endpoints and models.
type ProviderConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Region  string        `mapstructure:"region"`
}

// Load reads configuration. When path is empty, prismlate.yaml is looked
// up in the working directory and /etc/prismlate and may be absent.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("prismlate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/prismlate")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
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

// Validate checks for configuration errors.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "memory", "none":
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend %q is not one of memory, redis, none", c.Cache.Backend)
	}

	switch c.Usage.Backend {
	case "memory":
	case "redis":
		if c.Usage.RedisURL == "" && c.Cache.RedisURL == "" {
			return fmt.Errorf("usage.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("usage.backend %q is not one of memory, redis", c.Usage.Backend)
	}

	if c.Runner.Concurrency < 1 {
		return fmt.Errorf("runner.concurrency must be at least 1")
	}
	if c.Runner.MaxRetries < 0 {
		return fmt.Errorf("runner.max_retries must not be negative")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	return nil
}

// UsageRedisURL returns the Redis URL for the usage ledger, falling back to
// the cache's.
func (c *Config) UsageRedisURL() string {
	if c.Usage.RedisURL != "" {
		return c.Usage.RedisURL
	}
	return c.Cache.RedisURL
}

func setDefaults(v *viper.Viper) {
	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 5)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)

	// Server
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.max_body_bytes", 8<<20)
	v.SetDefault("server.mode", "release")

	// Cache
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", "720h")
	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.key_prefix", "prismlate:")

	// Usage
	v.SetDefault("usage.backend", "memory")
	v.SetDefault("usage.redis_url", "")
	v.SetDefault("usage.enforce", false)

	// Runner
	v.SetDefault("runner.field_delay", "0s")
	v.SetDefault("runner.concurrency", 2)
	v.SetDefault("runner.max_retries", 2)
	v.SetDefault("runner.rate_limit_rpm", 0)
	v.SetDefault("runner.keep_hidden", false)
	v.SetDefault("runner.selection_timeout", "30s")

	// Provider
	v.SetDefault("provider.timeout", "30s")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.model", "")
	v.SetDefault("provider.region", "")

	v.SetDefault("settings_file", "")
}
