package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Server.WriteTimeout != 5*time.Minute {
		t.Errorf("Server.WriteTimeout = %v, want 5m", cfg.Server.WriteTimeout)
	}
	if cfg.Cache.Backend != "memory" || cfg.Cache.TTL != 720*time.Hour {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Runner.Concurrency != 2 || cfg.Runner.MaxRetries != 2 {
		t.Errorf("Runner = %+v", cfg.Runner)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "console" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Provider.Timeout != 30*time.Second {
		t.Errorf("Provider.Timeout = %v", cfg.Provider.Timeout)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PRISMLATE_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("PRISMLATE_LOG_LEVEL", "debug")
	t.Setenv("PRISMLATE_RUNNER_FIELD_DELAY", "250ms")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Runner.FieldDelay != 250*time.Millisecond {
		t.Errorf("Runner.FieldDelay = %v", cfg.Runner.FieldDelay)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	data := `
cache:
  backend: redis
  redis_url: redis://localhost:6379/1
usage:
  backend: redis
runner:
  concurrency: 4
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Cache.Backend != "redis" || cfg.Runner.Concurrency != 4 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.UsageRedisURL() != "redis://localhost:6379/1" {
		t.Errorf("UsageRedisURL() = %q", cfg.UsageRedisURL())
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("an explicit config file must exist")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown cache", func(c *Config) { c.Cache.Backend = "disk" }, "cache.backend"},
		{"redis without url", func(c *Config) { c.Cache.Backend = "redis" }, "cache.redis_url"},
		{"usage redis without url", func(c *Config) { c.Usage.Backend = "redis" }, "usage.redis_url"},
		{"zero concurrency", func(c *Config) { c.Runner.Concurrency = 0 }, "concurrency"},
		{"negative retries", func(c *Config) { c.Runner.MaxRetries = -1 }, "max_retries"},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	if err := validConfig().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Cache:  CacheConfig{Backend: "memory"},
		Usage:  UsageConfig{Backend: "memory"},
		Runner: RunnerConfig{Concurrency: 1},
	}
}
