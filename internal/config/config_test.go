package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ZENTUBE_STORAGE_PATH", filepath.Join(dir, "data", "zentube.bolt"))

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.HTTPPort != 8080 {
		t.Errorf("expected default http port 8080, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Tracking.TickInterval != "10s" || cfg.Tracking.MinSegment != "3s" {
		t.Errorf("unexpected tracking defaults: %+v", cfg.Tracking)
	}
	if cfg.Breaks.Snooze != "5m" {
		t.Errorf("expected 5m snooze, got %s", cfg.Breaks.Snooze)
	}
	if !cfg.Wellbeing.PauseOnLimit {
		t.Error("expected pause_on_limit to default to true")
	}
	if _, err := os.Stat(filepath.Join(dir, "data")); err != nil {
		t.Errorf("expected storage directory to be created: %v", err)
	}
}

func TestLoadFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  http_port: 9000
storage:
  type: redis
  redis:
    host: cache.local
tracking:
  tick_interval: 5s
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ZENTUBE_CATALOG_API_KEY", "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.HTTPPort != 9000 {
		t.Errorf("expected http port 9000, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Storage.Type != "redis" || cfg.Storage.Redis.Host != "cache.local" {
		t.Errorf("unexpected storage config: %+v", cfg.Storage)
	}
	if cfg.Tracking.TickInterval != "5s" {
		t.Errorf("expected tick interval 5s, got %s", cfg.Tracking.TickInterval)
	}
	if cfg.Catalog.APIKey != "secret" {
		t.Errorf("expected api key from environment, got %q", cfg.Catalog.APIKey)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Server.HTTPPort = 0 }, "invalid HTTP port"},
		{"unknown storage", func(c *Config) { c.Storage.Type = "mongo" }, "unsupported storage type"},
		{"bad duration", func(c *Config) { c.Tracking.TickInterval = "often" }, "tracking.tick_interval"},
		{"zero poll", func(c *Config) { c.Playback.PollInterval = "0s" }, "playback.poll_interval"},
		{"bad retention time", func(c *Config) { c.Wellbeing.RetentionTime = "25:99" }, "retention_time"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Storage.Path = filepath.Join(t.TempDir(), "zentube.bolt")
			tt.mutate(cfg)

			err := validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidKeys(t *testing.T) {
	keys := ValidKeys()
	for _, key := range []string{"server.http_port", "storage.redis.host", "tracking.near_limit_minutes", "catalog.api_key"} {
		if !keys[key] {
			t.Errorf("expected %s to be a valid key", key)
		}
	}
	if keys["dns.upstream_servers"] {
		t.Error("unexpected key dns.upstream_servers")
	}
}
