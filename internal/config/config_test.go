package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"BIND_ADDRESS", "CORS_ALLOWED_ORIGINS", "LOG_LEVEL", "GITHUB_API_URL", "GITHUB_TOKEN", "CACHE_ENABLED", "CACHE_TTL_SECONDS"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != "0.0.0.0:8080" {
		t.Errorf("address = %q", cfg.Server.Address)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL != time.Hour {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.GitHub.BaseURL != "https://api.github.com/" {
		t.Errorf("base URL = %q", cfg.GitHub.BaseURL)
	}
	if cfg.Batch.Concurrency != 0 {
		t.Errorf("concurrency = %d", cfg.Batch.Concurrency)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  address: "127.0.0.1:9000"
  corsAllowedOrigins: ["https://a.example", "https://b.example"]
log:
  level: debug
github:
  token: file-token
  timeout: 5s
cache:
  enabled: false
  ttl: 10m
  shards: 4
batch:
  concurrency: 8
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != "127.0.0.1:9000" {
		t.Errorf("address = %q", cfg.Server.Address)
	}
	if len(cfg.Server.CORSAllowedOrigins) != 2 {
		t.Errorf("origins = %v", cfg.Server.CORSAllowedOrigins)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("level = %q", cfg.Log.Level)
	}
	if cfg.GitHub.Token != "file-token" || cfg.GitHub.Timeout != 5*time.Second {
		t.Errorf("github = %+v", cfg.GitHub)
	}
	if cfg.GitHub.BaseURL != "https://api.github.com/" {
		t.Errorf("base URL default lost: %q", cfg.GitHub.BaseURL)
	}
	if cfg.Cache.Enabled || cfg.Cache.TTL != 10*time.Minute || cfg.Cache.Shards != 4 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Batch.Concurrency != 8 {
		t.Errorf("concurrency = %d", cfg.Batch.Concurrency)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
github:
  token: file-token
cache:
  ttl: 10m
`)
	t.Setenv("GITHUB_TOKEN", "env-token")
	t.Setenv("CACHE_TTL_SECONDS", "30")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("BIND_ADDRESS", ":7070")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHub.Token != "env-token" {
		t.Errorf("token = %q", cfg.GitHub.Token)
	}
	if cfg.Cache.TTL != 30*time.Second || cfg.Cache.Enabled {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Server.Address != ":7070" {
		t.Errorf("address = %q", cfg.Server.Address)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Server.CORSAllowedOrigins) != 2 || cfg.Server.CORSAllowedOrigins[0] != want[0] || cfg.Server.CORSAllowedOrigins[1] != want[1] {
		t.Errorf("origins = %v, want %v", cfg.Server.CORSAllowedOrigins, want)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("level = %q", cfg.Log.Level)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "bad yaml", yaml: "server: [unterminated"},
		{name: "bad level", yaml: "log:\n  level: loud"},
		{name: "negative ttl", yaml: "cache:\n  ttl: -1s"},
		{name: "negative shards", yaml: "cache:\n  shards: -1"},
		{name: "negative concurrency", yaml: "batch:\n  concurrency: -2"},
		{name: "bad base URL", yaml: "github:\n  baseURL: not-a-url"},
		{name: "bad CACHE_ENABLED", env: map[string]string{"CACHE_ENABLED": "maybe"}},
		{name: "bad CACHE_TTL_SECONDS", env: map[string]string{"CACHE_TTL_SECONDS": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeConfig(t, tt.yaml)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
