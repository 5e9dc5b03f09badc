// File: internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("parses a full file", func(t *testing.T) {
		path := writeConfigFile(t, `
server:
  port: 9090
  request_timeout: 30s
  jwt_secret: file-secret
log:
  level: debug
  format: console
database:
  url: postgres://localhost/orchestrator
redis:
  url: localhost:6379
providers:
  openai_key: sk-test
models:
  - name: gpt-4
    provider: openai
    tier: high
    cost_per_token: 0.00003
    max_tokens: 8192
assignment:
  cpu_only: [gpt-3.5-turbo]
  large_gpu: [local-large, gpt-4]
  cache_ttl: 10m
orchestrator:
  default_model: gpt-4
  provider_timeout: 20s
quota:
  limits:
    free:
      ai_requests: 50
housekeeping:
  retention_days: 7
`)
		cfg, err := LoadConfig(path, false)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Server.Port != 9090 || cfg.Server.RequestTimeout != 30*time.Second {
			t.Errorf("server config: %+v", cfg.Server)
		}
		if cfg.Log.Level != "debug" || cfg.Log.Format != "console" {
			t.Errorf("log config: %+v", cfg.Log)
		}
		if len(cfg.Models) != 1 || cfg.Models[0].Name != "gpt-4" || cfg.Models[0].Tier != "high" {
			t.Errorf("models: %+v", cfg.Models)
		}
		if len(cfg.Assignment.LargeGPU) != 2 || cfg.Assignment.CacheTTL != 10*time.Minute {
			t.Errorf("assignment: %+v", cfg.Assignment)
		}
		if cfg.Quota.Limits["free"]["ai_requests"] != 50 {
			t.Errorf("quota limits: %+v", cfg.Quota.Limits)
		}
		if cfg.Housekeeping.RetentionDays != 7 {
			t.Errorf("housekeeping: %+v", cfg.Housekeeping)
		}
	})

	t.Run("fills defaults for an empty file", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfigFile(t, "{}\n"), false)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Server.Port != 8080 {
			t.Errorf("expected default port, got %d", cfg.Server.Port)
		}
		if cfg.Server.RequestTimeout != 60*time.Second {
			t.Errorf("expected default request timeout, got %s", cfg.Server.RequestTimeout)
		}
		if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
			t.Errorf("expected json/info logging defaults, got %+v", cfg.Log)
		}
		if cfg.Orchestrator.MaxPromptChars != 10000 {
			t.Errorf("expected prompt cap default, got %d", cfg.Orchestrator.MaxPromptChars)
		}
		if cfg.Orchestrator.ProviderTimeout != 45*time.Second || cfg.Orchestrator.ChunkIdleTimeout != 30*time.Second {
			t.Errorf("expected timeout defaults, got %+v", cfg.Orchestrator)
		}
		if cfg.Providers.OllamaBaseURL != "http://localhost:11434" {
			t.Errorf("expected local ollama default, got %q", cfg.Providers.OllamaBaseURL)
		}
		if cfg.Housekeeping.AvailabilityInterval != 5*time.Minute || cfg.Housekeeping.RetentionDays != 30 {
			t.Errorf("expected housekeeping defaults, got %+v", cfg.Housekeeping)
		}
		if cfg.Assignment.CacheTTL != time.Hour {
			t.Errorf("expected assignment cache default, got %s", cfg.Assignment.CacheTTL)
		}
	})

	t.Run("environment overrides file values", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://env-host/db")
		t.Setenv("OPENAI_API_KEY", "sk-env")
		t.Setenv("JWT_SECRET", "env-secret")

		cfg, err := LoadConfig(writeConfigFile(t, `
database:
  url: postgres://file-host/db
providers:
  openai_key: sk-file
server:
  jwt_secret: file-secret
`), false)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Database.URL != "postgres://env-host/db" {
			t.Errorf("database url not overridden: %q", cfg.Database.URL)
		}
		if cfg.Providers.OpenAIKey != "sk-env" {
			t.Errorf("openai key not overridden: %q", cfg.Providers.OpenAIKey)
		}
		if cfg.Server.JWTSecret != "env-secret" {
			t.Errorf("jwt secret not overridden: %q", cfg.Server.JWTSecret)
		}
	})

	t.Run("dev flag lands in runtime config", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfigFile(t, "{}\n"), true)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if !cfg.Runtime.Dev {
			t.Error("expected dev runtime flag")
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"), false); err == nil {
			t.Error("expected an error for a missing file")
		}
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		if _, err := LoadConfig(writeConfigFile(t, "server: [\n"), false); err == nil {
			t.Error("expected an error for malformed yaml")
		}
	})
}
