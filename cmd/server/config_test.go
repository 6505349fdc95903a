package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.JWTSecret = testSecret
	return cfg
}

func TestConfigValidate_Defaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("validate defaults: %v", err)
	}
}

func TestConfigValidate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, "DEVROOM_JWT_SECRET"},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "DEVROOM_JWT_SECRET"},
		{"bad token ttl", func(c *Config) { c.Auth.TokenTTL = "forever" }, "auth.token_ttl"},
		{"zero lockout", func(c *Config) { c.Auth.LockoutDuration = "0s" }, "auth.lockout_duration"},
		{"bad ai timeout", func(c *Config) { c.AI.Timeout = "-1m" }, "ai.timeout"},
		{"ai without key", func(c *Config) { c.AI.Enabled = true }, "DEVROOM_AI_API_KEY"},
		{"marker with space", func(c *Config) { c.Chat.CommandMarker = "@ ai" }, "chat.command_marker"},
		{"negative rate", func(c *Config) { c.Chat.MessageRate = -1 }, "chat message limits"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %v, want mention of %s", err, tc.wantErr)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devroom.yaml")
	data := `
server:
  http_address: ":9000"
  metrics_address: "off"
  allowed_origins: ["https://editor.example.com"]
database:
  path: /tmp/devroom-test.db
auth:
  token_ttl: 2h
ai:
  enabled: true
  model: gpt-4o-mini
chat:
  command_marker: "@bot"
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Server.HTTPAddress != ":9000" {
		t.Errorf("http address = %s", cfg.Server.HTTPAddress)
	}
	if cfg.MetricsEnabled() {
		t.Error("metrics should be disabled")
	}
	if got := cfg.Duration(cfg.Auth.TokenTTL); got != 2*time.Hour {
		t.Errorf("token ttl = %v", got)
	}
	if cfg.Auth.LockoutDuration != "15m" || cfg.Chat.MessageBurst != 10 {
		t.Error("defaults not applied to omitted fields")
	}
	if cfg.Chat.CommandMarker != "@bot" || cfg.AI.Model != "gpt-4o-mini" {
		t.Errorf("chat/ai = %+v %+v", cfg.Chat, cfg.AI)
	}
}

func TestLoadSecrets(t *testing.T) {
	t.Setenv(envJWTSecret, testSecret)
	t.Setenv(envAIAPIKey, "sk-test")
	t.Setenv(envRedisPassword, "hunter2")

	cfg := DefaultConfig()
	cfg.LoadSecrets()
	cfg.AI.Enabled = true

	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.AIAPIKey != "sk-test" || cfg.RedisPassword != "hunter2" {
		t.Error("secrets not loaded from environment")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
