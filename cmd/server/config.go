// Package main provides the devroom server CLI.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Secrets are read from the environment, never from the config file.
const (
	envJWTSecret     = "DEVROOM_JWT_SECRET"
	envAIAPIKey      = "DEVROOM_AI_API_KEY"
	envRedisPassword = "DEVROOM_REDIS_PASSWORD"

	minJWTSecretLength = 32
)

// Config represents the server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Chat     ChatConfig     `yaml:"chat"`
	Verbose  bool           `yaml:"-"` // set via CLI flag

	JWTSecret     string `yaml:"-"`
	AIAPIKey      string `yaml:"-"`
	RedisPassword string `yaml:"-"`
}

// ServerConfig contains listener settings.
type ServerConfig struct {
	HTTPAddress    string   `yaml:"http_address"`    // default :8080
	MetricsAddress string   `yaml:"metrics_address"` // default :9090, "off" disables
	AllowedOrigins []string `yaml:"allowed_origins"` // websocket origins; empty allows all
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig contains session and login throttling settings.
type AuthConfig struct {
	TokenTTL         string `yaml:"token_ttl"`      // default 24h
	RevocationTTL    string `yaml:"revocation_ttl"` // default 24h
	RateLimitPerIP   int    `yaml:"rate_limit_per_ip"`
	RateLimitPerUser int    `yaml:"rate_limit_per_user"`
	LockoutThreshold int    `yaml:"lockout_threshold"`
	LockoutDuration  string `yaml:"lockout_duration"`
}

// RedisConfig selects the shared revocation set. An empty address keeps
// revocations in process memory.
type RedisConfig struct {
	Address string `yaml:"address"`
	DB      int    `yaml:"db"`
}

// AIConfig configures the OpenAI-compatible generation backend.
type AIConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	Timeout   string `yaml:"timeout"`
	MaxTokens int    `yaml:"max_tokens"`
}

// ChatConfig tunes rooms and the message protocol.
type ChatConfig struct {
	CommandMarker string  `yaml:"command_marker"`
	MessageRate   float64 `yaml:"message_rate"`
	MessageBurst  int     `yaml:"message_burst"`
	HistoryLimit  int     `yaml:"history_limit"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = ":8080"
	}
	if c.Server.MetricsAddress == "" {
		c.Server.MetricsAddress = ":9090"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/devroom.db"
	}
	if c.Auth.TokenTTL == "" {
		c.Auth.TokenTTL = "24h"
	}
	if c.Auth.RevocationTTL == "" {
		c.Auth.RevocationTTL = "24h"
	}
	if c.Auth.RateLimitPerIP == 0 {
		c.Auth.RateLimitPerIP = 10
	}
	if c.Auth.RateLimitPerUser == 0 {
		c.Auth.RateLimitPerUser = 120
	}
	if c.Auth.LockoutThreshold == 0 {
		c.Auth.LockoutThreshold = 5
	}
	if c.Auth.LockoutDuration == "" {
		c.Auth.LockoutDuration = "15m"
	}
	if c.AI.Model == "" {
		c.AI.Model = "gemini-1.5-flash"
	}
	if c.AI.Timeout == "" {
		c.AI.Timeout = "2m"
	}
	if c.AI.MaxTokens == 0 {
		c.AI.MaxTokens = 8192
	}
	if c.Chat.CommandMarker == "" {
		c.Chat.CommandMarker = "@ai"
	}
	if c.Chat.MessageRate == 0 {
		c.Chat.MessageRate = 5
	}
	if c.Chat.MessageBurst == 0 {
		c.Chat.MessageBurst = 10
	}
	if c.Chat.HistoryLimit == 0 {
		c.Chat.HistoryLimit = 200
	}
}

// LoadSecrets reads secrets from the environment.
func (c *Config) LoadSecrets() {
	c.JWTSecret = os.Getenv(envJWTSecret)
	c.AIAPIKey = os.Getenv(envAIAPIKey)
	c.RedisPassword = os.Getenv(envRedisPassword)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.HTTPAddress == "" {
		return fmt.Errorf("server.http_address is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if len(c.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("%s must be at least %d characters", envJWTSecret, minJWTSecretLength)
	}

	durations := map[string]string{
		"auth.token_ttl":        c.Auth.TokenTTL,
		"auth.revocation_ttl":   c.Auth.RevocationTTL,
		"auth.lockout_duration": c.Auth.LockoutDuration,
		"ai.timeout":            c.AI.Timeout,
	}
	for key, value := range durations {
		if _, err := parsePositiveDuration(key, value); err != nil {
			return err
		}
	}

	if c.Auth.RateLimitPerIP < 0 || c.Auth.RateLimitPerUser < 0 {
		return fmt.Errorf("auth rate limits must not be negative")
	}
	if c.AI.Enabled {
		if c.AIAPIKey == "" {
			return fmt.Errorf("%s is required when ai.enabled is true", envAIAPIKey)
		}
		if c.AI.MaxTokens < 0 {
			return fmt.Errorf("ai.max_tokens must not be negative")
		}
	}
	if strings.TrimSpace(c.Chat.CommandMarker) != c.Chat.CommandMarker || strings.ContainsAny(c.Chat.CommandMarker, " \t\n") {
		return fmt.Errorf("chat.command_marker must not contain whitespace")
	}
	if c.Chat.MessageRate < 0 || c.Chat.MessageBurst < 0 {
		return fmt.Errorf("chat message limits must not be negative")
	}
	return nil
}

// MetricsEnabled reports whether the metrics listener should run.
func (c *Config) MetricsEnabled() bool {
	return c.Server.MetricsAddress != "off"
}

// Duration returns a validated duration field. Call after Validate.
func (c *Config) Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}

func parsePositiveDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
