// Package config handles configuration loading and validation. Values come
// from a YAML file overlaid with environment variables, environment winning.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/zlc_ai/chatbridge/internal/botlink"
	"github.com/zlc_ai/chatbridge/internal/channel/hangouts"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Bot      botlink.Config `yaml:"bot"`
	Channels ChannelsConfig `yaml:"channels"`
	LogLevel string         `yaml:"log_level" env:"LOG_LEVEL"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" env:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowAllOrigins bool          `yaml:"allow_all_origins" env:"ALLOW_ALL_ORIGINS"`
}

// ChannelsConfig holds per-channel adapter configuration.
type ChannelsConfig struct {
	Hangouts hangouts.Config `yaml:"hangouts"`
	Local    LocalConfig     `yaml:"local"`
}

// LocalConfig holds the local development channel configuration.
type LocalConfig struct {
	Enabled bool `yaml:"enabled" env:"LOCAL_CHANNEL_ENABLED"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Bot: botlink.Config{
			Timeout: 10 * time.Second,
		},
		Channels: ChannelsConfig{
			Local: LocalConfig{Enabled: true},
		},
		LogLevel: "info",
	}
}

// Load reads the YAML file (defaults are kept if it does not exist), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	case os.IsNotExist(err):
		// Defaults plus environment only.
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Bot.URL == "" {
		return fmt.Errorf("bot webhook url is required")
	}
	if c.Bot.Secret == "" {
		return fmt.Errorf("bot webhook secret is required")
	}
	if c.Channels.Hangouts.Enabled {
		if c.Channels.Hangouts.VerificationToken == "" {
			return fmt.Errorf("hangouts verification token is required")
		}
		if c.Channels.Hangouts.CredentialsFile == "" {
			return fmt.Errorf("hangouts credentials file is required")
		}
	}
	return nil
}
