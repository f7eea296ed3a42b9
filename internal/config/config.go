package config

import (
	"fmt"
	"strings"
	"time"
)

// BusConfig selects and configures the external pub/sub bus.
type BusConfig struct {
	// Driver is one of "redis", "nats" or "none".
	Driver         string        `mapstructure:"driver" yaml:"driver"`
	RedisURL       string        `mapstructure:"redis_url" yaml:"redis_url"`
	NATSURL        string        `mapstructure:"nats_url" yaml:"nats_url"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout" yaml:"publish_timeout"`
	// PresenceTTL enables relay:conn:<token> keys on registration when > 0 (redis only).
	PresenceTTL time.Duration `mapstructure:"presence_ttl" yaml:"presence_ttl"`
}

// MetricsConfig toggles the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	// SendBuffer is the capacity of each connection's outbound queue.
	SendBuffer int `mapstructure:"send_buffer" yaml:"send_buffer"`
	// IdleTimeout closes a connection that sends nothing for this long. Zero disables it.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	// ControlRateLimit caps control frames per connection per minute. Zero disables it.
	ControlRateLimit int `mapstructure:"control_rate_limit" yaml:"control_rate_limit"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	Bus     BusConfig     `mapstructure:"bus" yaml:"bus"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		MaxMessageBytes:   64 << 10,
		SendBuffer:        256,
		IdleTimeout:       0,
		ControlRateLimit:  0,
		LogLevel:          "info",
		LogFormat:         "console",
		Bus: BusConfig{
			Driver:         "redis",
			RedisURL:       "redis://127.0.0.1:6379/0",
			NATSURL:        "nats://127.0.0.1:4222",
			PublishTimeout: 2 * time.Second,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.SendBuffer != 0 {
		c.SendBuffer = other.SendBuffer
	}
	if other.IdleTimeout != 0 {
		c.IdleTimeout = other.IdleTimeout
	}
	if other.ControlRateLimit != 0 {
		c.ControlRateLimit = other.ControlRateLimit
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.Bus.Driver != "" {
		c.Bus.Driver = other.Bus.Driver
	}
	if other.Bus.RedisURL != "" {
		c.Bus.RedisURL = other.Bus.RedisURL
	}
	if other.Bus.NATSURL != "" {
		c.Bus.NATSURL = other.Bus.NATSURL
	}
	if other.Bus.PublishTimeout != 0 {
		c.Bus.PublishTimeout = other.Bus.PublishTimeout
	}
	if other.Bus.PresenceTTL != 0 {
		c.Bus.PresenceTTL = other.Bus.PresenceTTL
	}
}

// Validate checks all configuration invariants and reports every violation at once.
func (c Config) Validate() error {
	var errs []string

	if c.Addr == "" {
		errs = append(errs, "addr must not be empty")
	}
	if c.MaxMessageBytes <= 0 {
		errs = append(errs, fmt.Sprintf("max_message_bytes must be > 0, got %d", c.MaxMessageBytes))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, fmt.Sprintf("send_buffer must be > 0, got %d", c.SendBuffer))
	}
	if c.IdleTimeout < 0 {
		errs = append(errs, "idle_timeout must not be negative")
	}
	if c.ControlRateLimit < 0 {
		errs = append(errs, "control_rate_limit must not be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("log_level must be one of [debug, info, warn, error], got %q", c.LogLevel))
	}
	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[c.LogFormat] {
		errs = append(errs, fmt.Sprintf("log_format must be one of [console, json], got %q", c.LogFormat))
	}

	switch c.Bus.Driver {
	case "redis":
		if c.Bus.RedisURL == "" {
			errs = append(errs, "bus.redis_url must not be empty for the redis driver")
		}
	case "nats":
		if c.Bus.NATSURL == "" {
			errs = append(errs, "bus.nats_url must not be empty for the nats driver")
		}
	case "none":
	default:
		errs = append(errs, fmt.Sprintf("bus.driver must be one of [redis, nats, none], got %q", c.Bus.Driver))
	}
	if c.Bus.PublishTimeout < 0 {
		errs = append(errs, "bus.publish_timeout must not be negative")
	}
	if c.Bus.PresenceTTL < 0 {
		errs = append(errs, "bus.presence_ttl must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
