// Package config defines the daemon configuration, its defaults, and
// the viper-backed loader that reads it from a JSON file and VERBS_
// environment variables.
package config

import (
	"encoding/json"
	"fmt"
)

// Config is the top-level daemon configuration.
type Config struct {
	// Data directory, defaults to ~/.verbs
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Metrics endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Invocation engine
	Tools ToolsConfig `json:"tools" mapstructure:"tools"`

	// Invocation audit trail
	Audit AuditConfig `json:"audit" mapstructure:"audit"`

	// Noun catalog
	Catalog CatalogConfig `json:"catalog" mapstructure:"catalog"`

	// Built-in tool packs
	Packs PacksConfig `json:"packs" mapstructure:"packs"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MetricsConfig holds the Prometheus endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// ToolsConfig holds invocation engine configuration.
type ToolsConfig struct {
	DefaultTimeoutSeconds  int         `json:"default_timeout_seconds" mapstructure:"default_timeout_seconds"`
	ConfirmationTTLSeconds int         `json:"confirmation_ttl_seconds" mapstructure:"confirmation_ttl_seconds"`
	Retry                  RetryConfig `json:"retry" mapstructure:"retry"`
}

// RetryConfig holds the retry policy for idempotent tools.
type RetryConfig struct {
	Enabled          bool `json:"enabled" mapstructure:"enabled"`
	MaxAttempts      int  `json:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int  `json:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int  `json:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// AuditConfig holds the invocation audit trail configuration.
type AuditConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// CatalogConfig holds the noun catalog configuration.
type CatalogConfig struct {
	Dir   string `json:"dir" mapstructure:"dir"`
	Watch bool   `json:"watch" mapstructure:"watch"`
}

// PacksConfig selects and tunes the built-in tool packs.
type PacksConfig struct {
	Web  WebPackConfig `json:"web" mapstructure:"web"`
	Data PackConfig    `json:"data" mapstructure:"data"`
	Comm PackConfig    `json:"comm" mapstructure:"comm"`
}

// PackConfig enables or disables one pack.
type PackConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// WebPackConfig holds the web pack's outbound HTTP settings.
type WebPackConfig struct {
	Enabled        bool   `json:"enabled" mapstructure:"enabled"`
	TimeoutSeconds int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
	UserAgent      string `json:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes   int64  `json:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// DefaultConfig returns a config with default values.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "",
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    "127.0.0.1:9090",
		},
		Tools: ToolsConfig{
			DefaultTimeoutSeconds:  30,
			ConfirmationTTLSeconds: 300,
			Retry: RetryConfig{
				Enabled:          true,
				MaxAttempts:      3,
				InitialBackoffMs: 500,
				MaxBackoffMs:     5000,
			},
		},
		Audit: AuditConfig{
			Enabled: true,
		},
		Catalog: CatalogConfig{
			Watch: true,
		},
		Packs: PacksConfig{
			Web: WebPackConfig{
				Enabled:        true,
				TimeoutSeconds: 30,
				UserAgent:      "verbs/0.1",
				MaxBodyBytes:   2 << 20,
			},
			Data: PackConfig{Enabled: true},
			Comm: PackConfig{Enabled: true},
		},
	}
}

// String returns a JSON representation of the config.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks that the configuration is usable, stopping at the
// first problem.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Tools.DefaultTimeoutSeconds < 0 {
		return fmt.Errorf("tools.default_timeout_seconds must be >= 0")
	}
	if c.Tools.ConfirmationTTLSeconds < 0 {
		return fmt.Errorf("tools.confirmation_ttl_seconds must be >= 0")
	}
	if c.Tools.Retry.MaxAttempts < 0 {
		return fmt.Errorf("tools.retry.max_attempts must be >= 0")
	}
	if c.Tools.Retry.InitialBackoffMs < 0 {
		return fmt.Errorf("tools.retry.initial_backoff_ms must be >= 0")
	}
	if c.Tools.Retry.MaxBackoffMs < 0 {
		return fmt.Errorf("tools.retry.max_backoff_ms must be >= 0")
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}

	if c.Packs.Web.TimeoutSeconds < 0 {
		return fmt.Errorf("packs.web.timeout_seconds must be >= 0")
	}
	if c.Packs.Web.MaxBodyBytes < 0 {
		return fmt.Errorf("packs.web.max_body_bytes must be >= 0")
	}

	return nil
}
