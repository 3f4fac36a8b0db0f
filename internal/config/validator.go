package config

import (
	"fmt"
	"net"
	"strings"
)

// Validator validates configuration values field by field, collecting
// every problem instead of stopping at the first.
type Validator struct{}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateLogLevel validates a log level.
func (v *Validator) ValidateLogLevel(level string) error {
	if level == "" {
		return nil // Use default
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateListenAddr validates a host:port listen address.
func (v *Validator) ValidateListenAddr(addr string) error {
	if addr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %s: %w", addr, err)
	}
	if port == "" {
		return fmt.Errorf("invalid listen address %s: missing port", addr)
	}
	_ = host // empty host means all interfaces
	return nil
}

// ValidateRetry validates a retry policy.
func (v *Validator) ValidateRetry(retry RetryConfig) error {
	if retry.MaxAttempts < 0 {
		return fmt.Errorf("retry max_attempts must be >= 0")
	}
	if retry.InitialBackoffMs < 0 {
		return fmt.Errorf("retry initial_backoff_ms must be >= 0")
	}
	if retry.MaxBackoffMs < 0 {
		return fmt.Errorf("retry max_backoff_ms must be >= 0")
	}
	if retry.Enabled && retry.MaxAttempts == 0 {
		return fmt.Errorf("retry is enabled but max_attempts is 0")
	}
	return nil
}

// ValidateConfig performs comprehensive validation, returning every
// problem found.
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}
	if cfg.Logging.MaxSize < 0 {
		errors = append(errors, fmt.Errorf("logging.max_size must be >= 0"))
	}
	if cfg.Logging.MaxAge < 0 {
		errors = append(errors, fmt.Errorf("logging.max_age must be >= 0"))
	}

	if cfg.Metrics.Enabled {
		if err := v.ValidateListenAddr(cfg.Metrics.Addr); err != nil {
			errors = append(errors, fmt.Errorf("metrics: %w", err))
		}
	}

	if cfg.Tools.DefaultTimeoutSeconds < 0 {
		errors = append(errors, fmt.Errorf("tools.default_timeout_seconds must be >= 0"))
	}
	if cfg.Tools.ConfirmationTTLSeconds < 0 {
		errors = append(errors, fmt.Errorf("tools.confirmation_ttl_seconds must be >= 0"))
	}
	if err := v.ValidateRetry(cfg.Tools.Retry); err != nil {
		errors = append(errors, fmt.Errorf("tools: %w", err))
	}

	if cfg.Audit.Enabled && strings.TrimSpace(cfg.Audit.Path) == "" {
		errors = append(errors, fmt.Errorf("audit.path is required when the audit trail is enabled"))
	}

	if cfg.Packs.Web.Enabled {
		if cfg.Packs.Web.TimeoutSeconds < 0 {
			errors = append(errors, fmt.Errorf("packs.web.timeout_seconds must be >= 0"))
		}
		if cfg.Packs.Web.MaxBodyBytes < 0 {
			errors = append(errors, fmt.Errorf("packs.web.max_body_bytes must be >= 0"))
		}
	}

	return errors
}
