package config

import (
	"fmt"
	"strings"
	"time"
)

// SupportedFormats lists the report formats accepted by the check command.
var SupportedFormats = []string{"text", "json", "sarif"}

// ValidateConfig checks if the global configurations have valid values.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML global config: configuration object is nil")
	}
	if err := ValidateFormat(cfg.Format); err != nil {
		return fmt.Errorf("YAML global config: format directive is invalid: %w", err)
	}
	if err := ValidateEngineConfig(&cfg.Engine); err != nil {
		return fmt.Errorf("YAML global config: engine directive is invalid: %w", err)
	}
	if strings.TrimSpace(cfg.BaselinePath) == "" {
		return fmt.Errorf("YAML global config: baseline_path must not be empty")
	}
	return nil
}

// ValidateFormat checks that format is one of SupportedFormats.
func ValidateFormat(format string) error {
	for _, f := range SupportedFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("unsupported format %q, expected one of %s", format, strings.Join(SupportedFormats, ", "))
}

// ValidateEngineConfig checks if the engine configurations have valid values.
func ValidateEngineConfig(engine *Engine) error {
	if engine == nil {
		return fmt.Errorf("engine configuration is nil")
	}
	if strings.TrimSpace(engine.Binary) == "" {
		return fmt.Errorf("binary must not be empty")
	}
	if err := validateDuration(engine.Timeout, "timeout", 24*time.Hour); err != nil {
		return err
	}
	for _, arg := range engine.ExtraArgs {
		if arg == "--config" || arg == "-c" || arg == "--json" {
			return fmt.Errorf("extra_args must not override %q, it is managed by sine", arg)
		}
	}
	return nil
}

// validateDuration checks that a time.Duration is valid and within a specified maximum duration.
func validateDuration(d time.Duration, name string, max time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid duration for %q: %v cannot be negative", name, d)
	}
	if d > max {
		return fmt.Errorf("%q duration is too long: %v exceeds maximum of %v", name, d, max)
	}
	return nil
}
