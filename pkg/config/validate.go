package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for invalid or inconsistent
// values. It returns the first problem found.
func Validate(cfg *Config) error {
	if cfg.Policy.Dir == "" {
		return fmt.Errorf("policy.dir cannot be empty")
	}
	if cfg.Policy.CacheTTL < 0 {
		return fmt.Errorf("policy.cache_ttl cannot be negative")
	}
	if cfg.Policy.CacheSweepSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Policy.CacheSweepSchedule); err != nil {
			return fmt.Errorf("policy.cache_sweep_schedule is not a valid cron expression: %w", err)
		}
	}
	if cfg.Policy.MaxPolicies <= 0 {
		return fmt.Errorf("policy.max_policies must be positive")
	}
	if cfg.Policy.MaxRulesPerPolicy <= 0 {
		return fmt.Errorf("policy.max_rules_per_policy must be positive")
	}

	if cfg.Audit.Enabled && cfg.Audit.Path == "" {
		return fmt.Errorf("audit.path cannot be empty when audit is enabled")
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.logging.level must be one of debug, info, warn, error; got %q", cfg.Telemetry.Logging.Level)
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.logging.format must be json or text; got %q", cfg.Telemetry.Logging.Format)
	}

	if cfg.Telemetry.Metrics.Enabled {
		if cfg.Telemetry.Metrics.Namespace == "" {
			return fmt.Errorf("telemetry.metrics.namespace cannot be empty when metrics are enabled")
		}
		if !strings.HasPrefix(cfg.Telemetry.Metrics.Path, "/") {
			return fmt.Errorf("telemetry.metrics.path must start with /; got %q", cfg.Telemetry.Metrics.Path)
		}
	}

	return nil
}
