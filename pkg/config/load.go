package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified
// path. It applies default values, validates the configuration, and
// returns any errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention ARBITER_SECTION_FIELD (e.g. ARBITER_POLICY_DIR) and
// always take precedence over file-based configuration.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("ARBITER_POLICY_DIR"); val != "" {
		cfg.Policy.Dir = val
	}
	if val := os.Getenv("ARBITER_POLICY_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Policy.Watch = b
		}
	}
	if val := os.Getenv("ARBITER_POLICY_CACHE_TTL"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Policy.CacheTTL = i
		}
	}
	if val := os.Getenv("ARBITER_POLICY_CACHE_SWEEP_SCHEDULE"); val != "" {
		cfg.Policy.CacheSweepSchedule = val
	}
	if val := os.Getenv("ARBITER_POLICY_MAX_POLICIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Policy.MaxPolicies = i
		}
	}
	if val := os.Getenv("ARBITER_POLICY_MAX_RULES_PER_POLICY"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Policy.MaxRulesPerPolicy = i
		}
	}

	if val := os.Getenv("ARBITER_AUDIT_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Audit.Enabled = b
		}
	}
	if val := os.Getenv("ARBITER_AUDIT_PATH"); val != "" {
		cfg.Audit.Path = val
	}

	if val := os.Getenv("ARBITER_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("ARBITER_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("ARBITER_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("ARBITER_TELEMETRY_METRICS_NAMESPACE"); val != "" {
		cfg.Telemetry.Metrics.Namespace = val
	}
	if val := os.Getenv("ARBITER_TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
}
