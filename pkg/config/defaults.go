package config

// DefaultConfig returns a configuration populated with all defaults.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in default values for any field left at its
// zero value. Explicitly configured values are never overwritten.
func ApplyDefaults(cfg *Config) {
	if cfg.Policy.Dir == "" {
		cfg.Policy.Dir = "policies"
	}
	if cfg.Policy.CacheTTL == 0 {
		cfg.Policy.CacheTTL = 300
	}
	if cfg.Policy.MaxPolicies == 0 {
		cfg.Policy.MaxPolicies = 1000
	}
	if cfg.Policy.MaxRulesPerPolicy == 0 {
		cfg.Policy.MaxRulesPerPolicy = 100
	}

	if cfg.Audit.Path == "" {
		cfg.Audit.Path = "arbiter-audit.db"
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}

	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "arbiter"
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = "/metrics"
	}
}
