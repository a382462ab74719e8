package config

// Config is the root configuration structure for Arbiter. It contains
// all configuration sections for the policy engine, policy sources,
// the audit trail, and telemetry.
type Config struct {
	// Policy contains configuration for the policy engine including the
	// policy source directory, watch mode, and cache settings.
	Policy PolicyConfig `yaml:"policy"`

	// Audit contains configuration for the decision audit trail.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains configuration for observability including
	// logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// PolicyConfig contains configuration for the policy engine and its
// policy source.
type PolicyConfig struct {
	// Dir is the directory containing policy YAML files. Every file
	// with a .yaml or .yml extension is loaded.
	// Default: "policies"
	Dir string `yaml:"dir"`

	// Watch enables hot reloading: file changes in Dir are applied to
	// the running engine without a restart.
	// Default: false
	Watch bool `yaml:"watch"`

	// CacheTTL is the decision cache lifetime in seconds. Zero
	// disables caching.
	// Default: 300
	CacheTTL int `yaml:"cache_ttl"`

	// CacheSweepSchedule is an optional cron expression for the
	// background purge of expired cache entries. Empty disables it.
	// Default: "" (disabled)
	CacheSweepSchedule string `yaml:"cache_sweep_schedule"`

	// MaxPolicies is the maximum number of policies the engine will
	// hold at once.
	// Default: 1000
	MaxPolicies int `yaml:"max_policies"`

	// MaxRulesPerPolicy bounds the rule count accepted per policy.
	// Default: 100
	MaxRulesPerPolicy int `yaml:"max_rules_per_policy"`
}

// AuditConfig contains configuration for the decision audit trail.
type AuditConfig struct {
	// Enabled controls whether evaluation results are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file for audit records.
	// Default: "arbiter-audit.db"
	Path string `yaml:"path"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the Prometheus metric namespace prefix.
	// Default: "arbiter"
	Namespace string `yaml:"namespace"`

	// Subsystem is the Prometheus metric subsystem. Empty omits the
	// subsystem segment from metric names.
	// Default: ""
	Subsystem string `yaml:"subsystem"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
