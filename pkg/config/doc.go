// Package config defines the application configuration for Arbiter.
//
// Configuration is loaded from a YAML file, filled in with defaults,
// optionally overridden from ARBITER_* environment variables, and
// validated before use. The zero value of Config is not usable; go
// through LoadConfig or DefaultConfig.
package config
