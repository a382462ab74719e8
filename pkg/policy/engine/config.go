package engine

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Config contains configuration for the policy engine.
type Config struct {
	// CacheTTL is the result cache lifetime in seconds. Entries older
	// than the TTL are treated as absent. Zero disables caching.
	// Default: 300.
	CacheTTL int

	// CacheSweepSchedule is an optional cron expression for purging
	// expired cache entries in the background. Lookup correctness
	// never depends on the sweep; it only reclaims memory. Empty
	// disables the janitor. Default: disabled.
	CacheSweepSchedule string

	// MaxPolicies is the maximum number of policies the store will
	// hold. Replacing an existing policy is always allowed.
	// Default: 1000.
	MaxPolicies int

	// MaxRulesPerPolicy bounds the rule count accepted per policy.
	// Default: 100.
	MaxRulesPerPolicy int

	// BusinessHours configures the built-in time evaluator.
	BusinessHours *BusinessHoursConfig
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		CacheTTL:          300,
		MaxPolicies:       1000,
		MaxRulesPerPolicy: 100,
		BusinessHours:     DefaultBusinessHoursConfig(),
	}
}

// Validate validates the engine configuration.
func (c *Config) Validate() error {
	if c.CacheTTL < 0 {
		return fmt.Errorf("%w: cache TTL cannot be negative", ErrInvalidConfig)
	}
	if c.CacheSweepSchedule != "" {
		if _, err := cron.ParseStandard(c.CacheSweepSchedule); err != nil {
			return fmt.Errorf("%w: invalid cache sweep schedule %q: %v", ErrInvalidConfig, c.CacheSweepSchedule, err)
		}
	}
	if c.MaxPolicies <= 0 {
		return fmt.Errorf("%w: max policies must be positive", ErrInvalidConfig)
	}
	if c.MaxRulesPerPolicy <= 0 {
		return fmt.Errorf("%w: max rules per policy must be positive", ErrInvalidConfig)
	}
	if c.BusinessHours != nil {
		if err := c.BusinessHours.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// WithCacheTTL sets the cache TTL in seconds.
func (c *Config) WithCacheTTL(seconds int) *Config {
	c.CacheTTL = seconds
	return c
}

// WithCacheSweepSchedule sets the cron schedule for the cache janitor.
func (c *Config) WithCacheSweepSchedule(schedule string) *Config {
	c.CacheSweepSchedule = schedule
	return c
}

// WithMaxPolicies sets the maximum number of policies.
func (c *Config) WithMaxPolicies(max int) *Config {
	c.MaxPolicies = max
	return c
}

// WithMaxRulesPerPolicy sets the maximum number of rules per policy.
func (c *Config) WithMaxRulesPerPolicy(max int) *Config {
	c.MaxRulesPerPolicy = max
	return c
}
