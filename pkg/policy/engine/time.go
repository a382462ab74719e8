package engine

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// BusinessHoursConfig defines business hours for the built-in time
// evaluator.
type BusinessHoursConfig struct {
	// Timezone for business hours (e.g. "America/New_York", "UTC").
	Timezone string

	// DaysOfWeek defines which days are business days (1 = Monday,
	// 7 = Sunday). Empty means all days.
	DaysOfWeek []int

	// StartHour is the start of business hours (0-23).
	StartHour int

	// EndHour is the end of business hours (0-23, exclusive).
	EndHour int
}

// DefaultBusinessHoursConfig returns Mon-Fri, 9am-5pm UTC.
func DefaultBusinessHoursConfig() *BusinessHoursConfig {
	return &BusinessHoursConfig{
		Timezone:   "UTC",
		DaysOfWeek: []int{1, 2, 3, 4, 5},
		StartHour:  9,
		EndHour:    17,
	}
}

// Validate validates the business hours configuration.
func (c *BusinessHoursConfig) Validate() error {
	if c.StartHour < 0 || c.StartHour > 23 {
		return fmt.Errorf("%w: business hours start hour %d out of range", ErrInvalidConfig, c.StartHour)
	}
	if c.EndHour < 0 || c.EndHour > 23 {
		return fmt.Errorf("%w: business hours end hour %d out of range", ErrInvalidConfig, c.EndHour)
	}
	for _, day := range c.DaysOfWeek {
		if day < 1 || day > 7 {
			return fmt.Errorf("%w: business hours day %d out of range", ErrInvalidConfig, day)
		}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: invalid business hours timezone %q", ErrInvalidConfig, c.Timezone)
	}
	return nil
}

// Contains reports whether t falls within business hours.
func (c *BusinessHoursConfig) Contains(t time.Time) bool {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := t.In(loc)

	if len(c.DaysOfWeek) > 0 {
		day := int(local.Weekday())
		if day == 0 {
			day = 7 // ISO numbering: Sunday is 7
		}
		businessDay := false
		for _, d := range c.DaysOfWeek {
			if day == d {
				businessDay = true
				break
			}
		}
		if !businessDay {
			return false
		}
	}

	hour := local.Hour()
	return hour >= c.StartHour && hour < c.EndHour
}

// TimeEvaluator is a built-in condition evaluator for time-of-day
// rules. It handles the expressions "time:business_hours" and
// "time:weekend"; anything else evaluates to false.
//
// Register it under the name "time":
//
//	eng.RegisterEvaluator("time", engine.NewTimeEvaluator(cfg.BusinessHours, nil))
type TimeEvaluator struct {
	businessHours *BusinessHoursConfig

	// now is replaceable for tests.
	now func() time.Time
}

// NewTimeEvaluator creates a time evaluator. A nil config uses
// DefaultBusinessHoursConfig; a nil clock uses time.Now.
func NewTimeEvaluator(businessHours *BusinessHoursConfig, clock func() time.Time) *TimeEvaluator {
	if businessHours == nil {
		businessHours = DefaultBusinessHoursConfig()
	}
	if clock == nil {
		clock = time.Now
	}
	return &TimeEvaluator{businessHours: businessHours, now: clock}
}

// Evaluate implements ConditionEvaluator.
func (e *TimeEvaluator) Evaluate(ctx context.Context, expression string, _ *EvaluationContext) (bool, error) {
	arg, ok := strings.CutPrefix(expression, "time:")
	if !ok {
		return false, nil
	}

	switch arg {
	case "business_hours":
		return e.businessHours.Contains(e.now()), nil
	case "weekend":
		day := e.now().In(e.location()).Weekday()
		return day == time.Saturday || day == time.Sunday, nil
	default:
		return false, nil
	}
}

func (e *TimeEvaluator) location() *time.Location {
	loc, err := time.LoadLocation(e.businessHours.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
