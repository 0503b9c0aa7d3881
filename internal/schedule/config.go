package schedule

import (
	"fmt"
	"time"
)

// DisabledFixedTime is the sentinel value for SchedulingConfig.FixedUpdateTime
// meaning "interval mode": fire update_days apart, with no wall-clock anchor.
const DisabledFixedTime = "disabled"

// ConfigError reports an invalid scheduling configuration value. It is
// returned by NewSchedulingConfig and never by the calculator itself.
type ConfigError struct {
	Field string
	Value any
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("scheduling config: field %s=%v: %s", e.Field, e.Value, e.Msg)
}

// SchedulingConfig is an immutable value describing how often and, optionally,
// at what wall-clock time the update pipeline should fire.
type SchedulingConfig struct {
	updateDays      int
	fixedUpdateTime string // "HH:MM" or DisabledFixedTime
	hour, minute    int    // parsed, only meaningful when fixedUpdateTime != DisabledFixedTime
}

// NewSchedulingConfig validates updateDays and fixedUpdateTime and constructs
// an immutable SchedulingConfig, or returns a *ConfigError.
func NewSchedulingConfig(updateDays int, fixedUpdateTime string) (SchedulingConfig, error) {
	if updateDays < 1 || updateDays > 365 {
		return SchedulingConfig{}, &ConfigError{
			Field: "update_days",
			Value: updateDays,
			Msg:   "must be between 1 and 365",
		}
	}

	if fixedUpdateTime == DisabledFixedTime || fixedUpdateTime == "" {
		return SchedulingConfig{
			updateDays:      updateDays,
			fixedUpdateTime: DisabledFixedTime,
		}, nil
	}

	hour, minute, err := parseClock(fixedUpdateTime)
	if err != nil {
		return SchedulingConfig{}, &ConfigError{
			Field: "fixed_update_time",
			Value: fixedUpdateTime,
			Msg:   err.Error(),
		}
	}

	return SchedulingConfig{
		updateDays:      updateDays,
		fixedUpdateTime: fixedUpdateTime,
		hour:            hour,
		minute:          minute,
	}, nil
}

func parseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("must be \"HH:MM\" or %q: %w", DisabledFixedTime, err)
	}
	return t.Hour(), t.Minute(), nil
}

// UpdateDays returns the configured cadence in days.
func (c SchedulingConfig) UpdateDays() int { return c.updateDays }

// FixedTimeEnabled reports whether fixed-time mode is active.
func (c SchedulingConfig) FixedTimeEnabled() bool {
	return c.fixedUpdateTime != DisabledFixedTime
}

// FixedUpdateTime returns the configured "HH:MM" string, or DisabledFixedTime.
func (c SchedulingConfig) FixedUpdateTime() string { return c.fixedUpdateTime }

// ClockTime returns the configured hour/minute. Only meaningful when
// FixedTimeEnabled is true.
func (c SchedulingConfig) ClockTime() (hour, minute int) { return c.hour, c.minute }
