// Package config implements a typed, hot-editable configuration document
// with atomic on-disk saves, per-key validators, and a change-event feed
// consumed by the scheduler and orchestrator.
//
// Field layout uses a lower_snake_case, nested-section shape. Loading and
// hot-reload are wired through viper: AddConfigPath/SetConfigType/
// SetConfigName/SetConfigFile, then Unmarshal into a typed struct. Atomic
// saves reuse the temp-file+fsync+rename pattern from
// internal/state/store.go, written with goccy/go-yaml rather than viper's
// own (read-only) YAML codec.
package config

import (
	"strings"
	"time"

	"github.com/engels74/tgraph-bot-go/internal/analytics"
	"github.com/engels74/tgraph-bot-go/internal/graphs"
	"github.com/engels74/tgraph-bot-go/internal/retry"
	"github.com/engels74/tgraph-bot-go/internal/schedule"
)

// Config is the full typed configuration document.
type Config struct {
	Analytics AnalyticsConfig `yaml:"analytics" mapstructure:"analytics"`
	Chat      ChatConfig      `yaml:"chat" mapstructure:"chat"`
	Schedule  ScheduleConfig  `yaml:"schedule" mapstructure:"schedule"`
	Graphs    GraphsConfig    `yaml:"graphs" mapstructure:"graphs"`
	Cooldowns CooldownConfig  `yaml:"cooldowns" mapstructure:"cooldowns"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Language  string          `yaml:"language" mapstructure:"language"`
}

// RetryConfig holds the scheduler/supervisor retry-and-breaker constants.
// Unlike the rest of Config these are not exposed through the config chat
// command: tuning the retry/breaker curve is an operator-only concern read
// once at startup rather than something worth hot-reloading.
type RetryConfig struct {
	MaxAttempts      int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelay        time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	MaxDelay         time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	ExponentialBase  float64       `yaml:"exponential_base" mapstructure:"exponential_base"`
	Jitter           bool          `yaml:"jitter" mapstructure:"jitter"`
	FailureThreshold int           `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold" mapstructure:"success_threshold"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout" mapstructure:"recovery_timeout"`
}

// Policy builds the validated retry.Policy the supervisor and scheduler
// share.
func (c *Config) Policy() (*retry.Policy, error) {
	r := c.Retry
	return retry.New(r.MaxAttempts, r.BaseDelay, r.MaxDelay, r.ExponentialBase, r.Jitter, r.FailureThreshold, r.SuccessThreshold, r.RecoveryTimeout)
}

// AnalyticsConfig names the upstream media-analytics service.
type AnalyticsConfig struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ChatConfig names the chat-service credential and posting target.
type ChatConfig struct {
	Token     string `yaml:"token" mapstructure:"token"`
	ChannelID string `yaml:"channel_id" mapstructure:"channel_id"`
}

// ScheduleConfig drives the TimestampCalculator and orchestrator cadence.
type ScheduleConfig struct {
	UpdateDays      int    `yaml:"update_days" mapstructure:"update_days"`
	FixedUpdateTime string `yaml:"fixed_update_time" mapstructure:"fixed_update_time"`
	KeepDays        int    `yaml:"keep_days" mapstructure:"keep_days"`
	TimeRangeDays   int    `yaml:"time_range_days" mapstructure:"time_range_days"`
	TimeRangeMonths int    `yaml:"time_range_months" mapstructure:"time_range_months"`
}

// GraphsConfig controls which graphs render and how they're coloured.
type GraphsConfig struct {
	CensorUsernames     bool              `yaml:"censor_usernames" mapstructure:"censor_usernames"`
	MediaTypeSeparation bool              `yaml:"media_type_separation" mapstructure:"media_type_separation"`
	Enabled             map[string]bool   `yaml:"enabled" mapstructure:"enabled"`
	Palettes            map[string]string `yaml:"palettes" mapstructure:"palettes"`
	Colors              ColorsConfig      `yaml:"colors" mapstructure:"colors"`
}

// ColorsConfig holds the per-media-type and annotation hex colours.
type ColorsConfig struct {
	TV         string `yaml:"tv_color" mapstructure:"tv_color"`
	Movie      string `yaml:"movie_color" mapstructure:"movie_color"`
	Annotation string `yaml:"annotation_color" mapstructure:"annotation_color"`
}

// CooldownConfig holds per-user and global cooldowns for each command.
// A value ≤ 0 disables that cooldown.
type CooldownConfig struct {
	ConfigPerUserMinutes       int `yaml:"config_cooldown_minutes" mapstructure:"config_cooldown_minutes"`
	ConfigGlobalSeconds        int `yaml:"config_global_cooldown_seconds" mapstructure:"config_global_cooldown_seconds"`
	UpdateGraphsPerUserMinutes int `yaml:"update_graphs_cooldown_minutes" mapstructure:"update_graphs_cooldown_minutes"`
	UpdateGraphsGlobalSeconds  int `yaml:"update_graphs_global_cooldown_seconds" mapstructure:"update_graphs_global_cooldown_seconds"`
	MyStatsPerUserMinutes      int `yaml:"my_stats_cooldown_minutes" mapstructure:"my_stats_cooldown_minutes"`
	MyStatsGlobalSeconds       int `yaml:"my_stats_global_cooldown_seconds" mapstructure:"my_stats_global_cooldown_seconds"`
}

// SchedulingConfig builds the immutable schedule.SchedulingConfig the
// TimestampCalculator consumes, mapping the "disabled" sentinel both ways.
func (c *Config) SchedulingConfig() (schedule.SchedulingConfig, error) {
	fixedTime := c.Schedule.FixedUpdateTime
	if strings.EqualFold(fixedTime, "disabled") || strings.EqualFold(fixedTime, "XX:XX") || fixedTime == "" {
		fixedTime = schedule.DisabledFixedTime
	}
	return schedule.NewSchedulingConfig(c.Schedule.UpdateDays, fixedTime)
}

// GraphsEnabled projects the configured toggle map onto every known graph
// kind, defaulting an absent key to disabled.
func (c *Config) GraphsEnabled() graphs.Enabled {
	enabled := make(graphs.Enabled, len(graphs.AllKinds))
	for _, k := range graphs.AllKinds {
		enabled[k] = c.Graphs.Enabled[string(k)]
	}
	return enabled
}

// ColorConfig builds the graphs.ColorConfig the palette resolver consumes.
func (c *Config) ColorConfig() graphs.ColorConfig {
	palettes := make(map[graphs.Kind]string, len(c.Graphs.Palettes))
	for k, v := range c.Graphs.Palettes {
		palettes[graphs.Kind(k)] = v
	}
	return graphs.ColorConfig{
		Palettes:            palettes,
		MediaTypeSeparation: c.Graphs.MediaTypeSeparation,
		MovieColor:          c.Graphs.Colors.Movie,
		TVColor:             c.Graphs.Colors.TV,
	}
}

// TimeRange builds the analytics.TimeRange the fetcher consumes.
func (c *Config) TimeRange() analytics.TimeRange {
	return analytics.TimeRange{Days: c.Schedule.TimeRangeDays, Months: c.Schedule.TimeRangeMonths}
}
