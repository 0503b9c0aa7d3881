package config

import (
	"time"

	"github.com/engels74/tgraph-bot-go/internal/graphs"
)

// Default returns a starter configuration with placeholder credentials and
// the same baseline values as the original's create_default_config: every
// graph enabled, a 7-day cadence, fixed-time mode disabled, and the
// original's default TV/movie colour pair.
func Default() *Config {
	enabled := make(map[string]bool, len(graphs.AllKinds))
	for _, k := range graphs.AllKinds {
		enabled[string(k)] = true
	}

	return &Config{
		Analytics: AnalyticsConfig{
			APIKey:  "your_tautulli_api_key",
			BaseURL: "http://your_tautulli_host:8181/api/v2",
		},
		Chat: ChatConfig{
			Token:     "your_discord_bot_token",
			ChannelID: "your_channel_id",
		},
		Schedule: ScheduleConfig{
			UpdateDays:      7,
			FixedUpdateTime: "disabled",
			KeepDays:        7,
			TimeRangeDays:   30,
			TimeRangeMonths: 12,
		},
		Graphs: GraphsConfig{
			CensorUsernames:     true,
			MediaTypeSeparation: false,
			Enabled:             enabled,
			Palettes:            map[string]string{},
			Colors: ColorsConfig{
				TV:         "#1f77b4",
				Movie:      "#ff7f0e",
				Annotation: "#ff0000",
			},
		},
		Cooldowns: CooldownConfig{
			ConfigPerUserMinutes:       1,
			ConfigGlobalSeconds:        30,
			UpdateGraphsPerUserMinutes: 5,
			UpdateGraphsGlobalSeconds:  60,
			MyStatsPerUserMinutes:      5,
			MyStatsGlobalSeconds:       60,
		},
		Retry: RetryConfig{
			MaxAttempts:      5,
			BaseDelay:        2 * time.Second,
			MaxDelay:         5 * time.Minute,
			ExponentialBase:  2.0,
			Jitter:           true,
			FailureThreshold: 3,
			SuccessThreshold: 2,
			RecoveryTimeout:  100 * time.Second,
		},
		Language: "en",
	}
}
