package config

import "strconv"

// maskedPlaceholder replaces every secret value shown to `config view`. It
// never reveals even a prefix of the secret: the analytics API key and chat
// token must never be returned verbatim, even to a manage-guild operator.
const maskedPlaceholder = "••••••••"

// View renders cfg as a flat, display-ready map keyed by the same dotted
// paths used in Metadata, masking every key flagged Secret.
func View(cfg *Config) map[string]string {
	view := map[string]string{
		"analytics.api_key":  cfg.Analytics.APIKey,
		"analytics.base_url": cfg.Analytics.BaseURL,
		"chat.token":         cfg.Chat.Token,
		"chat.channel_id":    cfg.Chat.ChannelID,

		"schedule.update_days":       strconv.Itoa(cfg.Schedule.UpdateDays),
		"schedule.fixed_update_time": cfg.Schedule.FixedUpdateTime,
		"schedule.keep_days":         strconv.Itoa(cfg.Schedule.KeepDays),
		"schedule.time_range_days":   strconv.Itoa(cfg.Schedule.TimeRangeDays),
		"schedule.time_range_months": strconv.Itoa(cfg.Schedule.TimeRangeMonths),

		"language": cfg.Language,

		"graphs.censor_usernames":       boolStr(cfg.Graphs.CensorUsernames),
		"graphs.media_type_separation":  boolStr(cfg.Graphs.MediaTypeSeparation),
		"graphs.colors.tv_color":        cfg.Graphs.Colors.TV,
		"graphs.colors.movie_color":     cfg.Graphs.Colors.Movie,
		"graphs.colors.annotation_color": cfg.Graphs.Colors.Annotation,

		"cooldowns.config_cooldown_minutes":               strconv.Itoa(cfg.Cooldowns.ConfigPerUserMinutes),
		"cooldowns.config_global_cooldown_seconds":        strconv.Itoa(cfg.Cooldowns.ConfigGlobalSeconds),
		"cooldowns.update_graphs_cooldown_minutes":        strconv.Itoa(cfg.Cooldowns.UpdateGraphsPerUserMinutes),
		"cooldowns.update_graphs_global_cooldown_seconds": strconv.Itoa(cfg.Cooldowns.UpdateGraphsGlobalSeconds),
		"cooldowns.my_stats_cooldown_minutes":             strconv.Itoa(cfg.Cooldowns.MyStatsPerUserMinutes),
		"cooldowns.my_stats_global_cooldown_seconds":      strconv.Itoa(cfg.Cooldowns.MyStatsGlobalSeconds),
	}

	for key, meta := range Metadata {
		if meta.Secret {
			view[key] = maskedPlaceholder
		}
	}
	return view
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
