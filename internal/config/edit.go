package config

import "fmt"

// applyEdit sets the field named by key on cfg to rawValue, sanitizing and
// format-validating it first. key uses this package's dotted,
// lower_snake_case naming for the set of options editable via a chat
// command.
func applyEdit(cfg *Config, key, rawValue string, meta OptionMeta) error {
	switch key {
	case "analytics.api_key":
		cfg.Analytics.APIKey = rawValue
	case "analytics.base_url":
		cfg.Analytics.BaseURL = rawValue
	case "chat.token":
		cfg.Chat.Token = rawValue
	case "chat.channel_id":
		cfg.Chat.ChannelID = rawValue

	case "schedule.update_days":
		v, err := SanitizeInt(rawValue, false)
		if err != nil {
			return err
		}
		cfg.Schedule.UpdateDays = v
	case "schedule.fixed_update_time":
		v, err := SanitizeClock(rawValue)
		if err != nil {
			return err
		}
		cfg.Schedule.FixedUpdateTime = v
	case "schedule.keep_days":
		v, err := SanitizeInt(rawValue, false)
		if err != nil {
			return err
		}
		cfg.Schedule.KeepDays = v
	case "schedule.time_range_days":
		v, err := SanitizeInt(rawValue, false)
		if err != nil {
			return err
		}
		cfg.Schedule.TimeRangeDays = v
	case "schedule.time_range_months":
		v, err := SanitizeInt(rawValue, false)
		if err != nil {
			return err
		}
		cfg.Schedule.TimeRangeMonths = v

	case "language":
		if err := validateEnum(key, rawValue, meta.AllowedValues); err != nil {
			return err
		}
		cfg.Language = rawValue

	case "graphs.censor_usernames":
		cfg.Graphs.CensorUsernames = SanitizeBool(rawValue)
	case "graphs.media_type_separation":
		cfg.Graphs.MediaTypeSeparation = SanitizeBool(rawValue)
	case "graphs.colors.tv_color":
		v, err := SanitizeColor(rawValue)
		if err != nil {
			return err
		}
		cfg.Graphs.Colors.TV = v
	case "graphs.colors.movie_color":
		v, err := SanitizeColor(rawValue)
		if err != nil {
			return err
		}
		cfg.Graphs.Colors.Movie = v
	case "graphs.colors.annotation_color":
		v, err := SanitizeColor(rawValue)
		if err != nil {
			return err
		}
		cfg.Graphs.Colors.Annotation = v

	case "cooldowns.config_cooldown_minutes":
		v, err := SanitizeInt(rawValue, true)
		if err != nil {
			return err
		}
		cfg.Cooldowns.ConfigPerUserMinutes = v
	case "cooldowns.config_global_cooldown_seconds":
		v, err := SanitizeInt(rawValue, true)
		if err != nil {
			return err
		}
		cfg.Cooldowns.ConfigGlobalSeconds = v
	case "cooldowns.update_graphs_cooldown_minutes":
		v, err := SanitizeInt(rawValue, true)
		if err != nil {
			return err
		}
		cfg.Cooldowns.UpdateGraphsPerUserMinutes = v
	case "cooldowns.update_graphs_global_cooldown_seconds":
		v, err := SanitizeInt(rawValue, true)
		if err != nil {
			return err
		}
		cfg.Cooldowns.UpdateGraphsGlobalSeconds = v
	case "cooldowns.my_stats_cooldown_minutes":
		v, err := SanitizeInt(rawValue, true)
		if err != nil {
			return err
		}
		cfg.Cooldowns.MyStatsPerUserMinutes = v
	case "cooldowns.my_stats_global_cooldown_seconds":
		v, err := SanitizeInt(rawValue, true)
		if err != nil {
			return err
		}
		cfg.Cooldowns.MyStatsGlobalSeconds = v

	default:
		return fmt.Errorf("config: %q has no edit handler", key)
	}
	return nil
}
