package config

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/engels74/tgraph-bot-go/internal/graphs"
)

// FieldError reports one invalid field found by Validate.
type FieldError struct {
	Key    string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

var hexColorPattern = regexp.MustCompile(`^[0-9a-fA-F]{3}([0-9a-fA-F])?$|^[0-9a-fA-F]{6}([0-9a-fA-F]{2})?$`)

// validateHexColor accepts #RGB, #RGBA, #RRGGBB, or #RRGGBBAA.
func validateHexColor(key, value string) error {
	if !strings.HasPrefix(value, "#") {
		return &FieldError{key, "must start with '#'"}
	}
	if !hexColorPattern.MatchString(value[1:]) {
		return &FieldError{key, "must be #RGB, #RGBA, #RRGGBB, or #RRGGBBAA"}
	}
	return nil
}

// validateClockOrDisabled accepts "HH:MM", "disabled", or the original's
// "XX:XX" spelling of disabled.
func validateClockOrDisabled(key, value string) error {
	if strings.EqualFold(value, "disabled") || strings.EqualFold(value, "XX:XX") {
		return nil
	}
	if _, err := time.Parse("15:04", value); err != nil {
		return &FieldError{key, `must be "HH:MM" or "disabled"`}
	}
	return nil
}

// validateURL enforces http(s) only, no loopback/private/link-local/
// multicast host, bounded hostname length, no path traversal or null-byte
// injection, no implausible subdomain nesting.
func validateURL(key, raw string) error {
	if raw == "" || len(raw) > 2048 {
		return &FieldError{key, "must be a non-empty URL under 2048 characters"}
	}
	if strings.Contains(raw, "%00") {
		return &FieldError{key, "must not contain a null byte"}
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return &FieldError{key, "must be a valid URL: " + err.Error()}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &FieldError{key, "scheme must be http or https"}
	}
	if parsed.Host == "" {
		return &FieldError{key, "must include a host"}
	}
	if len(parsed.Host) > 253 {
		return &FieldError{key, "host name is too long"}
	}
	if strings.Contains(parsed.Path, "..") {
		return &FieldError{key, "path must not contain '..'"}
	}

	hostname := parsed.Hostname()
	if strings.EqualFold(hostname, "localhost") || strings.HasPrefix(strings.ToLower(hostname), "localhost") {
		return &FieldError{key, "must not point at localhost"}
	}
	if strings.Count(hostname, ".") > 10 {
		return &FieldError{key, "host name has an implausible number of subdomains"}
	}
	if ip := net.ParseIP(hostname); ip != nil && isPrivateOrLoopback(ip) {
		return &FieldError{key, "must not point at a private, loopback, link-local, or multicast address"}
	}
	return nil
}

func isPrivateOrLoopback(ip net.IP) bool {
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsMulticast()
}

func validateEnum(key, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &FieldError{key, fmt.Sprintf("must be one of %v", allowed)}
}

func validatePositive(key string, v int) error {
	if v < 1 {
		return &FieldError{key, "must be >= 1"}
	}
	return nil
}

func validateRequired(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return &FieldError{key, "is required"}
	}
	return nil
}

// Validate checks cfg against every configuration rule, aggregating all
// violations via multierr rather than failing on the first, so `config
// edit`/startup can report everything wrong at once.
func Validate(cfg *Config) error {
	var errs error

	errs = multierr.Append(errs, validateRequired("analytics.api_key", cfg.Analytics.APIKey))
	errs = multierr.Append(errs, validateURL("analytics.base_url", cfg.Analytics.BaseURL))
	errs = multierr.Append(errs, validateRequired("chat.token", cfg.Chat.Token))
	errs = multierr.Append(errs, validateRequired("chat.channel_id", cfg.Chat.ChannelID))

	if cfg.Schedule.UpdateDays < 1 || cfg.Schedule.UpdateDays > 365 {
		errs = multierr.Append(errs, &FieldError{"schedule.update_days", "must be between 1 and 365"})
	}
	errs = multierr.Append(errs, validateClockOrDisabled("schedule.fixed_update_time", cfg.Schedule.FixedUpdateTime))
	errs = multierr.Append(errs, validatePositive("schedule.keep_days", cfg.Schedule.KeepDays))
	errs = multierr.Append(errs, validatePositive("schedule.time_range_days", cfg.Schedule.TimeRangeDays))
	errs = multierr.Append(errs, validatePositive("schedule.time_range_months", cfg.Schedule.TimeRangeMonths))

	errs = multierr.Append(errs, validateEnum("language", cfg.Language, []string{"en", "da"}))

	errs = multierr.Append(errs, validateHexColor("graphs.colors.tv_color", cfg.Graphs.Colors.TV))
	errs = multierr.Append(errs, validateHexColor("graphs.colors.movie_color", cfg.Graphs.Colors.Movie))
	errs = multierr.Append(errs, validateHexColor("graphs.colors.annotation_color", cfg.Graphs.Colors.Annotation))

	for kind, palette := range cfg.Graphs.Palettes {
		if palette == "" {
			continue
		}
		if _, ok := graphs.DefaultPalettes[palette]; !ok {
			errs = multierr.Append(errs, &FieldError{"graphs.palettes." + kind, fmt.Sprintf("unrecognised palette %q", palette)})
		}
	}

	// Cooldowns: any integer is valid, including zero/negative (disabled);
	// no range check.

	if _, err := cfg.Policy(); err != nil {
		errs = multierr.Append(errs, &FieldError{"retry", err.Error()})
	}

	return errs
}
