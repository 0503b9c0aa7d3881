package config

import (
	"fmt"
	"strconv"
	"strings"
)

// SanitizeBool converts a raw command argument to bool, accepting common
// truthy/falsy spellings beyond Go's strconv.ParseBool.
func SanitizeBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on", "t", "y":
		return true
	default:
		return false
	}
}

// SanitizeInt parses a raw command argument to int. allowNonPositive mirrors
// the cooldown-key exemption in _sanitize_integer: when true, zero and
// negative values pass through unchanged (meaning "disabled"); otherwise the
// result is clamped to a minimum of 1.
func SanitizeInt(raw string, allowNonPositive bool) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		if f, ferr := strconv.ParseFloat(strings.TrimSpace(raw), 64); ferr == nil {
			v = int(f)
		} else {
			return 0, fmt.Errorf("config: %q is not an integer", raw)
		}
	}
	if !allowNonPositive && v < 1 {
		v = 1
	}
	return v, nil
}

// SanitizeColor normalises a raw hex colour to lowercase with a leading '#',
// returning an error if the result still doesn't validate.
func SanitizeColor(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	v = strings.Trim(v, `"'`)
	if !strings.HasPrefix(v, "#") {
		v = "#" + v
	}
	v = strings.ToLower(v)
	if err := validateHexColor("color", v); err != nil {
		return "", err
	}
	return v, nil
}

// SanitizeClock normalises a raw "HH:MM" string, or the disabled sentinel in
// either the internal "disabled" spelling or the original's "XX:XX".
func SanitizeClock(raw string) (string, error) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	if v == "XX:XX" || v == "DISABLED" {
		return "disabled", nil
	}
	lower := strings.ToLower(strings.TrimSpace(raw))
	if err := validateClockOrDisabled("fixed_update_time", lower); err != nil {
		return "", err
	}
	return lower, nil
}
