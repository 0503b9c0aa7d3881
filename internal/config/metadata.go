package config

// Format names the per-key syntax validate.go and sanitize.go enforce.
type Format string

const (
	FormatNone           Format = ""
	FormatHex            Format = "hex"
	FormatClockOrDisabled Format = "HH:MM"
	FormatURL            Format = "url"
)

// OptionMeta describes one dotted configuration key for the `config edit`
// command surface: its format, whether it is a secret to mask in `config
// view`, and whether changing it requires a bot restart rather than a live
// refresh.
type OptionMeta struct {
	Format          Format
	AllowedValues   []string
	Secret          bool
	RestartRequired bool
	Description     string
}

// Metadata is the full catalogue of keys editable via the `config edit`
// command, keyed by dotted path matching the YAML document's nesting.
var Metadata = map[string]OptionMeta{
	"analytics.api_key":  {Secret: true, RestartRequired: true, Description: "Analytics service API key"},
	"analytics.base_url": {Format: FormatURL, RestartRequired: true, Description: "Analytics service base URL"},
	"chat.token":         {Secret: true, RestartRequired: true, Description: "Chat service bot token"},
	"chat.channel_id":    {RestartRequired: true, Description: "Target channel for posted graphs"},

	"schedule.update_days":       {Description: "Days between graph updates"},
	"schedule.fixed_update_time": {Format: FormatClockOrDisabled, Description: "Fixed wall-clock update time, or \"disabled\""},
	"schedule.keep_days":         {Description: "Days to keep rendered artifacts"},
	"schedule.time_range_days":   {Description: "Days of history included in graphs"},
	"schedule.time_range_months": {Description: "Months of history included in monthly graphs"},

	"language": {AllowedValues: []string{"en", "da"}, Description: "Interface language"},

	"graphs.censor_usernames":      {Description: "Censor usernames in rendered graphs"},
	"graphs.media_type_separation": {Description: "Colour-separate series by media type"},
	"graphs.colors.tv_color":        {Format: FormatHex, Description: "TV series colour"},
	"graphs.colors.movie_color":     {Format: FormatHex, Description: "Movie colour"},
	"graphs.colors.annotation_color": {Format: FormatHex, Description: "Annotation colour"},

	"cooldowns.config_cooldown_minutes":               {Description: "Per-user cooldown for /config"},
	"cooldowns.config_global_cooldown_seconds":        {Description: "Global cooldown for /config"},
	"cooldowns.update_graphs_cooldown_minutes":        {Description: "Per-user cooldown for /update_graphs"},
	"cooldowns.update_graphs_global_cooldown_seconds": {Description: "Global cooldown for /update_graphs"},
	"cooldowns.my_stats_cooldown_minutes":             {Description: "Per-user cooldown for /my_stats"},
	"cooldowns.my_stats_global_cooldown_seconds":      {Description: "Global cooldown for /my_stats"},
}

// scheduleAffectingKeys trigger a scheduler refresh on successful edit.
var scheduleAffectingKeys = map[string]bool{
	"schedule.update_days":       true,
	"schedule.fixed_update_time": true,
	"language":                   true,
}
