// Package graphs implements a registry of pure (dataset, config) ->
// image_path renderers plus the colour resolver they all share.
package graphs

import (
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Kind names one of the graph types the registry knows how to render.
type Kind string

const (
	DailyPlayCount       Kind = "daily_play_count"
	PlayCountByDayOfWeek Kind = "play_count_by_dayofweek"
	PlayCountByHourOfDay Kind = "play_count_by_hourofday"
	PlayCountByMonth     Kind = "play_count_by_month"
	Top10Platforms       Kind = "top_10_platforms"
	Top10Users           Kind = "top_10_users"
)

// AllKinds lists every graph kind the registry carries, in a stable
// presentation order.
var AllKinds = []Kind{
	DailyPlayCount,
	PlayCountByDayOfWeek,
	PlayCountByHourOfDay,
	PlayCountByMonth,
	Top10Platforms,
	Top10Users,
}

// defaultColor is used when nothing else resolves.
const defaultColor = "#1f77b4"

// ColorConfig carries the colour/palette configuration the resolver reads.
// One value is shared across every graph kind; the per-kind fields are
// keyed by Kind.
type ColorConfig struct {
	Palettes               map[Kind]string // graph-specific palette name, "" if unset
	MediaTypeSeparation    bool
	MovieColor, TVColor    string
	MusicColor, OtherColor string
}

// Palette is a registry of named multi-colour palettes a ColorConfig may
// reference. Recognised names are validated against this set.
type Palette map[string][]string

// DefaultPalettes mirrors the small built-in set a typical deployment
// configures; operators may only select from these or leave the key empty.
var DefaultPalettes = Palette{
	"default":  {"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd"},
	"viridis":  {"#440154", "#3b528b", "#21918c", "#5ec962", "#fde725"},
	"pastel":   {"#a6cee3", "#b2df8a", "#fb9a99", "#fdbf6f", "#cab2d6"},
	"mono_blue": {"#08306b", "#2171b5", "#4292c6", "#6baed6", "#9ecae1"},
}

// Resolver implements the three-tier colour priority rule: a configured,
// recognised per-graph palette wins; otherwise media-type separation
// colours; otherwise the default colour.
type Resolver struct {
	cfg      ColorConfig
	palettes Palette
}

// NewResolver returns a Resolver reading cfg, validating palette names
// against the given registry (DefaultPalettes in production).
func NewResolver(cfg ColorConfig, palettes Palette) *Resolver {
	if palettes == nil {
		palettes = DefaultPalettes
	}
	return &Resolver{cfg: cfg, palettes: palettes}
}

// EffectiveColours returns the ordered hex colours kind should render with.
func (r *Resolver) EffectiveColours(kind Kind) []string {
	if name, ok := r.cfg.Palettes[kind]; ok && name != "" {
		if colours, recognised := r.palettes[name]; recognised {
			return colours
		}
	}

	if r.cfg.MediaTypeSeparation {
		return r.mediaTypeColours()
	}

	return []string{defaultColor}
}

func (r *Resolver) mediaTypeColours() []string {
	colours := make([]string, 0, 4)
	for _, c := range []string{r.cfg.MovieColor, r.cfg.TVColor, r.cfg.MusicColor, r.cfg.OtherColor} {
		if c != "" {
			colours = append(colours, c)
		}
	}
	if len(colours) == 0 {
		return []string{defaultColor}
	}
	return colours
}

// ColourFor resolves the nth effective colour for kind as an image/color.Color,
// wrapping around the palette if there are more series than colours.
func (r *Resolver) ColourFor(kind Kind, seriesIndex int) (color.Color, error) {
	colours := r.EffectiveColours(kind)
	hex := colours[seriesIndex%len(colours)]
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, err
	}
	return c, nil
}
