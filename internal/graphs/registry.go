package graphs

import (
	"context"
	"fmt"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/engels74/tgraph-bot-go/internal/analytics"
)

// Enabled toggles which graph kinds a run should produce: one boolean per
// graph type.
type Enabled map[Kind]bool

// Registry maps each Kind to the constructor that builds its series from a
// Dataset, so bucketing logic is shared once instead of duplicated in every
// renderer.
type Registry struct {
	dims Dimensions
	dir  string
}

// NewRegistry returns a Registry writing PNGs under dir at dims.
func NewRegistry(dir string, dims Dimensions) *Registry {
	return &Registry{dims: dims, dir: dir}
}

// RenderEnabled renders every kind marked true in enabled and returns the
// produced file paths in Kind order, alongside one error per kind that
// failed: a *RenderError, or ctx's own error once ctx is done (nil entries
// are omitted). A failure rendering one kind never
// prevents the others from being attempted.
func (reg *Registry) RenderEnabled(ctx context.Context, ds Dataset, resolver *Resolver, enabled Enabled) ([]string, []error) {
	var paths []string
	var failures []error

	for _, kind := range AllKinds {
		if !enabled[kind] {
			continue
		}
		path, err := reg.render(ctx, kind, ds, resolver)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		paths = append(paths, path)
	}
	return paths, failures
}

func (reg *Registry) render(ctx context.Context, kind Kind, ds Dataset, resolver *Resolver) (string, error) {
	switch kind {
	case DailyPlayCount:
		return reg.renderDailyPlayCount(ctx, ds, resolver)
	case PlayCountByDayOfWeek:
		return reg.renderByDayOfWeek(ctx, ds, resolver)
	case PlayCountByHourOfDay:
		return reg.renderByHourOfDay(ctx, ds, resolver)
	case PlayCountByMonth:
		return reg.renderByMonth(ctx, ds, resolver)
	case Top10Platforms:
		return reg.renderTopPlatforms(ctx, ds, resolver)
	case Top10Users:
		return reg.renderTopUsers(ctx, ds, resolver)
	default:
		return "", &RenderError{Kind: kind, Err: fmt.Errorf("unregistered graph kind")}
	}
}

func (reg *Registry) renderDailyPlayCount(ctx context.Context, ds Dataset, resolver *Resolver) (string, error) {
	return reg.renderMediaSplit(ctx, DailyPlayCount, "Daily play count", ds, resolver, false, func(plays []analytics.Play) ([]string, []float64) {
		counts := countByDay(plays)
		keys := sortedKeys(counts)
		values := make([]float64, len(keys))
		for i, k := range keys {
			values[i] = float64(counts[k])
		}
		return keys, values
	})
}

func (reg *Registry) renderByDayOfWeek(ctx context.Context, ds Dataset, resolver *Resolver) (string, error) {
	dayNames := [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	return reg.renderMediaSplit(ctx, PlayCountByDayOfWeek, "Plays by day of week", ds, resolver, true, func(plays []analytics.Play) ([]string, []float64) {
		counts := countByDayOfWeek(plays)
		labels := make([]string, 7)
		values := make([]float64, 7)
		for i := 0; i < 7; i++ {
			labels[i] = dayNames[i]
			values[i] = float64(counts[i])
		}
		return labels, values
	})
}

func (reg *Registry) renderByHourOfDay(ctx context.Context, ds Dataset, resolver *Resolver) (string, error) {
	return reg.renderMediaSplit(ctx, PlayCountByHourOfDay, "Plays by hour of day", ds, resolver, true, func(plays []analytics.Play) ([]string, []float64) {
		counts := countByHourOfDay(plays)
		labels := make([]string, 24)
		values := make([]float64, 24)
		for i := 0; i < 24; i++ {
			labels[i] = fmt.Sprintf("%02d", i)
			values[i] = float64(counts[i])
		}
		return labels, values
	})
}

func (reg *Registry) renderByMonth(ctx context.Context, ds Dataset, resolver *Resolver) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	byMonth := make(map[string]map[analytics.MediaType]int)
	for _, m := range ds.Monthly {
		key := m.Month.Format("2006-01")
		if byMonth[key] == nil {
			byMonth[key] = make(map[analytics.MediaType]int)
		}
		byMonth[key][m.MediaType] += m.Count
	}
	months := sortedKeys(byMonth)

	colours := resolver.EffectiveColours(PlayCountByMonth)
	values := make([]float64, len(months))
	for i, month := range months {
		total := 0
		for _, c := range byMonth[month] {
			total += c
		}
		values[i] = float64(total)
	}
	col, err := hexColor(colours[0])
	if err != nil {
		return "", &RenderError{Kind: PlayCountByMonth, Err: err}
	}
	return render(ctx, PlayCountByMonth, "Plays by month", []series{{label: "plays", x: months, y: values, colour: col}}, reg.dims, reg.dir, false)
}

func (reg *Registry) renderTopPlatforms(ctx context.Context, ds Dataset, resolver *Resolver) (string, error) {
	return reg.renderRanked(ctx, Top10Platforms, "Top 10 platforms", ds, resolver, countByPlatform)
}

func (reg *Registry) renderTopUsers(ctx context.Context, ds Dataset, resolver *Resolver) (string, error) {
	return reg.renderRanked(ctx, Top10Users, "Top 10 users", ds, resolver, countByUser)
}

func (reg *Registry) renderRanked(ctx context.Context, kind Kind, title string, ds Dataset, resolver *Resolver, count func([]analytics.Play) map[string]int) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	ranked := topN(count(ds.Plays), 10)
	labels := make([]string, len(ranked))
	values := make([]float64, len(ranked))
	for i, r := range ranked {
		labels[i] = r.Label
		values[i] = float64(r.Count)
	}
	colours := resolver.EffectiveColours(kind)
	col, err := hexColor(colours[0])
	if err != nil {
		return "", &RenderError{Kind: kind, Err: err}
	}
	return render(ctx, kind, title, []series{{label: "", x: labels, y: values, colour: col}}, reg.dims, reg.dir, true)
}

// renderMediaSplit builds one series per media-type bucket whenever the
// resolved colours have more than one entry (media-type separation or a
// multi-colour palette) and the plays span more than one bucket, or a single
// series otherwise — the shared pattern every per-play-history graph follows.
func (reg *Registry) renderMediaSplit(ctx context.Context, kind Kind, title string, ds Dataset, resolver *Resolver, bar bool, extract func([]analytics.Play) ([]string, []float64)) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	colours := resolver.EffectiveColours(kind)
	buckets := bucketByMediaType(ds.Plays)
	useSplit := len(colours) > 1 && len(buckets) > 1

	var data []series
	if !useSplit {
		labels, values := extract(ds.Plays)
		col, err := hexColor(colours[0])
		if err != nil {
			return "", &RenderError{Kind: kind, Err: err}
		}
		data = []series{{label: "", x: labels, y: values, colour: col}}
	} else {
		mediaKinds := []analytics.MediaType{analytics.Movie, analytics.TV, analytics.Music, analytics.Other}
		for i, mt := range mediaKinds {
			plays, ok := buckets[mt]
			if !ok {
				continue
			}
			labels, values := extract(plays)
			col, err := hexColor(colours[i%len(colours)])
			if err != nil {
				return "", &RenderError{Kind: kind, Err: err}
			}
			data = append(data, series{label: string(mt), x: labels, y: values, colour: col})
		}
	}

	return render(ctx, kind, title, data, reg.dims, reg.dir, bar)
}

func hexColor(hex string) (color.Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	return c, nil
}
