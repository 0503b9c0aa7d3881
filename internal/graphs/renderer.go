package graphs

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/engels74/tgraph-bot-go/internal/errclass"
)

// Dimensions sizes the rendered PNG, sourced from the factory's configured
// width/height/dpi (GraphDimensions in the original).
type Dimensions struct {
	Width, Height vg.Length
}

// DefaultDimensions matches a readable chat-embed attachment size.
func DefaultDimensions() Dimensions {
	return Dimensions{Width: 10 * vg.Inch, Height: 6 * vg.Inch}
}

// RenderError reports a single graph's render failure. It is always
// Transient from the classifier's point of view by default — most causes
// (a font/encoder hiccup) are worth a retry on the next scheduled run — but
// callers needing a different class can wrap it themselves.
type RenderError struct {
	Kind Kind
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("graphs: render %s: %v", e.Kind, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func (e *RenderError) ErrorClass() errclass.Class { return errclass.Transient }

var _ errclass.Classifiable = (*RenderError)(nil)

// series is one named, coloured value to plot. Renderers build one or more
// of these per graph kind (one per media-type bucket under separation, or a
// single series otherwise).
type series struct {
	label  string
	x      []string
	y      []float64
	colour color.Color
}

// Renderer produces kind's PNG for ds into dir, returning the written
// file's path. Every exit path — success, render failure, or a caller
// cancellation — must leave no open file descriptors or goroutines behind.
type Renderer func(ctx context.Context, kind Kind, ds Dataset, resolver *Resolver, dims Dimensions, dir string) (string, error)

// render is the shared entry point every Kind's constructor in registry.go
// calls after building its series.
func render(ctx context.Context, kind Kind, title string, data []series, dims Dimensions, dir string, bar bool) (path string, err error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if len(data) == 0 {
		return "", &RenderError{Kind: kind, Err: fmt.Errorf("no data to plot")}
	}

	p := plot.New()
	p.Title.Text = title

	var labels []string
	if bar {
		labels, err = addBars(p, data)
	} else {
		labels, err = addLines(p, data)
	}
	if err != nil {
		return "", &RenderError{Kind: kind, Err: err}
	}
	if labels != nil {
		p.NominalX(labels...)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &RenderError{Kind: kind, Err: err}
	}
	outPath := filepath.Join(dir, string(kind)+".png")

	if err := p.Save(dims.Width, dims.Height, outPath); err != nil {
		return "", &RenderError{Kind: kind, Err: err}
	}
	return outPath, nil
}

func addBars(p *plot.Plot, data []series) ([]string, error) {
	labels := data[0].x
	barWidth := vg.Points(20)
	offset := -barWidth * vg.Length(len(data)-1) / 2

	for i, s := range data {
		values := make(plotter.Values, len(s.y))
		copy(values, s.y)

		bc, err := plotter.NewBarChart(values, barWidth)
		if err != nil {
			return nil, fmt.Errorf("series %q: %w", s.label, err)
		}
		bc.Color = s.colour
		bc.Offset = offset + vg.Length(i)*barWidth
		p.Add(bc)
		if s.label != "" {
			p.Legend.Add(s.label, bc)
		}
	}
	return labels, nil
}

func addLines(p *plot.Plot, data []series) ([]string, error) {
	labels := data[0].x
	for _, s := range data {
		pts := make(plotter.XYs, len(s.y))
		for i, v := range s.y {
			pts[i].X = float64(i)
			pts[i].Y = v
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("series %q: %w", s.label, err)
		}
		line.Color = s.colour
		p.Add(line)
		if s.label != "" {
			p.Legend.Add(s.label, line)
		}
	}
	return labels, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
