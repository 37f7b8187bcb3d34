// Package plots renders the static comparison figures of a run with
// gonum/plot.
package plots

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"pdlens/domain/importance"
	"pdlens/domain/interpret"
	"pdlens/domain/report"
	"pdlens/internal"
	"pdlens/internal/errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Output file names.
const (
	ImportanceFile   = "parkinson_feature_importance.png"
	DistributionFile = "feature_type_distribution.png"
	ComparisonFile   = "importance_comparison.png"
)

// BarsPerMethod caps the bars drawn per method panel.
const BarsPerMethod = 15

// Renderer is a ports.PlotRenderer writing PNG files.
type Renderer struct {
	dir    string
	logger *internal.Logger
}

// NewRenderer writes figures into dir.
func NewRenderer(dir string, logger *internal.Logger) *Renderer {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Renderer{dir: dir, logger: logger.WithComponent("plots")}
}

// RenderPlots writes the per-method bar panels, the category distribution
// and the F-statistic vs permutation scatter.
func (r *Renderer) RenderPlots(ctx context.Context, summary *importance.Summary, doc *report.Document) ([]string, error) {
	if summary == nil {
		return nil, errors.InvalidInput("summary is required")
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, errors.IOError(r.dir, err)
	}

	steps := []struct {
		file   string
		render func(path string) error
	}{
		{ImportanceFile, func(p string) error { return renderMethodPanels(p, summary) }},
		{DistributionFile, func(p string) error { return renderDistribution(p, summary) }},
		{ComparisonFile, func(p string) error {
			var points []report.ScatterPoint
			if doc != nil {
				points = doc.ScatterPairs
			}
			return renderComparison(p, points)
		}},
	}

	paths := make([]string, 0, len(steps))
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(r.dir, step.file)
		if err := step.render(path); err != nil {
			return nil, errors.IOError(path, err)
		}
		r.logger.Debug("plot saved: %s", path)
		paths = append(paths, path)
	}
	return paths, nil
}

// categoryColor gives every category a stable colour across figures.
func categoryColor(c interpret.Category) color.Color {
	for i, known := range interpret.Categories {
		if known == c {
			return plotutil.Color(i)
		}
	}
	return plotutil.Color(len(interpret.Categories))
}

// finite replaces infinite scores with the largest finite one so bars stay
// drawable; a column that separates the classes perfectly has F = +Inf.
func finite(values []float64) []float64 {
	out := make([]float64, len(values))
	ceiling := 1.0
	var fin []float64
	for _, v := range values {
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			fin = append(fin, v)
		}
	}
	if len(fin) > 0 {
		ceiling = floats.Max(fin)
	}
	for i, v := range values {
		switch {
		case math.IsInf(v, 1):
			out[i] = ceiling
		case math.IsInf(v, -1), math.IsNaN(v):
			out[i] = 0
		default:
			out[i] = v
		}
	}
	return out
}

// methodPanel draws one horizontal bar chart, rank 1 at the top, one bar
// series per category so the legend explains the colours.
func methodPanel(method string, rows []importance.Row) (*plot.Plot, error) {
	if len(rows) > BarsPerMethod {
		rows = rows[:BarsPerMethod]
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - Top %d Features", method, len(rows))
	p.X.Label.Text = "Importance Score"

	n := len(rows)
	raw := make([]float64, n)
	labels := make([]string, n)
	for i, row := range rows {
		raw[n-1-i] = row.Score
		labels[n-1-i] = row.FeatureName
	}
	scores := finite(raw)

	for _, c := range interpret.Categories {
		values := make(plotter.Values, n)
		present := false
		for i, row := range rows {
			if row.Category == c {
				values[n-1-i] = scores[n-1-i]
				present = true
			}
		}
		if !present {
			continue
		}
		bars, err := plotter.NewBarChart(values, vg.Points(8))
		if err != nil {
			return nil, err
		}
		bars.Horizontal = true
		bars.Color = categoryColor(c)
		bars.LineStyle.Width = 0
		p.Add(bars)
		p.Legend.Add(string(c), bars)
	}
	p.Legend.Top = true
	p.NominalY(labels...)
	return p, nil
}

func renderMethodPanels(path string, summary *importance.Summary) error {
	methods := summary.Methods()
	if len(methods) == 0 {
		return fmt.Errorf("summary has no rows")
	}

	plots := make([][]*plot.Plot, len(methods))
	for i, m := range methods {
		p, err := methodPanel(m, summary.ForMethod(m))
		if err != nil {
			return fmt.Errorf("%s panel: %w", m, err)
		}
		plots[i] = []*plot.Plot{p}
	}

	width, height := 12*vg.Inch, vg.Length(len(methods))*5*vg.Inch
	img := vgimg.New(width, height)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: len(methods), Cols: 1, PadY: vg.Points(20)}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}
	return writePNG(path, img)
}

func renderDistribution(path string, summary *importance.Summary) error {
	counts := make(map[interpret.Category]int)
	for _, row := range summary.Rows {
		counts[row.Category]++
	}

	p := plot.New()
	p.Title.Text = "Distribution of Feature Types in Top Features"
	p.Y.Label.Text = "Share of top features (%)"

	var names []string
	pos := 0
	for _, c := range interpret.Categories {
		if counts[c] == 0 {
			continue
		}
		share := 100 * float64(counts[c]) / float64(len(summary.Rows))
		bars, err := plotter.NewBarChart(plotter.Values{share}, vg.Points(40))
		if err != nil {
			return err
		}
		bars.XMin = float64(pos)
		bars.Color = categoryColor(c)
		p.Add(bars)
		names = append(names, fmt.Sprintf("%s (%.1f%%)", c, share))
		pos++
	}
	p.NominalX(names...)
	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

func renderComparison(path string, points []report.ScatterPoint) error {
	p := plot.New()
	p.Title.Text = "F-statistic vs Permutation Importance"
	p.X.Label.Text = "F-statistic Score"
	p.Y.Label.Text = "Permutation Importance Score"

	for _, c := range interpret.Categories {
		var xys plotter.XYs
		for _, pt := range points {
			if pt.Category == c {
				xys = append(xys, plotter.XY{X: pt.FScore, Y: pt.Permutation})
			}
		}
		if len(xys) == 0 {
			continue
		}
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = categoryColor(c)
		s.GlyphStyle.Radius = vg.Points(3)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add(string(c), s)
	}
	p.Add(plotter.NewGrid())
	return p.Save(10*vg.Inch, 8*vg.Inch, path)
}

func writePNG(path string, img *vgimg.Canvas) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
