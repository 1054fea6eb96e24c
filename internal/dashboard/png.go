package dashboard

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/bikeshare.report/internal/aggregate"
)

// errNoPNG is returned for chart kinds gonum/plot cannot draw (pies).
var errNoPNG = errors.New("no PNG rendering for this chart")

const (
	pngWidth  = 10 * vg.Inch
	pngHeight = 6 * vg.Inch
)

// plotClustersPNG draws the cluster scatter as a PNG.
func plotClustersPNG(w io.Writer, data *ClusterChartData) error {
	p := plot.New()
	p.Title.Text = data.Title
	p.X.Label.Text = data.XAxis
	p.Y.Label.Text = data.YAxis
	p.Legend.Top = true

	for _, s := range data.Series {
		if len(s.Points) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(pointsXY(s.Points))
		if err != nil {
			return fmt.Errorf("cluster %d: %w", s.ID, err)
		}
		sc.GlyphStyle.Color = parseHexColor(s.Color)
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		p.Legend.Add(s.Name, sc)
	}
	return writePNG(w, p)
}

// plotQuestionPNG draws bar and scatter questions as PNGs.
func plotQuestionPNG(w io.Writer, qv QuestionView) error {
	if qv.Err != nil {
		return qv.Err
	}
	switch qv.Question.Kind {
	case aggregate.Bar:
		data, err := PrepareSliceData(qv)
		if err != nil {
			return err
		}
		return plotBarsPNG(w, data)
	case aggregate.Scatter:
		return plotPointsPNG(w, qv.Question, qv.Result)
	default:
		return errNoPNG
	}
}

// plotBarsPNG draws one single-value bar chart per slice so each bar can
// take its own colour.
func plotBarsPNG(w io.Writer, data *SliceData) error {
	p := plot.New()
	p.Title.Text = data.Title
	p.X.Label.Text = data.XLabel
	p.Y.Label.Text = data.YLabel

	labels := make([]string, len(data.Slices))
	for i, s := range data.Slices {
		labels[i] = s.Label
		bar, err := plotter.NewBarChart(plotter.Values{s.Value}, vg.Points(28))
		if err != nil {
			return fmt.Errorf("bar %q: %w", s.Label, err)
		}
		bar.XMin = float64(i)
		bar.LineStyle.Width = vg.Length(0)
		bar.Color = parseHexColor(s.Color)
		p.Add(bar)
	}
	p.NominalX(labels...)
	return writePNG(w, p)
}

// plotPointsPNG draws a pass-through answer as a scatter.
func plotPointsPNG(w io.Writer, q aggregate.Question, res *aggregate.Result) error {
	p := plot.New()
	p.Title.Text = q.Title
	p.X.Label.Text = q.XLabel
	p.Y.Label.Text = q.YLabel

	if len(res.Points) > 0 {
		sc, err := plotter.NewScatter(pointsXY(res.Points))
		if err != nil {
			return fmt.Errorf("%s: %w", q.ID, err)
		}
		if len(q.Palette) > 0 {
			sc.GlyphStyle.Color = parseHexColor(q.Palette[0])
		}
		sc.GlyphStyle.Radius = vg.Points(2.5)
		p.Add(sc)
	}
	return writePNG(w, p)
}

func writePNG(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(pngWidth, pngHeight, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

func pointsXY(points []aggregate.Point) plotter.XYs {
	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X = pt.X
		xys[i].Y = pt.Y
	}
	return xys
}

// parseHexColor parses "#rrggbb". Anything else is drawn in grey.
func parseHexColor(s string) color.Color {
	grey := color.RGBA{R: 128, G: 128, B: 128, A: 255}
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return grey
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return grey
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
