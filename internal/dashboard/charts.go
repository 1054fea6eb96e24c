package dashboard

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/banshee-data/bikeshare.report/internal/aggregate"
)

// DefaultAssetsHost serves the echarts JavaScript when no local mirror is
// configured.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// chartRenderer draws complete HTML chart documents with go-echarts.
type chartRenderer struct {
	assetsHost string
	width      string
	height     string
}

func newChartRenderer(assetsHost string) chartRenderer {
	if assetsHost == "" {
		assetsHost = DefaultAssetsHost
	}
	return chartRenderer{assetsHost: assetsHost, width: "100%", height: "480px"}
}

func (cr chartRenderer) init(pageTitle string) opts.Initialization {
	return opts.Initialization{
		PageTitle:  pageTitle,
		Width:      cr.width,
		Height:     cr.height,
		AssetsHost: cr.assetsHost,
	}
}

// renderClusters draws one scatter series per cluster.
func (cr chartRenderer) renderClusters(w io.Writer, data *ClusterChartData) error {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(cr.init(data.Title)),
		charts.WithTitleOpts(opts.Title{Title: data.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{Name: data.XAxis, Type: "value", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: data.YAxis, Type: "value", NameLocation: "middle", NameGap: 35}),
	)

	for _, s := range data.Series {
		points := make([]opts.ScatterData, len(s.Points))
		for i, p := range s.Points {
			points[i] = opts.ScatterData{Value: []interface{}{p.X, p.Y}}
		}
		scatter.AddSeries(s.Name, points,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Color}),
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}),
		)
	}
	return scatter.Render(w)
}

// renderBar draws one bar per slice, each in its own palette colour.
func (cr chartRenderer) renderBar(w io.Writer, data *SliceData) error {
	labels := make([]string, len(data.Slices))
	bars := make([]opts.BarData, len(data.Slices))
	for i, s := range data.Slices {
		labels[i] = s.Label
		bars[i] = opts.BarData{Name: s.Label, Value: s.Value}
		if s.Color != "" {
			bars[i].ItemStyle = &opts.ItemStyle{Color: s.Color}
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(cr.init(data.Title)),
		charts.WithTitleOpts(opts.Title{Title: data.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: data.XLabel, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: data.YLabel}),
	)
	bar.SetXAxis(labels).
		AddSeries(data.YLabel, bars,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar.Render(w)
}

// renderPie draws a pie, or a donut when donut is set. Each label carries
// the slice's percentage to one decimal place.
func (cr chartRenderer) renderPie(w io.Writer, data *SliceData, donut bool) error {
	items := make([]opts.PieData, len(data.Slices))
	for i, s := range data.Slices {
		items[i] = opts.PieData{
			Name:  s.Label,
			Value: s.Value,
			Label: &opts.Label{Show: opts.Bool(true), Formatter: types.FuncStr(pieLabel(s))},
		}
		if s.Color != "" {
			items[i].ItemStyle = &opts.ItemStyle{Color: s.Color}
		}
	}

	radius := interface{}("70%")
	if donut {
		radius = []string{"40%", "70%"}
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(cr.init(data.Title)),
		charts.WithTitleOpts(opts.Title{Title: data.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
	)
	pie.AddSeries(data.Title, items,
		charts.WithPieChartOpts(opts.PieChart{Radius: radius}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true)}),
	)
	return pie.Render(w)
}

func pieLabel(s Slice) string {
	return fmt.Sprintf("%s: %.1f%%", s.Label, s.Percent)
}

// renderPoints draws a pass-through answer as a single-colour scatter.
func (cr chartRenderer) renderPoints(w io.Writer, q aggregate.Question, res *aggregate.Result) error {
	color := "#FFA500"
	if len(q.Palette) > 0 {
		color = q.Palette[0]
	}
	points := make([]opts.ScatterData, len(res.Points))
	for i, p := range res.Points {
		points[i] = opts.ScatterData{Value: []interface{}{p.X, p.Y}}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(cr.init(q.Title)),
		charts.WithTitleOpts(opts.Title{Title: q.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithXAxisOpts(opts.XAxis{Name: q.XLabel, Type: "value", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: q.YLabel, Type: "value"}),
	)
	scatter.AddSeries(q.YLabel, points,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}),
	)
	return scatter.Render(w)
}

// renderQuestion draws qv according to its question's chart kind.
func (cr chartRenderer) renderQuestion(w io.Writer, qv QuestionView) error {
	if qv.Err != nil {
		return qv.Err
	}
	switch qv.Question.Kind {
	case aggregate.Scatter:
		return cr.renderPoints(w, qv.Question, qv.Result)
	case aggregate.Bar, aggregate.Pie, aggregate.Donut:
		data, err := PrepareSliceData(qv)
		if err != nil {
			return err
		}
		if qv.Question.Kind == aggregate.Bar {
			return cr.renderBar(w, data)
		}
		return cr.renderPie(w, data, qv.Question.Kind == aggregate.Donut)
	default:
		return fmt.Errorf("%s: unsupported chart kind %q", qv.Question.ID, qv.Question.Kind)
	}
}
