package dashboard

// Data preparation for the charts, kept apart from the eCharts and
// gonum/plot renderers so it can be tested without rendering.

import (
	"fmt"
	"math"
	"strconv"

	"github.com/banshee-data/bikeshare.report/internal/aggregate"
	"github.com/banshee-data/bikeshare.report/internal/dataset"
)

// viridisPalette is sampled evenly for the cluster colours.
var viridisPalette = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// Viridis returns k colours spread across the viridis palette, darkest
// first. Cluster id i is drawn in colour i.
func Viridis(k int) []string {
	if k <= 0 {
		return nil
	}
	out := make([]string, k)
	if k == 1 {
		out[0] = viridisPalette[0]
		return out
	}
	last := len(viridisPalette) - 1
	for i := range out {
		idx := int(math.Round(float64(i) * float64(last) / float64(k-1)))
		out[i] = viridisPalette[idx]
	}
	return out
}

// ClusterSeries is one cluster's points on the selected axes.
type ClusterSeries struct {
	ID     int               `json:"id"`
	Name   string            `json:"name"`
	Color  string            `json:"color"`
	Points []aggregate.Point `json:"points"`
}

// ClusterChartData holds prepared data for the cluster scatter.
type ClusterChartData struct {
	Title  string          `json:"title"`
	XAxis  string          `json:"x_axis"`
	YAxis  string          `json:"y_axis"`
	Series []ClusterSeries `json:"series"`
}

// PrepareClusterChartData splits the clustered rows into one series per
// cluster id, in id order, using the selected axis columns.
func PrepareClusterChartData(view ClusterView) (*ClusterChartData, error) {
	if view.Err != nil {
		return nil, view.Err
	}
	if view.Result == nil || view.Table == nil {
		return nil, fmt.Errorf("no clustering result")
	}
	sel := view.Selection
	xs, err := view.Table.Numeric(sel.XAxis)
	if err != nil {
		return nil, &aggregate.InvalidColumnError{Column: sel.XAxis, Reason: "not a numeric column", Err: err}
	}
	ys, err := view.Table.Numeric(sel.YAxis)
	if err != nil {
		return nil, &aggregate.InvalidColumnError{Column: sel.YAxis, Reason: "not a numeric column", Err: err}
	}

	k := view.Result.K
	colors := Viridis(k)
	data := &ClusterChartData{
		Title:  fmt.Sprintf("Clusters by %s vs %s", sel.XAxis, sel.YAxis),
		XAxis:  sel.XAxis,
		YAxis:  sel.YAxis,
		Series: make([]ClusterSeries, k),
	}
	for id := range data.Series {
		data.Series[id] = ClusterSeries{ID: id, Name: "cluster " + strconv.Itoa(id), Color: colors[id]}
	}
	for row, id := range view.Result.Assignment {
		data.Series[id].Points = append(data.Series[id].Points, aggregate.Point{X: xs[row], Y: ys[row]})
	}
	return data, nil
}

// Slice is one labelled value of a bar or pie chart.
type Slice struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
	Color   string  `json:"color,omitempty"`
}

// SliceData holds prepared data for bar, pie and donut charts.
type SliceData struct {
	Title  string  `json:"title"`
	XLabel string  `json:"x_label,omitempty"`
	YLabel string  `json:"y_label,omitempty"`
	Slices []Slice `json:"slices"`
}

// PrepareSliceData turns a grouped answer into labelled slices. Colours
// cycle through the question's palette.
func PrepareSliceData(qv QuestionView) (*SliceData, error) {
	if qv.Err != nil {
		return nil, qv.Err
	}
	if qv.Result == nil {
		return nil, fmt.Errorf("%s: no result", qv.Question.ID)
	}
	q := qv.Question
	shares := qv.Result.Shares()
	data := &SliceData{Title: q.Title, XLabel: q.XLabel, YLabel: q.YLabel}
	for i, g := range qv.Result.Groups {
		s := Slice{Label: g.Label, Value: g.Sum, Percent: shares[i]}
		if len(q.Palette) > 0 {
			s.Color = q.Palette[i%len(q.Palette)]
		}
		data.Slices = append(data.Slices, s)
	}
	return data, nil
}

// PreviewData is the head of the clustered table for the page.
type PreviewData struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Total   int        `json:"total"`
}

// PreparePreview returns the first n rows of t. n <= 0 returns only the
// header.
func PreparePreview(t *dataset.Table, n int) *PreviewData {
	if t == nil {
		return &PreviewData{}
	}
	if n > t.Len() {
		n = t.Len()
	}
	if n < 0 {
		n = 0
	}
	p := &PreviewData{Columns: t.Columns(), Total: t.Len(), Rows: make([][]string, 0, n)}
	for i := 0; i < n; i++ {
		p.Rows = append(p.Rows, t.Row(i))
	}
	return p
}
