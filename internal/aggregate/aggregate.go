// Package aggregate answers the dashboard's fixed analytical questions with
// grouped sums over the loaded table.
package aggregate

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/bikeshare.report/internal/dataset"
)

// InvalidColumnError reports a requested column that is absent from the
// table or cannot be used for the requested role. It is fatal for the one
// chart that asked for the column.
type InvalidColumnError struct {
	Column string
	Reason string
	Err    error
}

func (e *InvalidColumnError) Error() string {
	return fmt.Sprintf("invalid column %q: %s", e.Column, e.Reason)
}

func (e *InvalidColumnError) Unwrap() error { return e.Err }

// Group is one distinct value of the group column and its summed metric.
type Group struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Sum   float64 `json:"sum"`
}

// Point is one (x, y) pair of a pass-through result.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Result is an aggregation answer. Grouped results carry Groups ordered by
// key ascending; pass-through results carry Points in row order.
type Result struct {
	GroupColumn  string  `json:"group_column"`
	MetricColumn string  `json:"metric_column"`
	Groups       []Group `json:"groups,omitempty"`
	Points       []Point `json:"points,omitempty"`
}

// Total returns the sum of all group sums, or of all point Y values for a
// pass-through result.
func (r *Result) Total() float64 {
	if len(r.Groups) == 0 {
		ys := make([]float64, len(r.Points))
		for i, p := range r.Points {
			ys[i] = p.Y
		}
		return floats.Sum(ys)
	}
	sums := make([]float64, len(r.Groups))
	for i, g := range r.Groups {
		sums[i] = g.Sum
	}
	return floats.Sum(sums)
}

// Shares returns each group's percentage of Total, in group order. A zero
// total yields all zeros.
func (r *Result) Shares() []float64 {
	out := make([]float64, len(r.Groups))
	total := r.Total()
	if total == 0 {
		return out
	}
	for i, g := range r.Groups {
		out[i] = 100 * g.Sum / total
	}
	return out
}

// Lookup returns the sum for key.
func (r *Result) Lookup(key string) (float64, bool) {
	for _, g := range r.Groups {
		if g.Key == key {
			return g.Sum, true
		}
	}
	return 0, false
}

// Labels returns the group labels in order.
func (r *Result) Labels() []string {
	out := make([]string, len(r.Groups))
	for i, g := range r.Groups {
		out[i] = g.Label
	}
	return out
}

// AggregateBy groups rows by the distinct values of groupColumn and sums
// metricColumn within each group. Groups come back ordered by value
// ascending: numerically for numeric columns, lexically for text columns.
// Rows with a missing group value are skipped and missing metric cells
// contribute nothing.
func AggregateBy(t *dataset.Table, groupColumn, metricColumn string) (*Result, error) {
	groupCol, ok := t.Column(groupColumn)
	if !ok {
		return nil, &InvalidColumnError{Column: groupColumn, Reason: "not in dataset", Err: dataset.ErrColumnNotFound}
	}
	metric, err := metricValues(t, metricColumn)
	if err != nil {
		return nil, err
	}

	res := &Result{GroupColumn: groupColumn, MetricColumn: metricColumn}
	if groupCol.Kind == dataset.Numeric {
		res.Groups = sumNumericGroups(groupCol, metric)
	} else {
		res.Groups = sumTextGroups(groupCol, metric)
	}
	return res, nil
}

// PassThrough pairs two numeric columns row by row without aggregating.
// Rows where either value is missing are dropped.
func PassThrough(t *dataset.Table, xColumn, yColumn string) (*Result, error) {
	xs, err := metricValues(t, xColumn)
	if err != nil {
		return nil, err
	}
	ys, err := metricValues(t, yColumn)
	if err != nil {
		return nil, err
	}

	res := &Result{GroupColumn: xColumn, MetricColumn: yColumn, Points: make([]Point, 0, len(xs))}
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		res.Points = append(res.Points, Point{X: xs[i], Y: ys[i]})
	}
	return res, nil
}

func metricValues(t *dataset.Table, name string) ([]float64, error) {
	v, err := t.Numeric(name)
	switch {
	case errors.Is(err, dataset.ErrColumnNotFound):
		return nil, &InvalidColumnError{Column: name, Reason: "not in dataset", Err: err}
	case errors.Is(err, dataset.ErrNotNumeric):
		return nil, &InvalidColumnError{Column: name, Reason: "not numeric", Err: err}
	case err != nil:
		return nil, &InvalidColumnError{Column: name, Reason: err.Error(), Err: err}
	}
	return v, nil
}

func sumNumericGroups(groupCol *dataset.Column, metric []float64) []Group {
	sums := make(map[float64]float64)
	firstRow := make(map[float64]int)
	for i, key := range groupCol.Values {
		if math.IsNaN(key) {
			continue
		}
		if _, seen := firstRow[key]; !seen {
			firstRow[key] = i
		}
		if !math.IsNaN(metric[i]) {
			sums[key] += metric[i]
		}
	}

	keys := make([]float64, 0, len(firstRow))
	for k := range firstRow {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	groups := make([]Group, len(keys))
	for i, k := range keys {
		label := groupCol.Format(firstRow[k])
		groups[i] = Group{Key: label, Label: label, Sum: sums[k]}
	}
	return groups
}

func sumTextGroups(groupCol *dataset.Column, metric []float64) []Group {
	sums := make(map[string]float64)
	for i, key := range groupCol.Strings {
		if key == "" {
			continue
		}
		if _, seen := sums[key]; !seen {
			sums[key] = 0
		}
		if !math.IsNaN(metric[i]) {
			sums[key] += metric[i]
		}
	}

	keys := make([]string, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	groups := make([]Group, len(keys))
	for i, k := range keys {
		groups[i] = Group{Key: k, Label: k, Sum: sums[k]}
	}
	return groups
}
