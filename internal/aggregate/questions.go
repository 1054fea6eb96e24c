package aggregate

import (
	"fmt"

	"github.com/banshee-data/bikeshare.report/internal/dataset"
)

// ChartKind names how a question is drawn.
type ChartKind string

const (
	Bar     ChartKind = "bar"
	Pie     ChartKind = "pie"
	Donut   ChartKind = "donut"
	Scatter ChartKind = "scatter"
)

// Working-day split labels.
const (
	WorkingDayLabel = "Working Day"
	OtherDayLabel   = "Other Day"
)

// Question is one of the dashboard's fixed analytical questions.
type Question struct {
	ID      string
	Title   string
	Kind    ChartKind
	XLabel  string
	YLabel  string
	Palette []string
	Answer  func(*dataset.Table) (*Result, error)
}

// Questions lists the fixed questions in dashboard order.
var Questions = []Question{
	{
		ID:      "monthly",
		Title:   "Bike rentals by month",
		Kind:    Bar,
		XLabel:  "Month",
		YLabel:  "Rentals",
		Palette: []string{"#08306B", "#08519C", "#2171B5", "#4292C6", "#6BAED6", "#9ECAE1", "#C6DBEF", "#DEEBF7", "#C6DBEF", "#9ECAE1", "#6BAED6", "#4292C6"},
		Answer:  MonthlyRentals,
	},
	{
		ID:      "workingday",
		Title:   "Rentals on working days vs other days",
		Kind:    Pie,
		Palette: []string{"#A0E9FF", "#CDF5FD"},
		Answer:  WorkingDaySplit,
	},
	{
		ID:      "season",
		Title:   "Bike rentals by season",
		Kind:    Bar,
		XLabel:  "Season",
		YLabel:  "Rentals",
		Palette: []string{"#D5F0C1", "#FFCF81", "#FFBE98", "#AEE2FF"},
		Answer:  SeasonRentals,
	},
	{
		ID:      "weather",
		Title:   "Bike rentals by weather",
		Kind:    Donut,
		Palette: []string{"#FFBE98", "#F7DED0", "#FEECE2", "#E8C4B0"},
		Answer:  WeatherRentals,
	},
	{
		ID:      "windspeed",
		Title:   "Bike rentals by windspeed",
		Kind:    Scatter,
		XLabel:  "Windspeed",
		YLabel:  "Rentals",
		Palette: []string{"#FFA500"},
		Answer:  WindspeedScatter,
	},
}

// FindQuestion looks up a question by ID.
func FindQuestion(id string) (Question, bool) {
	for _, q := range Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

var seasonNames = map[string]string{
	"1": "Spring",
	"2": "Summer",
	"3": "Fall",
	"4": "Winter",
}

var weatherNames = map[string]string{
	"1": "Clear",
	"2": "Mist",
	"3": "Light Precipitation",
	"4": "Heavy Precipitation",
}

// MonthlyRentals sums cnt per month.
func MonthlyRentals(t *dataset.Table) (*Result, error) {
	return AggregateBy(t, dataset.ColMonth, dataset.ColCount)
}

// WorkingDaySplit sums cnt for working days (workingday == 1) and other
// days (workingday == 0), in that order. Both groups are always present.
func WorkingDaySplit(t *dataset.Table) (*Result, error) {
	byFlag, err := AggregateBy(t, dataset.ColWorkingDay, dataset.ColCount)
	if err != nil {
		return nil, err
	}
	working, _ := byFlag.Lookup("1")
	other, _ := byFlag.Lookup("0")
	return &Result{
		GroupColumn:  dataset.ColWorkingDay,
		MetricColumn: dataset.ColCount,
		Groups: []Group{
			{Key: "1", Label: WorkingDayLabel, Sum: working},
			{Key: "0", Label: OtherDayLabel, Sum: other},
		},
	}, nil
}

// SeasonRentals sums cnt per season, labelled Spring through Winter.
func SeasonRentals(t *dataset.Table) (*Result, error) {
	res, err := AggregateBy(t, dataset.ColSeason, dataset.ColCount)
	if err != nil {
		return nil, err
	}
	relabel(res, seasonNames)
	return res, nil
}

// WeatherRentals sums cnt per weather situation.
func WeatherRentals(t *dataset.Table) (*Result, error) {
	res, err := AggregateBy(t, dataset.ColWeather, dataset.ColCount)
	if err != nil {
		return nil, err
	}
	relabel(res, weatherNames)
	return res, nil
}

// WindspeedScatter pairs windspeed with cnt without aggregating.
func WindspeedScatter(t *dataset.Table) (*Result, error) {
	return PassThrough(t, dataset.ColWindspeed, dataset.ColCount)
}

func relabel(res *Result, names map[string]string) {
	for i := range res.Groups {
		if name, ok := names[res.Groups[i].Key]; ok {
			res.Groups[i].Label = name
		}
	}
}

// AnswerAll runs every question. A failing question does not stop the
// others; its error is returned in the matching slot.
func AnswerAll(t *dataset.Table) ([]*Result, []error) {
	results := make([]*Result, len(Questions))
	errs := make([]error, len(Questions))
	for i, q := range Questions {
		results[i], errs[i] = q.Answer(t)
		if errs[i] != nil {
			errs[i] = fmt.Errorf("%s: %w", q.ID, errs[i])
		}
	}
	return results, errs
}
