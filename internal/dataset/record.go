package dataset

import (
	"fmt"
	"math"
)

// Column names in the source file.
const (
	ColMonth      = "mnth"
	ColSeason     = "season"
	ColWeather    = "weathersit"
	ColWorkingDay = "workingday"
	ColTemp       = "temp"
	ColHumidity   = "hum"
	ColWindspeed  = "windspeed"
	ColCount      = "cnt"

	// ColCluster is appended by the dashboard after clustering.
	ColCluster = "cluster"
)

// RequiredColumns must be present and numeric in every loaded table.
var RequiredColumns = []string{
	ColMonth, ColSeason, ColWeather, ColWorkingDay,
	ColTemp, ColHumidity, ColWindspeed, ColCount,
}

// FeatureColumns are the numeric columns offered for clustering.
var FeatureColumns = []string{ColTemp, ColHumidity, ColWindspeed}

// IsFeature reports whether name is one of FeatureColumns.
func IsFeature(name string) bool {
	for _, f := range FeatureColumns {
		if f == name {
			return true
		}
	}
	return false
}

// Record is the typed view of one day.
type Record struct {
	Month            int
	Season           int
	WeatherSituation int
	WorkingDay       bool
	Temperature      float64
	Humidity         float64
	Windspeed        float64
	Count            int
}

// Validate checks the invariants the dashboard relies on: the table is
// non-empty, every required column is present and numeric, and cnt is a
// non-negative integer on every row.
func Validate(source string, t *Table) error {
	if t == nil || t.Len() == 0 {
		return loadErrorf(source, nil, "dataset is empty")
	}
	for _, name := range RequiredColumns {
		if _, err := t.Numeric(name); err != nil {
			return loadErrorf(source, err, "required column")
		}
	}
	counts, _ := t.Numeric(ColCount)
	for i, v := range counts {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v != math.Trunc(v) {
			return loadErrorf(source, nil, "row %d: %s must be a non-negative integer, got %v", i+1, ColCount, v)
		}
	}
	return nil
}

// Records converts the table into typed records. Missing numeric cells in
// the categorical columns come back as zero.
func (t *Table) Records() ([]Record, error) {
	cols := make(map[string][]float64, len(RequiredColumns))
	for _, name := range RequiredColumns {
		v, err := t.Numeric(name)
		if err != nil {
			return nil, fmt.Errorf("records: %w", err)
		}
		cols[name] = v
	}

	out := make([]Record, t.Len())
	for i := range out {
		out[i] = Record{
			Month:            toInt(cols[ColMonth][i]),
			Season:           toInt(cols[ColSeason][i]),
			WeatherSituation: toInt(cols[ColWeather][i]),
			WorkingDay:       cols[ColWorkingDay][i] == 1,
			Temperature:      cols[ColTemp][i],
			Humidity:         cols[ColHumidity][i],
			Windspeed:        cols[ColWindspeed][i],
			Count:            toInt(cols[ColCount][i]),
		}
	}
	return out, nil
}

func toInt(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(v)
}
