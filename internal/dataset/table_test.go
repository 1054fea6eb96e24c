package dataset

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable(t *testing.T) {
	t.Parallel()

	t.Run("mismatched lengths", func(t *testing.T) {
		t.Parallel()
		_, err := NewTable(
			NewNumericColumn("a", []float64{1, 2}),
			NewNumericColumn("b", []float64{1}),
		)
		assert.Error(t, err)
	})

	t.Run("duplicate names", func(t *testing.T) {
		t.Parallel()
		_, err := NewTable(
			NewNumericColumn("a", []float64{1}),
			NewTextColumn("a", []string{"x"}),
		)
		assert.Error(t, err)
	})

	t.Run("columns keep order", func(t *testing.T) {
		t.Parallel()
		tbl, err := NewTable(
			NewTextColumn("dteday", []string{"2011-01-01"}),
			NewNumericColumn("cnt", []float64{985}),
		)
		require.NoError(t, err)
		assert.Equal(t, []string{"dteday", "cnt"}, tbl.Columns())
		assert.Equal(t, 1, tbl.Len())
	})
}

func TestTableNumeric(t *testing.T) {
	t.Parallel()

	tbl, err := NewTable(
		NewTextColumn("dteday", []string{"2011-01-01", "2011-01-02"}),
		NewNumericColumn("cnt", []float64{985, 801}),
	)
	require.NoError(t, err)

	got, err := tbl.Numeric("cnt")
	require.NoError(t, err)
	assert.Equal(t, []float64{985, 801}, got)

	_, err = tbl.Numeric("dteday")
	assert.True(t, errors.Is(err, ErrNotNumeric), "got %v", err)

	_, err = tbl.Numeric("missing")
	assert.True(t, errors.Is(err, ErrColumnNotFound), "got %v", err)
}

func TestWithIntColumn(t *testing.T) {
	t.Parallel()

	base, err := NewTable(NewNumericColumn("cnt", []float64{10, 20, 30}))
	require.NoError(t, err)

	withCluster, err := base.WithIntColumn(ColCluster, []int{0, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"cnt", "cluster"}, withCluster.Columns())
	assert.Equal(t, []string{"cnt"}, base.Columns(), "base table must not change")

	ids, err := withCluster.Numeric(ColCluster)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0}, ids)

	// Re-running clustering replaces the column instead of appending another.
	again, err := withCluster.WithIntColumn(ColCluster, []int{1, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"cnt", "cluster"}, again.Columns())
	ids, _ = again.Numeric(ColCluster)
	assert.Equal(t, []float64{1, 1, 0}, ids)

	_, err = base.WithIntColumn(ColCluster, []int{0})
	assert.Error(t, err)
}

func TestRowFormatting(t *testing.T) {
	t.Parallel()

	tbl, err := NewTable(
		NewTextColumn("dteday", []string{"2011-01-01"}),
		NewNumericColumn("temp", []float64{0.344167}),
		NewNumericColumn("cnt", []float64{985}),
		NewNumericColumn("hum", []float64{math.NaN()}),
	)
	require.NoError(t, err)

	want := []string{"2011-01-01", "0.344167", "985", ""}
	if diff := cmp.Diff(want, tbl.Row(0)); diff != "" {
		t.Errorf("Row(0) mismatch (-want +got):\n%s", diff)
	}
}

func TestRecords(t *testing.T) {
	t.Parallel()

	tbl := sampleTable(t)
	recs, err := tbl.Records()
	require.NoError(t, err)
	require.Len(t, recs, 24)

	want := Record{
		Month:            1,
		Season:           1,
		WeatherSituation: 1,
		WorkingDay:       true,
		Temperature:      0.21,
		Humidity:         0.73,
		Windspeed:        0.205,
		Count:            1220,
	}
	if diff := cmp.Diff(want, recs[0]); diff != "" {
		t.Errorf("first record mismatch (-want +got):\n%s", diff)
	}

	_, err = mustTable(t, NewNumericColumn("cnt", []float64{1})).Records()
	assert.True(t, errors.Is(err, ErrColumnNotFound))
}

func TestIsFeature(t *testing.T) {
	t.Parallel()

	for _, f := range FeatureColumns {
		assert.True(t, IsFeature(f), f)
	}
	assert.False(t, IsFeature(ColCount))
	assert.False(t, IsFeature(""))
}

func mustTable(t *testing.T, cols ...*Column) *Table {
	t.Helper()
	tbl, err := NewTable(cols...)
	require.NoError(t, err)
	return tbl
}
