package dataset

import (
	"errors"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	f, err := os.Open("testdata/day_sample.csv")
	require.NoError(t, err)
	defer f.Close()

	tbl, err := Parse(f)
	require.NoError(t, err)
	return tbl
}

func TestParseSample(t *testing.T) {
	t.Parallel()

	tbl := sampleTable(t)
	assert.Equal(t, 24, tbl.Len())
	assert.Len(t, tbl.Columns(), 16)

	date, ok := tbl.Column("dteday")
	require.True(t, ok)
	assert.Equal(t, Text, date.Kind)

	for _, name := range RequiredColumns {
		c, ok := tbl.Column(name)
		require.True(t, ok, name)
		assert.Equal(t, Numeric, c.Kind, name)
	}
	require.NoError(t, Validate("testdata/day_sample.csv", tbl))
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "empty input", input: "", wantErr: "no header row"},
		{name: "header only", input: "mnth,cnt\n", wantErr: "dataset is empty"},
		{name: "ragged row", input: "mnth,cnt\n1,10\n2\n", wantErr: "malformed row"},
		{name: "empty column name", input: "mnth,,cnt\n1,2,3\n", wantErr: "empty name"},
		{name: "duplicate column", input: "cnt,cnt\n1,2\n", wantErr: "malformed header"},
		{name: "ok", input: "mnth,cnt\n1,10\n1,20\n2,30\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tbl, err := Parse(strings.NewReader(tt.input))
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, 3, tbl.Len())
				return
			}
			require.Error(t, err)
			var le *LoadError
			require.True(t, errors.As(err, &le), "want *LoadError, got %T", err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseColumnKinds(t *testing.T) {
	t.Parallel()

	input := "\ufeffmnth, label ,hum,blank\n1,a,0.5,\n2,b,,\n"
	tbl, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"mnth", "label", "hum", "blank"}, tbl.Columns())

	label, _ := tbl.Column("label")
	assert.Equal(t, Text, label.Kind)

	blank, _ := tbl.Column("blank")
	assert.Equal(t, Text, blank.Kind, "a column with no values is not numeric")

	hum, err := tbl.Numeric("hum")
	require.NoError(t, err)
	assert.Equal(t, 0.5, hum[0])
	assert.True(t, math.IsNaN(hum[1]), "missing numeric cell must be NaN")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	full := func(cnt []float64) *Table {
		n := len(cnt)
		cols := make([]*Column, 0, len(RequiredColumns))
		for _, name := range RequiredColumns {
			if name == ColCount {
				cols = append(cols, NewNumericColumn(name, cnt))
				continue
			}
			cols = append(cols, NewNumericColumn(name, make([]float64, n)))
		}
		return mustTable(t, cols...)
	}

	assert.NoError(t, Validate("x", full([]float64{0, 10})))

	tests := []struct {
		name string
		tbl  *Table
	}{
		{"nil table", nil},
		{"empty table", full(nil)},
		{"negative count", full([]float64{5, -1})},
		{"fractional count", full([]float64{1.5})},
		{"missing count", full([]float64{math.NaN()})},
		{"missing column", mustTable(t, NewNumericColumn(ColCount, []float64{1}))},
		{"text column", mustTable(t,
			NewNumericColumn(ColMonth, []float64{1}),
			NewTextColumn(ColSeason, []string{"spring"}),
		)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate("x", tt.tbl)
			var le *LoadError
			assert.True(t, errors.As(err, &le), "want *LoadError, got %v", err)
		})
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	t.Parallel()

	tbl := sampleTable(t)
	withIDs, err := tbl.WithIntColumn(ColCluster, make([]int, tbl.Len()))
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, WriteCSV(&buf, withIDs))

	back, err := Parse(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, withIDs.Columns(), back.Columns())
	assert.Equal(t, withIDs.Len(), back.Len())
	assert.Equal(t, withIDs.Row(7), back.Row(7))
}
