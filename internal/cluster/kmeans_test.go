package cluster

import (
	"errors"
	"math"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/bikeshare.report/internal/dataset"
)

func sampleTable(t *testing.T) *dataset.Table {
	t.Helper()
	f, err := os.Open("../dataset/testdata/day_sample.csv")
	require.NoError(t, err)
	defer f.Close()
	tbl, err := dataset.Parse(f)
	require.NoError(t, err)
	return tbl
}

func mustTable(t *testing.T, cols ...*dataset.Column) *dataset.Table {
	t.Helper()
	tbl, err := dataset.NewTable(cols...)
	require.NoError(t, err)
	return tbl
}

// samePartition reports whether two assignments group rows identically,
// regardless of the id each group carries.
func samePartition(a, b Assignment) bool {
	if len(a) != len(b) {
		return false
	}
	ab := map[int]int{}
	ba := map[int]int{}
	for i := range a {
		if x, ok := ab[a[i]]; ok && x != b[i] {
			return false
		}
		if y, ok := ba[b[i]]; ok && y != a[i] {
			return false
		}
		ab[a[i]] = b[i]
		ba[b[i]] = a[i]
	}
	return true
}

func TestKMeansValidK(t *testing.T) {
	t.Parallel()

	tbl := sampleTable(t)
	for k := 2; k <= 10; k++ {
		res, err := KMeans(tbl, dataset.FeatureColumns, k, DefaultConfig())
		require.NoError(t, err, "k=%d", k)

		require.Len(t, res.Assignment, tbl.Len(), "k=%d", k)
		for i, id := range res.Assignment {
			assert.True(t, id >= 0 && id < k, "k=%d row %d: id %d out of range", k, i, id)
		}
		// The 24 sample rows have distinct feature vectors, so every id is used.
		for c, size := range res.Sizes() {
			assert.Positive(t, size, "k=%d cluster %d is empty", k, c)
		}
		assert.Len(t, res.Centroids, k)
		assert.Equal(t, dataset.FeatureColumns, res.Features)
		assert.LessOrEqual(t, res.Iterations, DefaultMaxIterations)
	}
}

func TestKMeansDeterministic(t *testing.T) {
	t.Parallel()

	tbl := sampleTable(t)
	first, err := KMeans(tbl, dataset.FeatureColumns, 4, DefaultConfig())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := KMeans(tbl, dataset.FeatureColumns, 4, DefaultConfig())
		require.NoError(t, err)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
}

func TestKMeansIdsInFirstAppearanceOrder(t *testing.T) {
	t.Parallel()

	res, err := KMeans(sampleTable(t), dataset.FeatureColumns, 5, DefaultConfig())
	require.NoError(t, err)

	next := 0
	for _, id := range res.Assignment {
		require.LessOrEqual(t, id, next, "id %d appeared before %d", id, next)
		if id == next {
			next++
		}
	}
	assert.Equal(t, 0, res.Assignment[0])
}

func TestKMeansSingleCluster(t *testing.T) {
	t.Parallel()

	tbl := sampleTable(t)
	res, err := KMeans(tbl, dataset.FeatureColumns, 1, DefaultConfig())
	require.NoError(t, err)

	for _, id := range res.Assignment {
		assert.Equal(t, 0, id)
	}
	assert.True(t, res.Converged)

	// The only centroid is the feature mean.
	temps, _ := tbl.Numeric(dataset.ColTemp)
	var sum float64
	for _, v := range temps {
		sum += v
	}
	assert.InDelta(t, sum/float64(len(temps)), res.Centroids[0][0], 1e-12)
}

func TestKMeansSingletons(t *testing.T) {
	t.Parallel()

	tbl := sampleTable(t)
	res, err := KMeans(tbl, dataset.FeatureColumns, tbl.Len(), DefaultConfig())
	require.NoError(t, err)

	seen := map[int]bool{}
	for _, id := range res.Assignment {
		assert.False(t, seen[id], "id %d shared by two records", id)
		seen[id] = true
	}
	assert.Len(t, seen, tbl.Len())
	assert.InDelta(t, 0, res.Inertia, 1e-12)
}

func TestKMeansSeparatesObviousGroups(t *testing.T) {
	t.Parallel()

	tbl := mustTable(t,
		dataset.NewNumericColumn("x", []float64{0, 0.1, 0.2, 10, 10.1, 10.2}),
		dataset.NewNumericColumn("y", []float64{0, 0.1, 0, 10, 10.1, 10}),
	)
	res, err := KMeans(tbl, []string{"x", "y"}, 2, DefaultConfig())
	require.NoError(t, err)

	assert.True(t, samePartition(Assignment{0, 0, 0, 1, 1, 1}, res.Assignment), "got %v", res.Assignment)
	assert.Equal(t, Assignment{0, 0, 0, 1, 1, 1}, res.Assignment)
	assert.True(t, res.Converged)
	assert.Equal(t, []int{3, 3}, res.Sizes())
}

func TestKMeansDuplicatePoints(t *testing.T) {
	t.Parallel()

	// Two distinct vectors, k=2: both clusters are used even with duplicates.
	tbl := mustTable(t,
		dataset.NewNumericColumn("x", []float64{1, 1, 1, 1, 5}),
	)
	res, err := KMeans(tbl, []string{"x"}, 2, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, Assignment{0, 0, 0, 0, 1}, res.Assignment)

	// k above the distinct count still terminates with valid ids.
	res, err = KMeans(tbl, []string{"x"}, 3, DefaultConfig())
	require.NoError(t, err)
	for _, id := range res.Assignment {
		assert.True(t, id >= 0 && id < 3)
	}
}

func TestKMeansNInitNeverWorse(t *testing.T) {
	t.Parallel()

	tbl := sampleTable(t)
	single, err := KMeans(tbl, dataset.FeatureColumns, 6, Config{Seed: 7, NInit: 1})
	require.NoError(t, err)
	multi, err := KMeans(tbl, dataset.FeatureColumns, 6, Config{Seed: 7, NInit: 8})
	require.NoError(t, err)

	// The first restart of the multi run is the single run.
	assert.LessOrEqual(t, multi.Inertia, single.Inertia+1e-12)
}

func TestKMeansMaxIterationsBound(t *testing.T) {
	t.Parallel()

	res, err := KMeans(sampleTable(t), dataset.FeatureColumns, 6, Config{Seed: DefaultSeed, MaxIterations: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Iterations)
	for c, size := range res.Sizes() {
		assert.Positive(t, size, "cluster %d", c)
	}
}

func TestKMeansErrors(t *testing.T) {
	t.Parallel()

	tbl := mustTable(t,
		dataset.NewTextColumn("dteday", []string{"2011-01-01", "2011-01-02"}),
		dataset.NewNumericColumn("temp", []float64{0.2, 0.3}),
		dataset.NewNumericColumn("hum", []float64{0.5, math.NaN()}),
		dataset.NewNumericColumn("windspeed", []float64{0.1, math.Inf(1)}),
	)

	tests := []struct {
		name     string
		features []string
		k        int
		column   string
		sentinel error
	}{
		{name: "non-numeric column", features: []string{"temp", "dteday"}, k: 1, column: "dteday", sentinel: dataset.ErrNotNumeric},
		{name: "missing column", features: []string{"atemp"}, k: 1, column: "atemp", sentinel: dataset.ErrColumnNotFound},
		{name: "missing value", features: []string{"hum"}, k: 1, column: "hum"},
		{name: "infinite value", features: []string{"windspeed"}, k: 1, column: "windspeed"},
		{name: "no features", features: nil, k: 1},
		{name: "k zero", features: []string{"temp"}, k: 0},
		{name: "k negative", features: []string{"temp"}, k: -3},
		{name: "k above records", features: []string{"temp"}, k: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := KMeans(tbl, tt.features, tt.k, DefaultConfig())
			var ce *ClusteringError
			require.True(t, errors.As(err, &ce), "want *ClusteringError, got %v", err)
			assert.Equal(t, tt.column, ce.Column)
			if tt.sentinel != nil {
				assert.True(t, errors.Is(err, tt.sentinel))
			}
		})
	}
}

func TestKMeansEmptyTable(t *testing.T) {
	t.Parallel()

	tbl := mustTable(t, dataset.NewNumericColumn("temp", nil))
	_, err := KMeans(tbl, []string{"temp"}, 1, DefaultConfig())
	var ce *ClusteringError
	assert.True(t, errors.As(err, &ce))
}

func TestFitRejectsNonFinite(t *testing.T) {
	t.Parallel()

	points := mat.NewDense(2, 1, []float64{1, math.NaN()})
	_, err := Fit(points, 1, DefaultConfig())
	var ce *ClusteringError
	assert.True(t, errors.As(err, &ce))
}

func TestPickWeighted(t *testing.T) {
	t.Parallel()

	rng := newTestRand()
	for i := 0; i < 100; i++ {
		idx := pickWeighted([]float64{0, 2, 0, 1}, rng)
		assert.Contains(t, []int{1, 3}, idx)
	}
	idx := pickWeighted([]float64{0, 0, 0}, rng)
	assert.True(t, idx >= 0 && idx < 3)
}
