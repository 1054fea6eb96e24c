package cluster

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/bikeshare.report/internal/dataset"
	"github.com/banshee-data/bikeshare.report/internal/monitoring"
)

const (
	// DefaultSeed matches the seed the dashboard has always clustered with.
	DefaultSeed uint64 = 42
	// DefaultMaxIterations bounds Lloyd iterations per run.
	DefaultMaxIterations = 300
)

// Config holds k-means parameters.
type Config struct {
	Seed          uint64
	MaxIterations int
	// NInit is the number of seeded restarts; the lowest-inertia run wins.
	NInit int
}

// DefaultConfig returns the production parameters.
func DefaultConfig() Config {
	return Config{Seed: DefaultSeed, MaxIterations: DefaultMaxIterations, NInit: 1}
}

func (c Config) maxIterations() int {
	if c.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return c.MaxIterations
}

func (c Config) nInit() int {
	if c.NInit <= 0 {
		return 1
	}
	return c.NInit
}

// Assignment maps row position to cluster id.
type Assignment []int

// Result is the outcome of one clustering call.
type Result struct {
	K          int         `json:"k"`
	Features   []string    `json:"features,omitempty"`
	Assignment Assignment  `json:"assignment"`
	Centroids  [][]float64 `json:"centroids"`
	Inertia    float64     `json:"inertia"`
	Iterations int         `json:"iterations"`
	Converged  bool        `json:"converged"`
}

// Sizes returns the number of rows in each cluster.
func (r *Result) Sizes() []int {
	sizes := make([]int, r.K)
	for _, id := range r.Assignment {
		sizes[id]++
	}
	return sizes
}

// KMeans clusters the rows of t over the named feature columns.
func KMeans(t *dataset.Table, features []string, k int, cfg Config) (*Result, error) {
	points, err := Features(t, features)
	if err != nil {
		return nil, err
	}
	res, err := Fit(points, k, cfg)
	if err != nil {
		return nil, err
	}
	res.Features = append([]string(nil), features...)
	return res, nil
}

// Features builds the row-major feature matrix for the named columns. Every
// column must exist, be numeric, and hold only finite values.
func Features(t *dataset.Table, features []string) (*mat.Dense, error) {
	if len(features) == 0 {
		return nil, &ClusteringError{Reason: "no feature columns selected"}
	}
	if t == nil || t.Len() == 0 {
		return nil, &ClusteringError{Reason: "dataset is empty"}
	}

	n, d := t.Len(), len(features)
	points := mat.NewDense(n, d, nil)
	for j, name := range features {
		values, err := t.Numeric(name)
		if err != nil {
			return nil, &ClusteringError{Column: name, Reason: "not a numeric column", Err: err}
		}
		for i, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &ClusteringError{Column: name, Reason: fmt.Sprintf("row %d: missing or non-finite value", i+1)}
			}
			points.Set(i, j, v)
		}
	}
	return points, nil
}

// Fit runs k-means over a row-major feature matrix. It is a pure function
// of (points, k, cfg).
func Fit(points *mat.Dense, k int, cfg Config) (*Result, error) {
	n, _ := points.Dims()
	if k < 1 {
		return nil, &ClusteringError{Reason: fmt.Sprintf("k must be at least 1, got %d", k)}
	}
	if k > n {
		return nil, &ClusteringError{Reason: fmt.Sprintf("k=%d exceeds the number of records (%d)", k, n)}
	}
	for i := 0; i < n; i++ {
		for _, v := range points.RawRowView(i) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &ClusteringError{Reason: fmt.Sprintf("row %d: missing or non-finite value", i+1)}
			}
		}
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	var best *Result
	for run := 0; run < cfg.nInit(); run++ {
		r := lloyd(points, k, rng, cfg.maxIterations())
		monitoring.Diagf("cluster: run=%d k=%d iterations=%d converged=%v inertia=%.6f",
			run, k, r.Iterations, r.Converged, r.Inertia)
		if best == nil || r.Inertia < best.Inertia {
			best = r
		}
	}
	relabel(best)
	return best, nil
}

// lloyd runs one seeded k-means pass.
//
// States: init (k-means++ seeding) -> assign -> update -> ... until a
// pass changes no label (converged) or maxIter passes ran.
func lloyd(points *mat.Dense, k int, rng *rand.Rand, maxIter int) *Result {
	n, d := points.Dims()
	centers := seedPlusPlus(points, k, rng)

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	res := &Result{K: k}
	for iter := 1; iter <= maxIter; iter++ {
		res.Iterations = iter
		changed := assign(points, centers, labels)
		repaired := repairEmpty(points, centers, labels, k)
		if changed == 0 && !repaired {
			res.Converged = true
			break
		}
		updateCenters(points, centers, labels, k)
	}

	res.Assignment = labels
	res.Centroids = make([][]float64, k)
	for c := 0; c < k; c++ {
		res.Centroids[c] = append(make([]float64, 0, d), centers.RawRowView(c)...)
	}
	for i := 0; i < n; i++ {
		dist := floats.Distance(points.RawRowView(i), centers.RawRowView(labels[i]), 2)
		res.Inertia += dist * dist
	}
	return res
}

// seedPlusPlus picks k initial centres: the first uniformly, each next one
// with probability proportional to its squared distance from the nearest
// centre already chosen.
func seedPlusPlus(points *mat.Dense, k int, rng *rand.Rand) *mat.Dense {
	n, d := points.Dims()
	centers := mat.NewDense(k, d, nil)

	first := rng.IntN(n)
	centers.SetRow(0, points.RawRowView(first))

	nearest := make([]float64, n)
	for i := range nearest {
		nearest[i] = sqDist(points.RawRowView(i), centers.RawRowView(0))
	}

	for c := 1; c < k; c++ {
		next := pickWeighted(nearest, rng)
		centers.SetRow(c, points.RawRowView(next))
		for i := range nearest {
			if dd := sqDist(points.RawRowView(i), centers.RawRowView(c)); dd < nearest[i] {
				nearest[i] = dd
			}
		}
	}
	return centers
}

// pickWeighted samples an index with probability proportional to weights.
// When every weight is zero all points coincide with a centre already and
// any index will do.
func pickWeighted(weights []float64, rng *rand.Rand) int {
	total := floats.Sum(weights)
	if total <= 0 {
		return rng.IntN(len(weights))
	}
	target := rng.Float64() * total
	last := -1
	var cum float64
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cum += w
		last = i
		if cum > target {
			return i
		}
	}
	// Rounding left cum just short of target.
	return last
}

// assign moves every point to its nearest centre (ties go to the lower
// centre index) and returns how many labels changed.
func assign(points, centers *mat.Dense, labels []int) int {
	k, _ := centers.Dims()
	changed := 0
	for i := range labels {
		p := points.RawRowView(i)
		bestC, bestD := 0, math.Inf(1)
		for c := 0; c < k; c++ {
			if dd := sqDist(p, centers.RawRowView(c)); dd < bestD {
				bestC, bestD = c, dd
			}
		}
		if labels[i] != bestC {
			labels[i] = bestC
			changed++
		}
	}
	return changed
}

// repairEmpty gives every empty cluster the point farthest from its
// current centre, taken from a cluster with more than one member. The
// moved point also becomes the empty cluster's centre. It reports whether
// any label moved. A repair is always possible while k does not exceed
// the number of distinct points.
func repairEmpty(points, centers *mat.Dense, labels []int, k int) bool {
	counts := make([]int, k)
	for _, c := range labels {
		counts[c]++
	}

	repaired := false
	for c := 0; c < k; c++ {
		if counts[c] > 0 {
			continue
		}
		far, farD := -1, 0.0
		for i, l := range labels {
			if counts[l] < 2 {
				continue
			}
			if dd := sqDist(points.RawRowView(i), centers.RawRowView(l)); dd > farD {
				far, farD = i, dd
			}
		}
		if far < 0 {
			return repaired
		}
		counts[labels[far]]--
		labels[far] = c
		counts[c]++
		centers.SetRow(c, points.RawRowView(far))
		repaired = true
	}
	return repaired
}

// updateCenters moves each non-empty centre to the mean of its points.
func updateCenters(points, centers *mat.Dense, labels []int, k int) {
	_, d := points.Dims()
	sums := mat.NewDense(k, d, nil)
	counts := make([]int, k)
	for i, c := range labels {
		floats.Add(sums.RawRowView(c), points.RawRowView(i))
		counts[c]++
	}
	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			continue
		}
		row := sums.RawRowView(c)
		floats.Scale(1/float64(counts[c]), row)
		centers.SetRow(c, row)
	}
}

// relabel renumbers clusters in order of first appearance by row. Unused
// ids (only possible when k exceeds the distinct points) go last.
func relabel(r *Result) {
	mapping := make([]int, r.K)
	for i := range mapping {
		mapping[i] = -1
	}
	next := 0
	for _, c := range r.Assignment {
		if mapping[c] < 0 {
			mapping[c] = next
			next++
		}
	}
	for c := range mapping {
		if mapping[c] < 0 {
			mapping[c] = next
			next++
		}
	}

	for i, c := range r.Assignment {
		r.Assignment[i] = mapping[c]
	}
	centroids := make([][]float64, r.K)
	for old, nu := range mapping {
		centroids[nu] = r.Centroids[old]
	}
	r.Centroids = centroids
}

func sqDist(a, b []float64) float64 {
	dd := floats.Distance(a, b, 2)
	return dd * dd
}
