// Package dashboard serves the bike-sharing dashboard: a controls page,
// one chart per analytical question plus the cluster scatter, and a small
// JSON API over the same results.
package dashboard

import (
	"fmt"
	"sync"

	"github.com/banshee-data/bikeshare.report/internal/aggregate"
	"github.com/banshee-data/bikeshare.report/internal/cluster"
	"github.com/banshee-data/bikeshare.report/internal/dataset"
	"github.com/banshee-data/bikeshare.report/internal/db"
	"github.com/banshee-data/bikeshare.report/internal/monitoring"
)

// Mirror receives copies of the loaded table and of every clustering run.
// *db.DB implements it.
type Mirror interface {
	ReplaceDays(t *dataset.Table) error
	SetClusters(assignment []int) error
	RecordClusterRun(run *db.ClusterRun) error
}

// PipelineConfig holds the clustering parameters and the k bounds the
// controls allow.
type PipelineConfig struct {
	Cluster     cluster.Config
	MinClusters int
	MaxClusters int
	// Mirror is optional.
	Mirror Mirror
}

// Selection is one user interaction: a cluster count and the two feature
// columns drawn on the cluster scatter.
type Selection struct {
	K     int    `json:"k"`
	XAxis string `json:"x"`
	YAxis string `json:"y"`
}

// ClusterView is the clustering outcome for one selection. Table is the
// loaded table with the cluster column appended. Err is a
// *cluster.ClusteringError or an *aggregate.InvalidColumnError.
type ClusterView struct {
	Selection Selection
	Result    *cluster.Result
	Table     *dataset.Table
	Err       error
}

// QuestionView is the answer to one fixed question.
type QuestionView struct {
	Question aggregate.Question
	Result   *aggregate.Result
	Err      error
}

// Report is one full recomputation pass. When LoadErr is set nothing else
// is populated. Table is the table as loaded, without cluster ids.
type Report struct {
	Selection Selection
	LoadErr   error
	Table     *dataset.Table
	Clusters  ClusterView
	Questions []QuestionView
}

// Question returns the view for the question with the given id.
func (r *Report) Question(id string) (QuestionView, bool) {
	for _, qv := range r.Questions {
		if qv.Question.ID == id {
			return qv, true
		}
	}
	return QuestionView{}, false
}

// Pipeline runs load, aggregation and clustering for each interaction.
type Pipeline struct {
	loader *dataset.Loader
	cfg    PipelineConfig

	mu       sync.Mutex
	mirrored *dataset.Table
	// failed is the table whose mirror insert last failed; it is not retried.
	failed *dataset.Table
}

// NewPipeline returns a pipeline reading through loader.
func NewPipeline(loader *dataset.Loader, cfg PipelineConfig) *Pipeline {
	if cfg.MinClusters < 1 {
		cfg.MinClusters = 1
	}
	if cfg.MaxClusters < cfg.MinClusters {
		cfg.MaxClusters = cfg.MinClusters
	}
	return &Pipeline{loader: loader, cfg: cfg}
}

// KRange returns the inclusive bounds accepted for Selection.K.
func (p *Pipeline) KRange() (lo, hi int) {
	return p.cfg.MinClusters, p.cfg.MaxClusters
}

// Load returns the cached table, mirroring it when it is new.
func (p *Pipeline) Load() (*dataset.Table, error) {
	t, err := p.loader.Load()
	if err != nil {
		monitoring.Opsf("dashboard: load failed: %v", err)
		return nil, err
	}
	p.mirrorTable(t)
	return t, nil
}

// Invalidate drops the loader cache so the next request re-reads the source.
func (p *Pipeline) Invalidate() {
	p.loader.Invalidate()
}

// CheckSelection validates sel against the configured k bounds and the
// feature columns.
func (p *Pipeline) CheckSelection(sel Selection) error {
	if sel.K < p.cfg.MinClusters || sel.K > p.cfg.MaxClusters {
		return &cluster.ClusteringError{
			Reason: fmt.Sprintf("k must be within [%d,%d], got %d", p.cfg.MinClusters, p.cfg.MaxClusters, sel.K),
		}
	}
	for _, axis := range []string{sel.XAxis, sel.YAxis} {
		if !dataset.IsFeature(axis) {
			return &aggregate.InvalidColumnError{
				Column: axis,
				Reason: fmt.Sprintf("axis must be one of %v", dataset.FeatureColumns),
			}
		}
	}
	return nil
}

// Cluster runs k-means over the feature columns of t for sel.
func (p *Pipeline) Cluster(t *dataset.Table, sel Selection) ClusterView {
	view := ClusterView{Selection: sel}
	if err := p.CheckSelection(sel); err != nil {
		view.Err = err
		return view
	}

	res, err := cluster.KMeans(t, dataset.FeatureColumns, sel.K, p.cfg.Cluster)
	if err != nil {
		monitoring.Opsf("dashboard: clustering k=%d failed: %v", sel.K, err)
		view.Err = err
		return view
	}
	withIDs, err := t.WithIntColumn(dataset.ColCluster, res.Assignment)
	if err != nil {
		view.Err = &cluster.ClusteringError{Column: dataset.ColCluster, Reason: "cannot attach cluster ids", Err: err}
		return view
	}
	view.Result = res
	view.Table = withIDs
	p.mirrorRun(t, res)
	return view
}

// Answer runs one fixed question against t.
func (p *Pipeline) Answer(t *dataset.Table, q aggregate.Question) QuestionView {
	res, err := q.Answer(t)
	if err != nil {
		monitoring.Opsf("dashboard: question %s failed: %v", q.ID, err)
	}
	return QuestionView{Question: q, Result: res, Err: err}
}

// Run performs one full pass: load, cluster, then every fixed question. A
// chart-level failure is recorded on that chart only.
func (p *Pipeline) Run(sel Selection) *Report {
	report := &Report{Selection: sel}
	t, err := p.Load()
	if err != nil {
		report.LoadErr = err
		return report
	}
	report.Table = t
	report.Clusters = p.Cluster(t, sel)
	report.Questions = make([]QuestionView, 0, len(aggregate.Questions))
	for _, q := range aggregate.Questions {
		report.Questions = append(report.Questions, p.Answer(t, q))
	}
	return report
}

func (p *Pipeline) mirrorTable(t *dataset.Table) {
	if p.cfg.Mirror == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mirrorTableLocked(t)
}

func (p *Pipeline) mirrorTableLocked(t *dataset.Table) bool {
	if p.mirrored == t {
		return true
	}
	if p.failed == t {
		return false
	}
	if err := p.cfg.Mirror.ReplaceDays(t); err != nil {
		monitoring.Opsf("dashboard: mirror days failed: %v", err)
		p.failed = t
		return false
	}
	p.mirrored = t
	p.failed = nil
	monitoring.Diagf("dashboard: mirrored %d rows", t.Len())
	return true
}

func (p *Pipeline) mirrorRun(t *dataset.Table, res *cluster.Result) {
	if p.cfg.Mirror == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mirrorTableLocked(t) {
		if err := p.cfg.Mirror.SetClusters(res.Assignment); err != nil {
			monitoring.Opsf("dashboard: mirror clusters failed: %v", err)
		}
	}
	run := &db.ClusterRun{
		K:          res.K,
		Seed:       p.cfg.Cluster.Seed,
		Features:   res.Features,
		Iterations: res.Iterations,
		Converged:  res.Converged,
		Inertia:    res.Inertia,
		Sizes:      res.Sizes(),
	}
	if err := p.cfg.Mirror.RecordClusterRun(run); err != nil {
		monitoring.Opsf("dashboard: record cluster run failed: %v", err)
	}
}
