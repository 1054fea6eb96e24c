package dashboard

import (
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/bikeshare.report/internal/cluster"
	"github.com/banshee-data/bikeshare.report/internal/dataset"
	"github.com/banshee-data/bikeshare.report/internal/db"
	"github.com/banshee-data/bikeshare.report/internal/fsutil"
)

// sampleRows and sampleTotal describe testdata/day_sample.csv.
const (
	sampleRows  = 24
	sampleTotal = 59184
)

func sampleFS(t *testing.T) *fsutil.MemoryFileSystem {
	t.Helper()
	data, err := os.ReadFile("../dataset/testdata/day_sample.csv")
	require.NoError(t, err)
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("day.csv", data, 0644))
	return mfs
}

func testPipelineConfig(mirror Mirror) PipelineConfig {
	return PipelineConfig{
		Cluster:     cluster.DefaultConfig(),
		MinClusters: 2,
		MaxClusters: 10,
		Mirror:      mirror,
	}
}

func newTestPipeline(t *testing.T, mirror Mirror) (*Pipeline, *dataset.Loader) {
	t.Helper()
	loader := dataset.NewLoader("day.csv", sampleFS(t), dataset.Options{})
	return NewPipeline(loader, testPipelineConfig(mirror)), loader
}

func newTestServer(t *testing.T, p *Pipeline, admin AdminRoutes) *Server {
	t.Helper()
	return NewServer(ServerConfig{
		Address:     "127.0.0.1:0",
		Pipeline:    p,
		Defaults:    Selection{K: 2, XAxis: dataset.ColTemp, YAxis: dataset.ColHumidity},
		PreviewRows: 5,
		Admin:       admin,
	})
}

// recordingMirror counts mirror calls. ReplaceDays returns daysErr after
// recording the call.
type recordingMirror struct {
	mu       sync.Mutex
	daysErr  error
	replaced []*dataset.Table
	clusters [][]int
	runs     []db.ClusterRun
}

func (m *recordingMirror) ReplaceDays(t *dataset.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaced = append(m.replaced, t)
	return m.daysErr
}

func (m *recordingMirror) SetClusters(assignment []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clusters = append(m.clusters, append([]int(nil), assignment...))
	return nil
}

func (m *recordingMirror) RecordClusterRun(run *db.ClusterRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *run)
	return nil
}
