package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/bikeshare.report/internal/cluster"
	"github.com/banshee-data/bikeshare.report/internal/config"
	"github.com/banshee-data/bikeshare.report/internal/dataset"
	"github.com/banshee-data/bikeshare.report/internal/fsutil"
)

func TestFlagDefaults(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	opts := registerFlags(fs)
	require.NoError(t, fs.Parse(nil))

	assert.Equal(t, "", *opts.configPath)
	assert.Equal(t, "", *opts.dataPath)
	assert.True(t, *opts.debugSQL)
	assert.False(t, *opts.summary)
	assert.Equal(t, "", *opts.export)
	assert.Equal(t, 0, *opts.clusters)

	cfg := config.EmptyDashboardConfig()
	opts.apply(fs, cfg)
	assert.Equal(t, config.EmptyDashboardConfig(), cfg, "unset flags must not touch the config")
}

func TestFlagsOverrideConfig(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	opts := registerFlags(fs)
	require.NoError(t, fs.Parse([]string{"-data", "other.csv", "-listen", ":9090", "-debug-sql=false", "-k", "5"}))

	listen := ":8080"
	k := 2
	cfg := &config.DashboardConfig{Listen: &listen, DefaultClusters: &k}
	opts.apply(fs, cfg)

	assert.Equal(t, "other.csv", cfg.GetDataPath())
	assert.Equal(t, ":9090", cfg.GetListen())
	assert.False(t, cfg.GetDebugSQL())
	assert.Equal(t, 5, cfg.GetDefaultClusters())
	assert.NoError(t, cfg.Validate())
}

func TestFlagKOutOfRangeFailsValidation(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	opts := registerFlags(fs)
	require.NoError(t, fs.Parse([]string{"-k", "11"}))

	cfg := config.EmptyDashboardConfig()
	opts.apply(fs, cfg)
	assert.Error(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("", fsutil.NewMemoryFileSystem())
	require.NoError(t, err)
	assert.Equal(t, config.EmptyDashboardConfig(), cfg)

	_, err = loadConfig("missing.json", fsutil.NewMemoryFileSystem())
	assert.Error(t, err)

	path := t.TempDir() + "/dash.json"
	require.NoError(t, os.WriteFile(path, []byte(`{"max_clusters": 6}`), 0644))
	cfg, err = loadConfig(path, fsutil.OSFileSystem{})
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.GetMaxClusters())

	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile(config.DefaultConfigPath, []byte(`{"max_clusters": 4}`), 0644))
	cfg, err = loadConfig("", mfs)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.GetMaxClusters(), "the default file is read from the given filesystem")
}

func TestOpenMirror(t *testing.T) {
	off := false
	mirrorDB, mirror, admin := openMirror(&config.DashboardConfig{DebugSQL: &off})
	assert.Nil(t, mirrorDB)
	assert.Nil(t, mirror)
	assert.Nil(t, admin)

	runCap := 3
	mirrorDB, mirror, admin = openMirror(&config.DashboardConfig{MaxClusterRuns: &runCap})
	require.NotNil(t, mirrorDB)
	defer mirrorDB.Close()
	assert.NotNil(t, mirror)
	assert.NotNil(t, admin)
	assert.Equal(t, 3, mirrorDB.MaxClusterRuns())
}

func TestPrintSummary(t *testing.T) {
	f, err := os.Open("../../internal/dataset/testdata/day_sample.csv")
	require.NoError(t, err)
	defer f.Close()
	tbl, err := dataset.Parse(f)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printSummary(&buf, tbl, 3, cluster.DefaultConfig()))
	out := buf.String()

	for _, want := range []string{
		"Bike rentals by month",
		"Working Day", "Other Day",
		"Spring", "Summer", "Fall", "Winter",
		"Clear", "Mist",
		"points", "correlation(windspeed, cnt)",
		"59184",
		"Clusters (k=3",
	} {
		assert.Contains(t, out, want)
	}
	assert.Equal(t, 4, strings.Count(out, "total"), "every grouped question carries a total")
	assert.Contains(t, out, "size")
}

func TestPrintSummaryClusteringError(t *testing.T) {
	f, err := os.Open("../../internal/dataset/testdata/day_sample.csv")
	require.NoError(t, err)
	defer f.Close()
	tbl, err := dataset.Parse(f)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printSummary(&buf, tbl, 100, cluster.DefaultConfig()))
	assert.Contains(t, buf.String(), "clustering k=100")
	assert.Contains(t, buf.String(), "Bike rentals by season", "question tables still print")
}

func TestExportClusters(t *testing.T) {
	f, err := os.Open("../../internal/dataset/testdata/day_sample.csv")
	require.NoError(t, err)
	defer f.Close()
	tbl, err := dataset.Parse(f)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "clusters.csv")
	require.NoError(t, exportClusters(out, tbl, 3, cluster.DefaultConfig()))

	written, err := os.Open(out)
	require.NoError(t, err)
	defer written.Close()
	back, err := dataset.Parse(written)
	require.NoError(t, err)
	assert.Equal(t, tbl.Len(), back.Len())
	assert.Contains(t, back.Columns(), dataset.ColCluster)

	assert.Error(t, exportClusters("/etc/clusters.csv", tbl, 3, cluster.DefaultConfig()))
	assert.Error(t, exportClusters(filepath.Join(t.TempDir(), "x.csv"), tbl, 100, cluster.DefaultConfig()))
}
