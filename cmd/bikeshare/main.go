package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/bikeshare.report/internal/aggregate"
	"github.com/banshee-data/bikeshare.report/internal/cluster"
	"github.com/banshee-data/bikeshare.report/internal/config"
	"github.com/banshee-data/bikeshare.report/internal/dashboard"
	"github.com/banshee-data/bikeshare.report/internal/dataset"
	"github.com/banshee-data/bikeshare.report/internal/db"
	"github.com/banshee-data/bikeshare.report/internal/fsutil"
	"github.com/banshee-data/bikeshare.report/internal/security"
	"github.com/banshee-data/bikeshare.report/internal/version"
)

// options holds the command-line flags. Flags that are set override the
// config file.
type options struct {
	configPath  *string
	dataPath    *string
	listen      *string
	debugSQL    *bool
	summary     *bool
	export      *string
	clusters    *int
	showVersion *bool
}

func registerFlags(fs *flag.FlagSet) *options {
	return &options{
		configPath:  fs.String("config", "", "Path to a dashboard JSON config (default "+config.DefaultConfigPath+" when present)"),
		dataPath:    fs.String("data", "", "Path to the daily dataset CSV (overrides config and $"+config.DataPathEnv+")"),
		listen:      fs.String("listen", "", "Listen address (default :8080)"),
		debugSQL:    fs.Bool("debug-sql", true, "Mirror the dataset into sqlite and serve tailsql under /debug/"),
		summary:     fs.Bool("summary", false, "Print the analytical summaries to stdout and exit"),
		export:      fs.String("export", "", "Write the dataset with cluster ids to this CSV path and exit"),
		clusters:    fs.Int("k", 0, "Cluster count for -summary and the dashboard's initial selection"),
		showVersion: fs.Bool("version", false, "Print version information and exit"),
	}
}

// apply copies every flag the user set on fs into cfg.
func (o *options) apply(fs *flag.FlagSet, cfg *config.DashboardConfig) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			cfg.DataPath = o.dataPath
		case "listen":
			cfg.Listen = o.listen
		case "debug-sql":
			cfg.DebugSQL = o.debugSQL
		case "k":
			cfg.DefaultClusters = o.clusters
		}
	})
}

// loadConfig reads path, or the default config file when path is empty and
// the file exists. With neither, every value takes its default.
func loadConfig(path string, fsys fsutil.FileSystem) (*config.DashboardConfig, error) {
	if path == "" {
		if !fsys.Exists(config.DefaultConfigPath) {
			return config.EmptyDashboardConfig(), nil
		}
		path = config.DefaultConfigPath
	}
	return config.LoadDashboardConfigFrom(fsys, path)
}

func clusterConfig(cfg *config.DashboardConfig) cluster.Config {
	return cluster.Config{
		Seed:          cfg.GetSeed(),
		MaxIterations: cfg.GetMaxIterations(),
		NInit:         cfg.GetNInit(),
	}
}

// openMirror opens the debug mirror when enabled. A nil *db.DB must not be
// stored in the returned interfaces, so both come back nil on failure.
func openMirror(cfg *config.DashboardConfig) (*db.DB, dashboard.Mirror, dashboard.AdminRoutes) {
	if !cfg.GetDebugSQL() {
		return nil, nil, nil
	}
	mirror, err := db.OpenMemoryDB()
	if err != nil {
		log.Printf("debug mirror disabled: %v", err)
		return nil, nil, nil
	}
	mirror.SetMaxClusterRuns(cfg.GetMaxClusterRuns())
	return mirror, mirror, mirror
}

// printSummary writes every fixed question and one clustering run as
// aligned text tables.
func printSummary(w io.Writer, t *dataset.Table, k int, ccfg cluster.Config) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	results, errs := aggregate.AnswerAll(t)
	for i, q := range aggregate.Questions {
		fmt.Fprintf(tw, "%s\n", q.Title)
		fmt.Fprintf(tw, "%s\n", strings.Repeat("-", len(q.Title)))
		if errs[i] != nil {
			fmt.Fprintf(tw, "error: %v\n\n", errs[i])
			continue
		}
		res := results[i]
		if len(res.Points) > 0 {
			xs := make([]float64, len(res.Points))
			ys := make([]float64, len(res.Points))
			for j, p := range res.Points {
				xs[j], ys[j] = p.X, p.Y
			}
			fmt.Fprintf(tw, "points\t%d\t\n", len(res.Points))
			fmt.Fprintf(tw, "correlation(%s, %s)\t%.3f\t\n\n", res.GroupColumn, res.MetricColumn, stat.Correlation(xs, ys, nil))
			continue
		}
		shares := res.Shares()
		for j, g := range res.Groups {
			fmt.Fprintf(tw, "%s\t%.0f\t%.1f%%\t\n", g.Label, g.Sum, shares[j])
		}
		fmt.Fprintf(tw, "total\t%.0f\t\t\n\n", res.Total())
	}

	res, err := cluster.KMeans(t, dataset.FeatureColumns, k, ccfg)
	if err != nil {
		fmt.Fprintf(tw, "clustering k=%d: %v\n", k, err)
		return tw.Flush()
	}
	fmt.Fprintf(tw, "Clusters (k=%d, %d iterations, inertia %.4f)\n", k, res.Iterations, res.Inertia)
	fmt.Fprintf(tw, "id\tsize\t%s\t\n", strings.Join(dataset.FeatureColumns, "\t"))
	for id, n := range res.Sizes() {
		cells := make([]string, len(res.Centroids[id]))
		for j, v := range res.Centroids[id] {
			cells[j] = fmt.Sprintf("%.3f", v)
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t\n", id, n, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// exportClusters clusters t with k and writes the result to path, which
// must lie under the working directory or the temp directory.
func exportClusters(path string, t *dataset.Table, k int, ccfg cluster.Config) error {
	if err := security.ValidateExportPath(path); err != nil {
		return err
	}
	res, err := cluster.KMeans(t, dataset.FeatureColumns, k, ccfg)
	if err != nil {
		return err
	}
	withIDs, err := t.WithIntColumn(dataset.ColCluster, res.Assignment)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := dataset.WriteCSV(f, withIDs); err != nil {
		f.Close()
		return fmt.Errorf("failed to write export: %w", err)
	}
	return f.Close()
}

func main() {
	opts := registerFlags(flag.CommandLine)
	flag.Parse()

	if *opts.showVersion {
		fmt.Println(version.String())
		return
	}

	osfs := fsutil.OSFileSystem{}
	cfg, err := loadConfig(*opts.configPath, osfs)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	opts.apply(flag.CommandLine, cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	loader := dataset.NewLoader(cfg.GetDataPath(), osfs, dataset.Options{ReloadOnChange: cfg.GetReloadOnChange()})

	if *opts.summary || *opts.export != "" {
		t, err := loader.Load()
		if err != nil {
			log.Fatalf("%v", err)
		}
		if *opts.export != "" {
			if err := exportClusters(*opts.export, t, cfg.GetDefaultClusters(), clusterConfig(cfg)); err != nil {
				log.Fatalf("export failed: %v", err)
			}
			log.Printf("wrote %d rows to %s", t.Len(), *opts.export)
		}
		if *opts.summary {
			if err := printSummary(os.Stdout, t, cfg.GetDefaultClusters(), clusterConfig(cfg)); err != nil {
				log.Fatalf("failed to write summary: %v", err)
			}
		}
		return
	}

	mirrorDB, mirror, admin := openMirror(cfg)
	if mirrorDB != nil {
		defer mirrorDB.Close()
	}

	pipeline := dashboard.NewPipeline(loader, dashboard.PipelineConfig{
		Cluster:     clusterConfig(cfg),
		MinClusters: cfg.GetMinClusters(),
		MaxClusters: cfg.GetMaxClusters(),
		Mirror:      mirror,
	})
	// A bad source is reported now and again on every page until fixed.
	if t, err := pipeline.Load(); err != nil {
		log.Printf("dataset unavailable: %v", err)
	} else {
		log.Printf("loaded %d rows from %s", t.Len(), loader.Path())
	}

	server := dashboard.NewServer(dashboard.ServerConfig{
		Address:  cfg.GetListen(),
		Pipeline: pipeline,
		Defaults: dashboard.Selection{
			K:     cfg.GetDefaultClusters(),
			XAxis: cfg.GetDefaultXAxis(),
			YAxis: cfg.GetDefaultYAxis(),
		},
		PreviewRows: cfg.GetPreviewRows(),
		Admin:       admin,
	})

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(ctx); err != nil {
			log.Printf("HTTP server error: %v", err)
			stop()
		}
		log.Print("HTTP server routine terminated")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
