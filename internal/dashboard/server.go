package dashboard

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/banshee-data/bikeshare.report/internal/dataset"
	"github.com/banshee-data/bikeshare.report/internal/monitoring"
	"github.com/banshee-data/bikeshare.report/internal/timeutil"
)

// AdminRoutes mounts debugging handlers. *db.DB implements it.
type AdminRoutes interface {
	AttachAdminRoutes(mux *http.ServeMux) error
}

// ServerConfig contains configuration options for the dashboard server.
type ServerConfig struct {
	Address  string
	Pipeline *Pipeline
	// Defaults fills in any selection field a request leaves out.
	Defaults    Selection
	PreviewRows int
	// AssetsHost serves the echarts JavaScript; empty uses DefaultAssetsHost.
	AssetsHost string
	// Admin is optional; when set its routes are mounted under /debug/.
	Admin AdminRoutes
	// Clock stamps health responses; nil uses the wall clock.
	Clock timeutil.Clock
}

// Server handles the HTTP interface of the dashboard.
type Server struct {
	address     string
	pipeline    *Pipeline
	defaults    Selection
	previewRows int
	charts      chartRenderer
	admin       AdminRoutes
	clock       timeutil.Clock
	started     time.Time
	server      *http.Server
}

// NewServer creates a new dashboard server with the provided configuration.
func NewServer(config ServerConfig) *Server {
	defaults := config.Defaults
	if defaults.K == 0 {
		defaults.K, _ = config.Pipeline.KRange()
	}
	if defaults.XAxis == "" {
		defaults.XAxis = dataset.ColTemp
	}
	if defaults.YAxis == "" {
		defaults.YAxis = dataset.ColHumidity
	}

	clock := config.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	s := &Server{
		address:     config.Address,
		pipeline:    config.Pipeline,
		defaults:    defaults,
		previewRows: config.PreviewRows,
		charts:      newChartRenderer(config.AssetsHost),
		admin:       config.Admin,
		clock:       clock,
		started:     clock.Now(),
	}
	s.server = &http.Server{
		Addr:              s.address,
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully. It
// returns early with the listener error if the server cannot start.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("Starting HTTP server on %s", s.address)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			monitoring.Opsf("dashboard: HTTP server failed: %v", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := s.server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}

	monitoring.Logf("HTTP server routine stopped")
	return nil
}

// Close shuts down the server immediately.
func (s *Server) Close() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// setupRoutes configures the HTTP routes and handlers
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/chart/", s.handleChart)
	mux.HandleFunc("/api/aggregations", s.handleAggregations)
	mux.HandleFunc("/api/aggregations/", s.handleAggregations)
	mux.HandleFunc("/api/clusters", s.handleClusters)
	mux.HandleFunc("/api/export.csv", s.handleExport)
	mux.HandleFunc("/api/reload", s.handleReload)
	mux.HandleFunc("/", s.handleIndex)

	if s.admin != nil {
		if err := s.admin.AttachAdminRoutes(mux); err != nil {
			monitoring.Opsf("dashboard: admin routes unavailable: %v", err)
			s.admin = nil
		}
	}
	return mux
}
