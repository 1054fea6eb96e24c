// Package config loads the dashboard configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/bikeshare.report/internal/dataset"
	"github.com/banshee-data/bikeshare.report/internal/fsutil"
)

// DefaultConfigPath is the path to the canonical dashboard defaults file.
const DefaultConfigPath = "config/dashboard.defaults.json"

// DataPathEnv locates the dataset when neither a flag nor the config file does.
const DataPathEnv = "BIKESHARE_DATA"

// DashboardConfig is the root configuration. Every field is optional; the
// Get* methods supply defaults for anything the file leaves out.
type DashboardConfig struct {
	// Data source
	DataPath       *string `json:"data_path,omitempty"`
	ReloadOnChange *bool   `json:"reload_on_change,omitempty"`

	// HTTP
	Listen      *string `json:"listen,omitempty"`
	PreviewRows *int    `json:"preview_rows,omitempty"`
	DebugSQL    *bool   `json:"debug_sql,omitempty"`
	// MaxClusterRuns caps the debug mirror's cluster_runs log.
	MaxClusterRuns *int `json:"max_cluster_runs,omitempty"`

	// Clustering
	Seed            *uint64 `json:"seed,omitempty"`
	MaxIterations   *int    `json:"max_iterations,omitempty"`
	NInit           *int    `json:"n_init,omitempty"`
	MinClusters     *int    `json:"min_clusters,omitempty"`
	MaxClusters     *int    `json:"max_clusters,omitempty"`
	DefaultClusters *int    `json:"default_clusters,omitempty"`
	DefaultXAxis    *string `json:"default_x_axis,omitempty"`
	DefaultYAxis    *string `json:"default_y_axis,omitempty"`
}

// EmptyDashboardConfig returns a config with all fields unset.
func EmptyDashboardConfig() *DashboardConfig {
	return &DashboardConfig{}
}

// LoadDashboardConfig loads a DashboardConfig from a JSON file on disk.
func LoadDashboardConfig(path string) (*DashboardConfig, error) {
	return LoadDashboardConfigFrom(fsutil.OSFileSystem{}, path)
}

// LoadDashboardConfigFrom loads a DashboardConfig from a JSON file in fsys.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file keep their defaults, so partial configs are safe.
func LoadDashboardConfigFrom(fsys fsutil.FileSystem, path string) (*DashboardConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyDashboardConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *DashboardConfig) Validate() error {
	if c.PreviewRows != nil && *c.PreviewRows < 0 {
		return fmt.Errorf("preview_rows must be non-negative, got %d", *c.PreviewRows)
	}
	if c.MaxClusterRuns != nil && *c.MaxClusterRuns < 1 {
		return fmt.Errorf("max_cluster_runs must be at least 1, got %d", *c.MaxClusterRuns)
	}
	if c.MaxIterations != nil && *c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", *c.MaxIterations)
	}
	if c.NInit != nil && *c.NInit < 1 {
		return fmt.Errorf("n_init must be at least 1, got %d", *c.NInit)
	}

	lo, hi := c.GetMinClusters(), c.GetMaxClusters()
	if lo < 1 {
		return fmt.Errorf("min_clusters must be at least 1, got %d", lo)
	}
	if hi < lo {
		return fmt.Errorf("max_clusters (%d) must not be below min_clusters (%d)", hi, lo)
	}
	if k := c.GetDefaultClusters(); k < lo || k > hi {
		return fmt.Errorf("default_clusters must be within [%d,%d], got %d", lo, hi, k)
	}

	for field, axis := range map[string]string{
		"default_x_axis": c.GetDefaultXAxis(),
		"default_y_axis": c.GetDefaultYAxis(),
	} {
		if !dataset.IsFeature(axis) {
			return fmt.Errorf("%s must be one of %v, got %q", field, dataset.FeatureColumns, axis)
		}
	}
	return nil
}

// GetDataPath resolves the dataset path: config value, then the
// BIKESHARE_DATA environment variable, then dataset.DefaultPath.
func (c *DashboardConfig) GetDataPath() string {
	if c.DataPath != nil && *c.DataPath != "" {
		return *c.DataPath
	}
	if env := os.Getenv(DataPathEnv); env != "" {
		return env
	}
	return dataset.DefaultPath
}

// GetReloadOnChange returns the reload_on_change value or the default.
func (c *DashboardConfig) GetReloadOnChange() bool {
	if c.ReloadOnChange == nil {
		return false // default: cache for the process lifetime
	}
	return *c.ReloadOnChange
}

// GetListen returns the listen address or the default.
func (c *DashboardConfig) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return ":8080"
	}
	return *c.Listen
}

// GetPreviewRows returns how many clustered rows the dashboard shows.
func (c *DashboardConfig) GetPreviewRows() int {
	if c.PreviewRows == nil {
		return 20
	}
	return *c.PreviewRows
}

// GetDebugSQL reports whether the in-memory SQL mirror is enabled.
func (c *DashboardConfig) GetDebugSQL() bool {
	if c.DebugSQL == nil {
		return true
	}
	return *c.DebugSQL
}

// GetMaxClusterRuns returns how many cluster runs the debug mirror keeps.
func (c *DashboardConfig) GetMaxClusterRuns() int {
	if c.MaxClusterRuns == nil {
		return 500
	}
	return *c.MaxClusterRuns
}

// GetSeed returns the clustering seed or the default.
func (c *DashboardConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return 42
	}
	return *c.Seed
}

// GetMaxIterations returns the max_iterations value or the default.
func (c *DashboardConfig) GetMaxIterations() int {
	if c.MaxIterations == nil {
		return 300
	}
	return *c.MaxIterations
}

// GetNInit returns the n_init value or the default.
func (c *DashboardConfig) GetNInit() int {
	if c.NInit == nil {
		return 1
	}
	return *c.NInit
}

// GetMinClusters returns the lower bound of the k control.
func (c *DashboardConfig) GetMinClusters() int {
	if c.MinClusters == nil {
		return 2
	}
	return *c.MinClusters
}

// GetMaxClusters returns the upper bound of the k control.
func (c *DashboardConfig) GetMaxClusters() int {
	if c.MaxClusters == nil {
		return 10
	}
	return *c.MaxClusters
}

// GetDefaultClusters returns the k shown on first visit.
func (c *DashboardConfig) GetDefaultClusters() int {
	if c.DefaultClusters == nil {
		return c.GetMinClusters()
	}
	return *c.DefaultClusters
}

// GetDefaultXAxis returns the initial x-axis feature.
func (c *DashboardConfig) GetDefaultXAxis() string {
	if c.DefaultXAxis == nil || *c.DefaultXAxis == "" {
		return dataset.ColTemp
	}
	return *c.DefaultXAxis
}

// GetDefaultYAxis returns the initial y-axis feature.
func (c *DashboardConfig) GetDefaultYAxis() string {
	if c.DefaultYAxis == nil || *c.DefaultYAxis == "" {
		return dataset.ColHumidity
	}
	return *c.DefaultYAxis
}
