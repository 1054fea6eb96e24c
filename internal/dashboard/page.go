package dashboard

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/banshee-data/bikeshare.report/internal/aggregate"
	"github.com/banshee-data/bikeshare.report/internal/dataset"
	"github.com/banshee-data/bikeshare.report/internal/httputil"
	"github.com/banshee-data/bikeshare.report/internal/monitoring"
	"github.com/banshee-data/bikeshare.report/internal/version"
)

//go:embed templates/dashboard.html
var templatesFS embed.FS

var dashboardTemplate = template.Must(template.ParseFS(templatesFS, "templates/dashboard.html"))

// PageTitle heads the dashboard page.
const PageTitle = "Bike Sharing Clustering & Visualisation Dashboard"

type chartFrame struct {
	ID    string
	Title string
	Src   string
	PNG   string
}

type pageData struct {
	Title      string
	Version    string
	LoadErr    string
	Selection  Selection
	MinK, MaxK int
	Features   []string
	ClusterErr string
	Sizes      []int
	Preview    *PreviewData
	ExportSrc  string
	Charts     []chartFrame
	DebugSQL   bool
}

// buildPage turns a report into template data. The preview shows the
// clustered table when clustering succeeded and the plain table otherwise.
func (s *Server) buildPage(report *Report) pageData {
	lo, hi := s.pipeline.KRange()
	page := pageData{
		Title:     PageTitle,
		Version:   version.String(),
		Selection: report.Selection,
		MinK:      lo,
		MaxK:      hi,
		Features:  dataset.FeatureColumns,
		DebugSQL:  s.admin != nil,
	}
	if report.LoadErr != nil {
		page.LoadErr = report.LoadErr.Error()
		return page
	}

	previewTable := report.Table
	if report.Clusters.Err != nil {
		page.ClusterErr = report.Clusters.Err.Error()
	} else {
		previewTable = report.Clusters.Table
		page.Sizes = report.Clusters.Result.Sizes()
	}
	page.Preview = PreparePreview(previewTable, s.previewRows)

	sel := report.Selection
	query := url.Values{
		"k": {strconv.Itoa(sel.K)},
		"x": {sel.XAxis},
		"y": {sel.YAxis},
	}.Encode()
	if report.Clusters.Err == nil {
		page.ExportSrc = "/api/export.csv?" + query
	}
	page.Charts = append(page.Charts, chartFrame{
		ID:    ClustersChartID,
		Title: "Clusters",
		Src:   "/chart/" + ClustersChartID + "?" + query,
		PNG:   "/chart/" + ClustersChartID + ".png?" + query,
	})
	for _, q := range aggregate.Questions {
		frame := chartFrame{ID: q.ID, Title: q.Title, Src: "/chart/" + q.ID}
		if q.Kind == aggregate.Bar || q.Kind == aggregate.Scatter {
			frame.PNG = "/chart/" + q.ID + ".png"
		}
		page.Charts = append(page.Charts, frame)
	}
	return page
}

// handleIndex renders the dashboard page for the requested selection.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	status := http.StatusOK
	var report *Report
	sel, err := s.parseSelection(r)
	if err != nil {
		// Keep rendering with the defaults; the bad k surfaces on the
		// cluster chart.
		report = s.pipeline.Run(s.defaults)
		report.Clusters.Err = err
		report.Clusters.Result = nil
		report.Clusters.Table = nil
	} else {
		report = s.pipeline.Run(sel)
	}
	if report.LoadErr != nil {
		status = http.StatusInternalServerError
	}

	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, s.buildPage(report)); err != nil {
		monitoring.Opsf("dashboard: template error: %v", err)
		http.Error(w, "Error executing template: "+err.Error(), http.StatusInternalServerError)
		return
	}
	httputil.WriteHTML(w, status, buf.Bytes())
}
