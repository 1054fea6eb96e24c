package dashboard

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/bikeshare.report/internal/aggregate"
	"github.com/banshee-data/bikeshare.report/internal/cluster"
	"github.com/banshee-data/bikeshare.report/internal/dataset"
	"github.com/banshee-data/bikeshare.report/internal/httputil"
	"github.com/banshee-data/bikeshare.report/internal/security"
	"github.com/banshee-data/bikeshare.report/internal/version"
)

// ClustersChartID names the cluster scatter among the chart routes.
const ClustersChartID = "clusters"

// parseSelection reads k, x and y from the query string, falling back to
// the server defaults. Only a malformed k is an error here; range and
// axis checks happen in Pipeline.CheckSelection.
func (s *Server) parseSelection(r *http.Request) (Selection, error) {
	sel := s.defaults
	q := r.URL.Query()
	if v := q.Get("k"); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil {
			return sel, fmt.Errorf("invalid k %q: must be an integer", v)
		}
		sel.K = k
	}
	if v := q.Get("x"); v != "" {
		sel.XAxis = v
	}
	if v := q.Get("y"); v != "" {
		sel.YAxis = v
	}
	return sel, nil
}

// chartErrorStatus maps a chart-level failure to an HTTP status.
func chartErrorStatus(err error) int {
	var colErr *aggregate.InvalidColumnError
	var clErr *cluster.ClusteringError
	switch {
	case errors.As(err, &colErr), errors.As(err, &clErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"status":    "ok",
		"service":   "bikeshare",
		"version":   version.Version,
		"timestamp": s.clock.Now().UTC().Format(time.RFC3339),
		"uptime":    s.clock.Since(s.started).Truncate(time.Second).String(),
	})
}

// handleChart serves /chart/{name} as an echarts HTML document and
// /chart/{name}.png as a gonum/plot image. A failed chart renders its
// error message in place of the chart.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/chart/")
	png := strings.HasSuffix(name, ".png")
	name = strings.TrimSuffix(name, ".png")

	title := name
	var q aggregate.Question
	if name != ClustersChartID {
		var ok bool
		q, ok = aggregate.FindQuestion(name)
		if !ok {
			s.writeChartError(w, png, http.StatusNotFound, name, fmt.Sprintf("unknown chart %q", name))
			return
		}
		title = q.Title
		if png && (q.Kind == aggregate.Pie || q.Kind == aggregate.Donut) {
			httputil.NotFound(w, fmt.Sprintf("chart %q has no PNG rendering", name))
			return
		}
	}

	t, err := s.pipeline.Load()
	if err != nil {
		s.writeChartError(w, png, http.StatusInternalServerError, title, err.Error())
		return
	}

	var buf bytes.Buffer
	if name == ClustersChartID {
		sel, err := s.parseSelection(r)
		if err != nil {
			s.writeChartError(w, png, http.StatusBadRequest, "Clusters", err.Error())
			return
		}
		data, err := PrepareClusterChartData(s.pipeline.Cluster(t, sel))
		if err != nil {
			s.writeChartError(w, png, chartErrorStatus(err), "Clusters", err.Error())
			return
		}
		if png {
			err = plotClustersPNG(&buf, data)
		} else {
			err = s.charts.renderClusters(&buf, data)
		}
		if err != nil {
			s.writeChartError(w, png, http.StatusInternalServerError, data.Title, fmt.Sprintf("render error: %v", err))
			return
		}
	} else {
		qv := s.pipeline.Answer(t, q)
		if qv.Err != nil {
			s.writeChartError(w, png, chartErrorStatus(qv.Err), title, qv.Err.Error())
			return
		}
		if png {
			err = plotQuestionPNG(&buf, qv)
		} else {
			err = s.charts.renderQuestion(&buf, qv)
		}
		if err != nil {
			s.writeChartError(w, png, http.StatusInternalServerError, title, fmt.Sprintf("render error: %v", err))
			return
		}
	}

	if png {
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
		return
	}
	httputil.WriteHTML(w, http.StatusOK, buf.Bytes())
}

func (s *Server) writeChartError(w http.ResponseWriter, png bool, status int, title, msg string) {
	if png {
		httputil.WriteJSONError(w, status, msg)
		return
	}
	httputil.WriteHTMLError(w, status, title, msg)
}

type questionSummary struct {
	ID    string              `json:"id"`
	Title string              `json:"title"`
	Kind  aggregate.ChartKind `json:"kind"`
}

type aggregationResponse struct {
	ID     string              `json:"id"`
	Title  string              `json:"title"`
	Kind   aggregate.ChartKind `json:"kind"`
	Total  float64             `json:"total"`
	Shares []float64           `json:"shares,omitempty"`
	*aggregate.Result
}

// handleAggregations lists the questions at /api/aggregations and answers
// one at /api/aggregations/{name}.
func (s *Server) handleAggregations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/aggregations"), "/")
	if name == "" {
		list := make([]questionSummary, len(aggregate.Questions))
		for i, q := range aggregate.Questions {
			list[i] = questionSummary{ID: q.ID, Title: q.Title, Kind: q.Kind}
		}
		httputil.WriteJSONOK(w, list)
		return
	}

	q, ok := aggregate.FindQuestion(name)
	if !ok {
		httputil.NotFound(w, fmt.Sprintf("unknown aggregation %q", name))
		return
	}
	t, err := s.pipeline.Load()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	qv := s.pipeline.Answer(t, q)
	if qv.Err != nil {
		httputil.WriteJSONError(w, chartErrorStatus(qv.Err), qv.Err.Error())
		return
	}
	resp := aggregationResponse{
		ID:     q.ID,
		Title:  q.Title,
		Kind:   q.Kind,
		Total:  qv.Result.Total(),
		Result: qv.Result,
	}
	if len(qv.Result.Groups) > 0 {
		resp.Shares = qv.Result.Shares()
	}
	httputil.WriteJSONOK(w, resp)
}

type clustersResponse struct {
	Selection  Selection   `json:"selection"`
	Rows       int         `json:"rows"`
	Features   []string    `json:"features"`
	Sizes      []int       `json:"sizes"`
	Centroids  [][]float64 `json:"centroids"`
	Inertia    float64     `json:"inertia"`
	Iterations int         `json:"iterations"`
	Converged  bool        `json:"converged"`
	Assignment []int       `json:"assignment,omitempty"`
}

// handleClusters serves /api/clusters?k=&x=&y=. Pass assignment=1 to
// include the per-row cluster ids.
func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	sel, err := s.parseSelection(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := s.pipeline.CheckSelection(sel); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	t, err := s.pipeline.Load()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	view := s.pipeline.Cluster(t, sel)
	if view.Err != nil {
		httputil.WriteJSONError(w, chartErrorStatus(view.Err), view.Err.Error())
		return
	}

	res := view.Result
	resp := clustersResponse{
		Selection:  sel,
		Rows:       len(res.Assignment),
		Features:   res.Features,
		Sizes:      res.Sizes(),
		Centroids:  res.Centroids,
		Inertia:    res.Inertia,
		Iterations: res.Iterations,
		Converged:  res.Converged,
	}
	if r.URL.Query().Get("assignment") == "1" {
		resp.Assignment = res.Assignment
	}
	httputil.WriteJSONOK(w, resp)
}

// ExportFilename names the CSV download for sel.
func ExportFilename(sel Selection) string {
	return security.SanitizeFilename(fmt.Sprintf("day_k%d_%s_vs_%s.csv", sel.K, sel.XAxis, sel.YAxis))
}

// handleExport serves the clustered table as a CSV attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	sel, err := s.parseSelection(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	t, err := s.pipeline.Load()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	view := s.pipeline.Cluster(t, sel)
	if view.Err != nil {
		httputil.WriteJSONError(w, chartErrorStatus(view.Err), view.Err.Error())
		return
	}

	var buf bytes.Buffer
	if err := dataset.WriteCSV(&buf, view.Table); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("export failed: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ExportFilename(sel)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleReload drops the dataset cache and loads the source again.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.pipeline.Invalidate()
	t, err := s.pipeline.Load()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]int{"rows": t.Len()})
}
