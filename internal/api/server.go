// Package api serves read-only HTTP queries over a prepared dataset.
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/devstats-cli/internal/dataset"
	"github.com/sells-group/devstats-cli/internal/model"
)

// Options configures the router's middleware.
type Options struct {
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Server answers queries against one immutable dataset and its report.
type Server struct {
	ds     *dataset.Dataset
	report model.QualityReport
	opts   Options
}

// New creates a Server.
func New(ds *dataset.Dataset, report model.QualityReport, opts Options) *Server {
	return &Server{ds: ds, report: report, opts: opts}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := newRouter(s.opts)

	r.Get("/health", s.handleHealth)
	r.Get("/report", s.handleReport)
	r.Get("/records", s.handleRecords)
	r.Get("/entities", s.handleEntities)
	r.Get("/years", s.handleYears)
	r.Route("/regions", func(r chi.Router) {
		r.Get("/", s.handleRegions)
		r.Get("/mean", s.handleRegionMean)
		r.Get("/population-share", s.handlePopulationShare)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

// newRouter returns a chi router with the middleware stack installed.
func newRouter(opts Options) chi.Router {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"records": s.ds.Len(),
	})
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.report)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(w, r)
	if !ok {
		return
	}
	entity := strings.TrimSpace(r.URL.Query().Get("entity"))
	writeJSON(w, http.StatusOK, nonNil(s.ds.Filter(year, entity)))
}

func (s *Server) handleEntities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.ds.Entities()))
}

func (s *Server) handleYears(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.ds.Years()))
}

func (s *Server) handleRegions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.ds.Regions()))
}

func (s *Server) handleRegionMean(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, nonNil(dataset.MeanByRegion(s.ds.Filter(year, ""))))
}

func (s *Server) handlePopulationShare(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, nonNil(dataset.PopulationShare(s.ds.Filter(year, ""))))
}

// yearParam parses the optional year query parameter. On a malformed value
// it writes a 400 and returns ok=false.
func yearParam(w http.ResponseWriter, r *http.Request) (*int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("year"))
	if raw == "" {
		return nil, true
	}
	y, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year "+strconv.Quote(raw))
		return nil, false
	}
	return &y, true
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// writeJSON encodes v before touching w so an encoding failure still
// yields a complete 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		zap.L().Error("api: encode response", zap.Error(err))
		buf.Reset()
		buf.WriteString(`{"error":"internal error"}` + "\n")
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
