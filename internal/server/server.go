// Package server renders repository history charts over HTTP.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/naka-gawa/repo-history/internal/domain"
	"github.com/naka-gawa/repo-history/internal/histogram"
	"github.com/naka-gawa/repo-history/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/time/rate"
)

//go:embed templates/*.html
var templateFS embed.FS

// Historian is the read side the server renders.
type Historian interface {
	History(ctx context.Context, kind domain.Kind, token string) (*domain.Chart, error)
	List(ctx context.Context, kind domain.Kind) ([]domain.Observation, error)
	Runs(ctx context.Context, limit int) ([]domain.Run, error)
}

// Collector triggers one snapshot of the tracked repository.
type Collector interface {
	Collect(ctx context.Context, repo string) (*domain.Run, error)
}

// Server serves the chart pages, the JSON API and /metrics.
type Server struct {
	historian Historian
	collector Collector
	repo      string
	limiter   *rate.Limiter
	logger    zerolog.Logger
	pages     *template.Template
}

// New creates a Server. collector may be nil, in which case /retrieve
// reports 503. Manual retrievals are limited to one per retrieveEvery.
func New(historian Historian, collector Collector, repo string, retrieveEvery time.Duration, logger zerolog.Logger) (*Server, error) {
	pages, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	limit := rate.Inf
	if retrieveEvery > 0 {
		limit = rate.Every(retrieveEvery)
	}
	return &Server{
		historian: historian,
		collector: collector,
		repo:      repo,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
		pages:     pages,
	}, nil
}

// Handler returns the routed handler wrapped with access logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.index)
	mux.HandleFunc("GET /{kind}/history/{$}", s.historyPage)
	mux.HandleFunc("GET /{kind}/history/{timespan}/{$}", s.historyPage)
	mux.HandleFunc("GET /{kind}/list", s.list)
	mux.HandleFunc("GET /api/{kind}/history", s.historyJSON)
	mux.HandleFunc("GET /api/{kind}/history/{timespan}", s.historyJSON)
	mux.HandleFunc("GET /runs", s.runs)
	mux.HandleFunc("GET /retrieve", s.retrieve)
	mux.HandleFunc("POST /retrieve", s.retrieve)
	mux.Handle("GET /metrics", metrics.Handler())

	var h http.Handler = mux
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("")
	})(h)
	return hlog.NewHandler(s.logger)(h)
}

type link struct {
	Href string
	Text string
}

type indexRow struct {
	Noun  string
	Links []link
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	rows := make([]indexRow, 0, len(domain.Kinds))
	for _, kind := range domain.Kinds {
		row := indexRow{Noun: kind.Noun()}
		for _, span := range []string{"hour", "day", "week"} {
			row.Links = append(row.Links, link{
				Href: fmt.Sprintf("/%s/history/%s/", kind.Path(), span),
				Text: "per " + span,
			})
		}
		row.Links = append(row.Links, link{Href: "/" + kind.Path() + "/list", Text: "list"})
		rows = append(rows, row)
	}
	s.render(w, r, "index.html", map[string]any{"Repo": s.repo, "Rows": rows})
}

func (s *Server) historyPage(w http.ResponseWriter, r *http.Request) {
	chart, ok := s.chart(w, r)
	if !ok {
		return
	}
	s.render(w, r, "linegraph.html", chart)
}

func (s *Server) historyJSON(w http.ResponseWriter, r *http.Request) {
	chart, ok := s.chart(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, chart)
}

func (s *Server) chart(w http.ResponseWriter, r *http.Request) (*domain.Chart, bool) {
	kind, err := domain.ParseKind(r.PathValue("kind"))
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	chart, err := s.historian.History(r.Context(), kind, r.PathValue("timespan"))
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return chart, true
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseKind(r.PathValue("kind"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	observations, err := s.historian.List(r.Context(), kind)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for n, o := range observations {
		fmt.Fprintf(w, "%4d %s %s\n", n, o.Timestamp.Format(time.DateTime), o.Login)
	}
}

func (s *Server) runs(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	runs, err := s.historian.Runs(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, runs)
}

func (s *Server) retrieve(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		http.Error(w, "collection is not configured", http.StatusServiceUnavailable)
		return
	}
	if !s.limiter.Allow() {
		http.Error(w, "retrieval was requested too recently", http.StatusTooManyRequests)
		return
	}
	run, err := s.collector.Collect(r.Context(), s.repo)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, run)
}

// fail maps err to a status code and logs server-side failures.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnknownKind):
		status = http.StatusNotFound
	case errors.Is(err, histogram.ErrInvalidTimespan), errors.Is(err, histogram.ErrTooManyBuckets):
		status = http.StatusBadRequest
	}
	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg("Request failed.")
	}
	http.Error(w, err.Error(), status)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages.ExecuteTemplate(w, name, data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("template", name).Msg("Failed to render template.")
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Failed to encode response.")
	}
}
