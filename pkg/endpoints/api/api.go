// Package api serves laps and statistics as JSON for the dashboard.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/cors"

	"github.com/mpapenbr/schaatslog/log"
	"github.com/mpapenbr/schaatslog/pkg/archive"
	"github.com/mpapenbr/schaatslog/pkg/canonical"
	"github.com/mpapenbr/schaatslog/pkg/fetch"
	"github.com/mpapenbr/schaatslog/pkg/filter"
	"github.com/mpapenbr/schaatslog/pkg/model"
	"github.com/mpapenbr/schaatslog/pkg/utils/clock"
)

// maxImportSize limits the body of an import request.
const maxImportSize = 10 << 20

var errBadRequest = errors.New("bad request")

type (
	Option func(*Server)
	Server struct {
		source  *fetch.Source
		archive archive.Archive
		clock   clock.Clock
		log     *log.Logger
		mux     *http.ServeMux
	}
)

// WithArchive enables /api/archive and archiving on import.
func WithArchive(a archive.Archive) Option {
	return func(s *Server) {
		s.archive = a
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Server) {
		s.clock = c
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

func NewServer(source *fetch.Source, opts ...Option) *Server {
	s := &Server{
		source: source,
		clock:  clock.Real(),
		log:    log.Default().Named("api"),
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mux.HandleFunc("GET /api/laps", s.handleLaps)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("POST /api/import", s.handleImport)
	s.mux.HandleFunc("GET /api/export.csv", s.handleExport)
	s.mux.HandleFunc("GET /api/archive/{transponder}", s.handleArchive)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return s
}

// Handler returns the routes wrapped with a permissive CORS setup.
func (s *Server) Handler() http.Handler {
	return newCORS().Handler(s.mux)
}

type query struct {
	transponder string
	filter      model.FilterMode
	force       bool
	season      string
	criteria    filter.Criteria
}

func parseQuery(r *http.Request) (query, error) {
	v := r.URL.Query()
	q := query{transponder: strings.TrimSpace(v.Get("transponder"))}
	if q.transponder == "" {
		q.transponder = model.DefaultTransponder
	}
	var err error
	if q.filter, err = model.ParseFilterMode(v.Get("filter")); err != nil {
		return q, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	if s := v.Get("force"); s != "" {
		if q.force, err = strconv.ParseBool(s); err != nil {
			return q, fmt.Errorf("%w: force: %w", errBadRequest, err)
		}
	}
	if q.season = strings.TrimSpace(v.Get("season")); q.season != "" &&
		!filter.ValidSeason(q.season) {
		return q, fmt.Errorf("%w: season %q", errBadRequest, q.season)
	}
	q.criteria = filter.Criteria{
		Date:   v.Get("date"),
		MinLap: filter.UnboundedMin,
		MaxLap: filter.UnboundedMax,
		Mode:   q.filter,
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"min", &q.criteria.MinLap}, {"max", &q.criteria.MaxLap}} {
		if s := v.Get(p.name); s != "" {
			if *p.dst, err = strconv.Atoi(s); err != nil {
				return q, fmt.Errorf("%w: %s: %w", errBadRequest, p.name, err)
			}
		}
	}
	return q, nil
}

func (s *Server) laps(ctx context.Context, q query) ([]model.Lap, error) {
	laps, err := s.source.Fetch(ctx, q.transponder, q.filter, q.force)
	if err != nil {
		return nil, &upstreamError{err: err}
	}
	return filter.Apply(laps, q.criteria), nil
}

func (s *Server) handleLaps(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	laps, err := s.laps(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, laps)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	laps, err := s.laps(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BuildStats(laps, s.clock.Now(), q.season))
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	st := s.source.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"loading":     st.Loading,
		"error":       st.Err,
		"laps":        st.Laps,
		"transponder": st.Transponder,
		"filter":      st.Filter,
	})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	laps, err := canonical.ParseCSV(io.LimitReader(r.Body, maxImportSize), s.clock.Now())
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	transponder := strings.TrimSpace(r.URL.Query().Get("transponder"))
	if transponder != "" {
		for i := range laps {
			laps[i].Transponder = transponder
		}
	} else {
		transponder = model.DefaultTransponder
	}
	if archiveIt, _ := strconv.ParseBool(r.URL.Query().Get("archive")); archiveIt {
		if s.archive == nil {
			s.writeError(w, fmt.Errorf("%w: no archive configured", errBadRequest))
			return
		}
		if _, err := s.archive.Store(r.Context(), transponder,
			"api-import", laps); err != nil {
			s.writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, laps)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	laps, err := s.laps(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "laps-"+q.transponder+".csv"))
	if err := canonical.WriteCSV(w, laps); err != nil {
		s.log.Warn("could not write csv", log.ErrorField(err))
	}
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no archive configured"})
		return
	}
	laps, err := s.archive.Load(r.Context(), r.PathValue("transponder"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, laps)
}

// upstreamError marks failures of the timing service.
type upstreamError struct {
	err error
}

func (e *upstreamError) Error() string { return e.err.Error() }
func (e *upstreamError) Unwrap() error { return e.err }

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var upstream *upstreamError
	switch {
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.As(err, &upstream):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		s.log.Warn("request failed", log.Int("status", status), log.ErrorField(err))
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errchkjson // nothing left to do if the client went away
	_ = json.NewEncoder(w).Encode(v)
}

func newCORS() *cors.Cors {
	// the dashboard may be served from anywhere
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Disposition"},
	})
}
