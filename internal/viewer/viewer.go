// Package viewer serves generation runs, region results and renderings over
// HTTP.
package viewer

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/bubble-cli/internal/export"
	"github.com/sells-group/bubble-cli/internal/model"
	"github.com/sells-group/bubble-cli/internal/store"
)

// Options configures the viewer.
type Options struct {
	// OutputDir is the export root; renderings are read from
	// <OutputDir>/<type>/JPGs.
	OutputDir   string
	CORSOrigins []string
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// Server exposes the run store read-only.
type Server struct {
	store store.Store
	opts  Options
}

// New creates a viewer over st.
func New(st store.Store, opts Options) *Server {
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	return &Server{store: st, opts: opts}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}

	r.Route("/api/runs", func(r chi.Router) {
		r.Get("/", s.listRuns)
		r.Get("/latest", s.latestRun)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getRun)
			r.Get("/regions", s.listRegions)
			r.Get("/regions/{name}", s.getRegion)
		})
	})
	r.Get("/images/{type}/{name}", s.image)
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		zap.L().Warn("viewer: store ping failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		RegionType: model.RegionType(q.Get("type")),
		Status:     model.RunStatus(q.Get("status")),
	}
	if filter.RegionType != "" && !filter.RegionType.Valid() {
		writeError(w, http.StatusBadRequest, "unknown region type")
		return
	}
	var err error
	if filter.Limit, err = intParam(q, "limit"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q, "offset"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	if since := q.Get("since"); since != "" {
		if filter.CreatedAfter, err = time.Parse(time.RFC3339, since); err != nil {
			writeError(w, http.StatusBadRequest, "invalid since")
			return
		}
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) latestRun(w http.ResponseWriter, r *http.Request) {
	rt := model.RegionType(r.URL.Query().Get("type"))
	if rt == "" {
		rt = model.RegionConstituencies
	}
	if !rt.Valid() {
		writeError(w, http.StatusBadRequest, "unknown region type")
		return
	}
	run, err := s.store.LatestRun(r.Context(), rt)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) listRegions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetRun(r.Context(), id); err != nil {
		s.storeError(w, err)
		return
	}
	results, err := s.store.ListRegionResults(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if results == nil {
		results = []model.RegionResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) getRegion(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid region name")
		return
	}
	res, err := s.store.GetRegionResult(r.Context(), chi.URLParam(r, "id"), name)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) image(w http.ResponseWriter, r *http.Request) {
	rt := model.RegionType(chi.URLParam(r, "type"))
	if !rt.Valid() {
		writeError(w, http.StatusNotFound, "unknown region type")
		return
	}
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid region name")
		return
	}
	name = strings.TrimSuffix(name, ".jpg")

	path := export.Layout{Dir: filepath.Join(s.opts.OutputDir, string(rt))}.RegionJPG(name)
	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	zap.L().Error("viewer: store error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func intParam(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("invalid")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("viewer: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("viewer: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
