package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ghinfo/ghinfo/internal/core/batch"
	"github.com/ghinfo/ghinfo/internal/core/models"
	"github.com/ghinfo/ghinfo/internal/core/services"
	"github.com/ghinfo/ghinfo/internal/util/logging"
)

const (
	serviceName = "ghinfo"

	// maxBatchBody bounds the JSON body of batch requests.
	maxBatchBody = 1 << 20
)

// Options holds handler settings that are not dependencies.
type Options struct {
	Version string
	// CORSAllowedOrigins restricts cross-origin callers; empty allows all.
	CORSAllowedOrigins []string
}

// Handler holds all HTTP handlers and their dependencies.
type Handler struct {
	upstream services.Upstream
	batch    *batch.Aggregator
	logger   zerolog.Logger
	opts     Options
}

// New creates a new Handler with the given dependencies.
func New(upstream services.Upstream, aggregator *batch.Aggregator, logger zerolog.Logger, opts Options) *Handler {
	return &Handler{
		upstream: upstream,
		batch:    aggregator,
		logger:   logger,
		opts:     opts,
	}
}

// Router returns the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(h.requestIDMiddleware)
	r.Use(h.loggingMiddleware)
	r.Use(cors.Handler(h.corsOptions()))

	r.Get("/", h.Health)
	r.Get("/health", h.Health)
	r.Get("/repos/{owner}/{repo}", h.GetRepoInfo)
	r.Get("/repos/{owner}/{repo}/releases", h.GetReleases)
	r.Get("/repos/{owner}/{repo}/releases/latest", h.GetLatestRelease)
	r.Post("/repos/batch", h.BatchGetRepos)
	r.Post("/repos/batch/map", h.BatchGetReposMap)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		h.writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

func (h *Handler) corsOptions() cors.Options {
	origins := h.opts.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         3600,
	}
}

// requestIDMiddleware adds a unique request ID to each request.
func (h *Handler) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		ctx := logging.WithRequestID(r.Context(), id)
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs each request.
func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logging.LogRequest(h.logger, r.Context(), r.Method, r.URL.Path, rw.status, rw.written, time.Since(start))
	})
}

// Health handles GET / and GET /health
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:  "ok",
		Service: serviceName,
		Version: h.opts.Version,
	})
}

// GetRepoInfo handles GET /repos/{owner}/{repo}
func (h *Handler) GetRepoInfo(w http.ResponseWriter, r *http.Request) {
	owner, repo := chi.URLParam(r, "owner"), chi.URLParam(r, "repo")

	info, err := h.upstream.RepoInfo(r.Context(), owner, repo)
	if err != nil {
		h.writeUpstreamError(w, r, err, fmt.Sprintf("repository %s/%s not found", owner, repo))
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

// GetReleases handles GET /repos/{owner}/{repo}/releases
func (h *Handler) GetReleases(w http.ResponseWriter, r *http.Request) {
	owner, repo := chi.URLParam(r, "owner"), chi.URLParam(r, "repo")

	releases, err := h.upstream.Releases(r.Context(), owner, repo)
	if err != nil {
		h.writeUpstreamError(w, r, err, fmt.Sprintf("repository %s/%s not found", owner, repo))
		return
	}
	if releases == nil {
		releases = []models.Release{}
	}
	h.writeJSON(w, http.StatusOK, releases)
}

// GetLatestRelease handles GET /repos/{owner}/{repo}/releases/latest
func (h *Handler) GetLatestRelease(w http.ResponseWriter, r *http.Request) {
	owner, repo := chi.URLParam(r, "owner"), chi.URLParam(r, "repo")

	release, err := h.upstream.LatestRelease(r.Context(), owner, repo)
	if err != nil {
		h.writeUpstreamError(w, r, err, fmt.Sprintf("no release found for %s/%s", owner, repo))
		return
	}
	h.writeJSON(w, http.StatusOK, release)
}

// BatchGetRepos handles POST /repos/batch. A started batch runs to
// completion even if the client goes away.
func (h *Handler) BatchGetRepos(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeBatchRequest(w, r)
	if !ok {
		return
	}

	outcomes, err := h.batch.Resolve(context.WithoutCancel(r.Context()), req.Repos, req.Fields)
	if err != nil {
		h.logger.Error().Err(err).Str("request_id", logging.RequestID(r.Context())).Msg("batch failed")
		h.writeError(w, http.StatusInternalServerError, "batch processing failed")
		return
	}

	h.logBatch(r, len(req.Repos), slices.Values(outcomes))
	h.writeJSON(w, http.StatusOK, models.BatchResponse{Results: outcomes})
}

// BatchGetReposMap handles POST /repos/batch/map
func (h *Handler) BatchGetReposMap(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeBatchRequest(w, r)
	if !ok {
		return
	}

	results, err := h.batch.ResolveMap(context.WithoutCancel(r.Context()), req.Repos, req.Fields)
	if err != nil {
		h.logger.Error().Err(err).Str("request_id", logging.RequestID(r.Context())).Msg("batch failed")
		h.writeError(w, http.StatusInternalServerError, "batch processing failed")
		return
	}

	h.logBatch(r, len(req.Repos), maps.Values(results))
	h.writeJSON(w, http.StatusOK, models.BatchResponseMap{ResultsMap: results})
}

func (h *Handler) logBatch(r *http.Request, total int, outcomes iter.Seq[models.ItemOutcome]) {
	succeeded := 0
	for o := range outcomes {
		if o.Success {
			succeeded++
		}
	}
	h.logger.Info().
		Str("request_id", logging.RequestID(r.Context())).
		Int("repos", total).
		Int("succeeded", succeeded).
		Msg("batch completed")
}

func (h *Handler) decodeBatchRequest(w http.ResponseWriter, r *http.Request) (*models.BatchRequest, bool) {
	var req models.BatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBody)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return nil, false
	}
	return &req, true
}

func (h *Handler) writeUpstreamError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	var uerr *services.UpstreamError
	switch {
	case errors.Is(err, services.ErrNotFound):
		h.writeError(w, http.StatusNotFound, notFoundMsg)
	case errors.As(err, &uerr):
		h.logger.Warn().
			Err(err).
			Str("request_id", logging.RequestID(r.Context())).
			Int("upstream_status", uerr.Status).
			Msg("upstream request failed")
		h.writeError(w, http.StatusBadGateway, uerr.Error())
	default:
		h.logger.Error().Err(err).Str("request_id", logging.RequestID(r.Context())).Msg("upstream request failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// Helper functions

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debug().Err(err).Int("status", status).Msg("encoding response failed")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, models.ErrorResponse{
		Error:   http.StatusText(status),
		Code:    status,
		Message: msg,
	})
}

// responseWriter wraps http.ResponseWriter to capture status and bytes written.
type responseWriter struct {
	http.ResponseWriter
	status  int
	written int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}
