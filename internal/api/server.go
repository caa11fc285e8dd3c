// Package api serves connection profiles and cluster telemetry over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/clusterscope/internal/coordinator"
	"github.com/dreamware/clusterscope/internal/info"
	"github.com/dreamware/clusterscope/internal/profile"
	"github.com/dreamware/clusterscope/internal/telemetry"
)

// ProfileStore persists connection profiles. *profile.SQLiteStore
// implements it.
type ProfileStore interface {
	Create(ctx context.Context, p profile.Profile) (profile.Profile, error)
	Get(ctx context.Context, id string) (profile.Profile, error)
	List(ctx context.Context) ([]profile.Profile, error)
	Update(ctx context.Context, id string, mutate func(*profile.Profile)) (profile.Profile, error)
	Delete(ctx context.Context, id string) error
}

// Registry hands out the broadcaster of a connection.
// *coordinator.ClientRegistry implements it.
type Registry interface {
	Get(ctx context.Context, connID string) (*coordinator.Broadcaster, error)
	Invalidate(connID string)
}

// Options configures a Server.
type Options struct {
	// RoundTimeout bounds every telemetry request. Zero means no bound.
	RoundTimeout time.Duration
	// Metrics is mounted at MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string
}

// Server is the clusterscope HTTP API. It owns no state of its own: profiles
// live in the ProfileStore and live broadcasters in the Registry.
type Server struct {
	profiles ProfileStore
	registry Registry
	logger   *zap.Logger
	opts     Options
}

// NewServer wires the API over profiles and registry. A nil logger disables
// request logging.
func NewServer(profiles ProfileStore, registry Registry, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		profiles: profiles,
		registry: registry,
		logger:   logger.Named("api"),
		opts:     opts,
	}
}

// Handler returns the routed, request-logging handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("GET /api/connections", s.handleListConnections)
	mux.HandleFunc("POST /api/connections", s.handleCreateConnection)
	mux.HandleFunc("GET /api/connections/{id}", s.handleGetConnection)
	mux.HandleFunc("PUT /api/connections/{id}", s.handleUpdateConnection)
	mux.HandleFunc("DELETE /api/connections/{id}", s.handleDeleteConnection)
	mux.HandleFunc("GET /api/connections/{id}/health", s.handleConnectionHealth)

	mux.HandleFunc("GET /api/clusters/{id}", s.handleCluster)
	mux.HandleFunc("GET /api/metrics/{id}", s.handleMetrics)
	mux.HandleFunc("GET /api/indexes/{id}", s.handleIndexes)
	mux.HandleFunc("GET /api/udfs/{id}", s.handleUDFs)
	mux.HandleFunc("GET /api/nodes/{id}/health", s.handleNodeHealth)
	mux.HandleFunc("POST /api/terminal/{id}", s.handleTerminal)

	if s.opts.Metrics != nil && s.opts.MetricsPath != "" {
		mux.Handle("GET "+s.opts.MetricsPath, s.opts.Metrics)
	}
	return s.logRequests(mux)
}

// connection resolves the {id} of r to its profile's broadcaster.
func (s *Server) connection(r *http.Request) (*coordinator.Broadcaster, error) {
	id := r.PathValue("id")
	if _, err := s.profiles.Get(r.Context(), id); err != nil {
		return nil, err
	}
	return s.registry.Get(r.Context(), id)
}

// serveTelemetry runs fn against the connection of r, bounded by the round
// timeout, and writes its result as JSON.
func (s *Server) serveTelemetry(w http.ResponseWriter, r *http.Request, fn func(context.Context, *telemetry.Assembler) (any, error)) {
	b, err := s.connection(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := r.Context()
	if s.opts.RoundTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RoundTimeout)
		defer cancel()
	}

	out, err := fn(ctx, telemetry.NewAssembler(b, s.logger))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// errBadRequest marks client input errors that are not profile validation
// failures, such as malformed JSON.
var errBadRequest = errors.New("bad request")

func statusFor(err error) int {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, profile.ErrInvalid), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, coordinator.ErrNoNodes),
		errors.Is(err, info.ErrTimeout),
		errors.Is(err, info.ErrConnRefused),
		errors.Is(err, info.ErrProtocol):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", lrw.statusCode),
			zap.Duration("elapsed", time.Since(start)))
	})
}
