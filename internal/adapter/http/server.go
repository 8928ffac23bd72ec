package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the session API together with health, readiness, and
// metrics endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	session    Session
	reloader   Reloader
	status     LoadStatus
}

// Option configures optional routes.
type Option func(*Server)

// WithReloader enables POST /api/reload.
func WithReloader(r Reloader) Option {
	return func(s *Server) { s.reloader = r }
}

// WithLoadStatus adds load history and the last load error to /api/state.
func WithLoadStatus(st LoadStatus) Option {
	return func(s *Server) { s.status = st }
}

// NewServer creates an HTTP server with the /api routes plus /healthz,
// /readyz, and /metrics.
func NewServer(addr string, sess Session, ready sharedobs.ReadinessChecker, logger *slog.Logger, opts ...Option) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:  logger,
		session: sess,
	}
	for _, opt := range opts {
		opt(s)
	}

	r.Use(middleware.RequestID)
	r.Use(s.accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/factors", s.handleFactors)
		r.Get("/map", s.handleMap)
		r.Get("/table", s.handleTable)
		r.Post("/decade", s.handleDecade)
		r.Post("/filter/open", s.handleFilterOpen)
		r.Post("/filter/close", s.handleFilterClose)
		r.Post("/filter/toggle", s.handleFilterToggle)
		r.Put("/filter/draft/{factor}", s.handleFilterDraft)
		r.Post("/sort/{key}", s.handleSort)
		if s.reloader != nil {
			r.Post("/reload", s.handleReload)
		}
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Debug("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // header already committed
}

type errorResponse struct {
	Error string `json:"error"`
	State any    `json:"state,omitempty"`
}
