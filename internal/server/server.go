package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"IPOWatcher/internal/config"
	"IPOWatcher/internal/ports"
	"IPOWatcher/internal/usecase"
)

var httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ipowatcher_http_requests_total",
	Help: "HTTP requests served, by method and status code.",
}, []string{"method", "code"})

// Deps collects everything the HTTP surface needs.
type Deps struct {
	Query     *usecase.Query
	Refresher *usecase.Refresher
	Responses ports.ResponseCache
	TTLs      config.CacheConfig
	KeyPrefix string
	Logger    *slog.Logger
}

// Server exposes the read API, the administrative clear endpoint and the
// operational endpoints. Successful GET responses are cached as rendered
// bytes in the response cache and served with ETag validation.
type Server struct {
	query     *usecase.Query
	refresher *usecase.Refresher
	responses ports.ResponseCache
	ttls      config.CacheConfig
	prefix    string
	logger    *slog.Logger
}

// New wires the HTTP surface.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	prefix := deps.KeyPrefix
	if prefix == "" {
		prefix = "ipowatcher"
	}
	return &Server{
		query:     deps.Query,
		refresher: deps.Refresher,
		responses: deps.Responses,
		ttls:      deps.TTLs,
		prefix:    prefix,
		logger:    logger,
	}
}

// Handler assembles the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/ipo/years", s.handleYears)
	mux.HandleFunc("GET /api/ipo/all", s.handleAll)
	mux.HandleFunc("GET /api/ipo/year/{year}", s.handleByYear)
	mux.HandleFunc("GET /api/ipo/details/{slug}", s.handleDetail)
	mux.HandleFunc("GET /api/ipo/status/{status}", s.handleByStatus)
	mux.HandleFunc("GET /api/ipo/search", s.handleSearch)
	mux.HandleFunc("GET /api/ipo/overview", s.handleOverview)
	mux.HandleFunc("GET /api/ipo/today", s.handleToday)
	mux.HandleFunc("GET /api/ipo/listing-type/{type}", s.handleByListingType)
	mux.HandleFunc("POST /api/cache/clear", s.handleCacheClear)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.withRequestLog(mux)
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, cfg config.ServerConfig) error {
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	s.logger.Info("http server shutting down")
	return httpServer.Shutdown(shutdownCtx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		httpRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		s.logger.Debug("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(started),
		)
	})
}
