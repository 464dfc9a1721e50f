// Package httpapi serves the index over JSON HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bastiangx/heatserve/internal/logger"
	"github.com/bastiangx/heatserve/pkg/config"
	"github.com/bastiangx/heatserve/pkg/similar"
	"github.com/bastiangx/heatserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 5 * time.Second

// Server is the HTTP API over an index.
type Server struct {
	index   suggest.ICompleter
	limits  atomic.Pointer[config.ServerConfig]
	similar similar.Options
	limiter *rate.Limiter
	metrics *Metrics
	logger  *log.Logger
	handler http.Handler
}

type Option func(*Server)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithSimilarity overrides the /api/interval settings.
func WithSimilarity(opts similar.Options) Option {
	return func(s *Server) { s.similar = opts }
}

// NewServer builds the router. limits.Addr is only read by ListenAndServe.
func NewServer(index suggest.ICompleter, limits config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		index:   index,
		similar: similar.DefaultOptions(),
		limiter: rate.NewLimiter(limitFor(limits.RateLimit), max(limits.RateBurst, 1)),
		metrics: newMetrics(),
		logger:  logger.New("http"),
	}
	s.limits.Store(&limits)
	for _, opt := range opts {
		opt(s)
	}
	s.metrics.RegisterStats("index", index.Stats)

	r := mux.NewRouter()
	r.Use(s.instrument)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/search", s.search).Methods(http.MethodGet)
	api.HandleFunc("/terms", s.addTerm).Methods(http.MethodPost)
	api.HandleFunc("/terms", s.listTerms).Methods(http.MethodGet)
	api.HandleFunc("/lookup", s.lookup).Methods(http.MethodGet)
	api.HandleFunc("/interval", s.interval).Methods(http.MethodGet)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.handler = s.logRequests(cors(s.rateLimit(r)))
	return s
}

func limitFor(perSecond float64) rate.Limit {
	if perSecond <= 0 {
		return rate.Inf
	}
	return rate.Limit(perSecond)
}

// Handler returns the HTTP handler for the server
func (s *Server) Handler() http.Handler { return s.handler }

// Metrics exposes the registry so other components can add gauges.
func (s *Server) Metrics() *Metrics { return s.metrics }

// SetLimits swaps the query limits and rate limit; safe while serving.
func (s *Server) SetLimits(limits config.ServerConfig) {
	s.limits.Store(&limits)
	s.limiter.SetLimit(limitFor(limits.RateLimit))
	s.limiter.SetBurst(max(limits.RateBurst, 1))
}

// ListenAndServe serves on the configured address until ctx is done, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.limits.Load().Addr
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Infof("Listening on %s", ln.Addr())

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
