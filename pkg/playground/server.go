// Package playground serves an HTTP inspection API over a route table.
// It lists the generated routes and resolves URLs against them, so a
// route tree can be checked without running the application behind it.
package playground

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/watanabe-1/rpc4next-sub001/pkg/matcher"
	"github.com/watanabe-1/rpc4next-sub001/pkg/rpc4next"
)

const defaultTracerName = "rpc4next/playground"

// Match outcomes recorded in the result label.
const (
	resultMatched   = "matched"
	resultUnmatched = "unmatched"
	resultError     = "error"
)

// Server is the playground HTTP server.
type Server struct {
	table    *rpc4next.Table
	router   chi.Router
	logger   *slog.Logger
	tracer   trace.Tracer
	registry *prometheus.Registry
	metrics  *metrics
	server   *http.Server
}

type metrics struct {
	matchesTotal  *prometheus.CounterVec
	matchDuration prometheus.Histogram
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry sets the Prometheus registry the server's metrics are
// registered in and served from.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(s *Server) {
		if registry != nil {
			s.registry = registry
		}
	}
}

// WithTracer sets the tracer used for match spans. The default is the
// global provider's tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Server) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// NewServer creates a playground server for table.
func NewServer(table *rpc4next.Table, opts ...Option) *Server {
	s := &Server{
		table:    table,
		logger:   slog.New(slog.DiscardHandler),
		tracer:   otel.Tracer(defaultTracerName),
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	factory := promauto.With(s.registry)
	s.metrics = &metrics{
		matchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rpc4next",
			Name:      "match_total",
			Help:      "Total number of URLs resolved by result",
		}, []string{"result"}),
		matchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rpc4next",
			Name:      "match_duration_seconds",
			Help:      "URL resolution duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/routes", s.handleRoutes)
	r.Get("/match", s.handleMatch)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	s.router = r

	return s
}

// Router returns the underlying chi router.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("playground listening", "addr", ln.Addr().String(), "routes", s.table.Len())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown gracefully: %w", err)
	}
	return nil
}

type routesResponse struct {
	Routes []rpc4next.Route `json:"routes"`
	Total  int              `json:"total"`
}

type errorResponse struct {
	Error string `json:"error"`
	URL   string `json:"url,omitempty"`
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	routes := s.table.Routes()
	writeJSON(w, http.StatusOK, routesResponse{Routes: routes, Total: len(routes)})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "url query parameter is required"})
		return
	}

	match, status := s.resolve(r.Context(), rawURL)
	switch status {
	case resultMatched:
		writeJSON(w, http.StatusOK, match)
	case resultUnmatched:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no route matches", URL: rawURL})
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: match.err.Error(), URL: rawURL})
	}
}

type matchResponse struct {
	*rpc4next.Match
	err error
}

// resolve runs one traced, measured resolution.
func (s *Server) resolve(ctx context.Context, rawURL string) (matchResponse, string) {
	_, span := s.tracer.Start(ctx, "rpc4next.match",
		trace.WithAttributes(attribute.String("rpc4next.url", rawURL)))
	defer span.End()

	start := time.Now()
	match, ok, err := s.table.Resolve(rawURL)
	s.metrics.matchDuration.Observe(time.Since(start).Seconds())

	result := resultMatched
	switch {
	case err != nil:
		result = resultError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var decodeErr *matcher.DecodeError
		if errors.As(err, &decodeErr) {
			span.SetAttributes(attribute.String("rpc4next.decode_part", decodeErr.Part))
		}
	case !ok:
		result = resultUnmatched
	default:
		span.SetAttributes(attribute.String("rpc4next.route", match.Key))
	}
	span.SetAttributes(attribute.String("rpc4next.result", result))
	s.metrics.matchesTotal.WithLabelValues(result).Inc()

	return matchResponse{Match: match, err: err}, result
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
