package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ehealthMP/Omh-Schimmer/internal/config"
	"github.com/ehealthMP/Omh-Schimmer/metrics"
	"github.com/ehealthMP/Omh-Schimmer/shim"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	router   chi.Router
	routes   []string
	config   config.EnvConfig
	registry *shim.Registry
	sink     AuthorizedSink
	metrics  *metrics.Metrics
	checks   map[string]HealthCheck
	logger   zerolog.Logger
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

// WithSink sets where completed authorizations are delivered
func WithSink(sink AuthorizedSink) Option {
	return func(s *Server) {
		s.sink = sink
	}
}

// WithMetrics enables request metrics and the metrics route
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithHealthCheck adds a named dependency check to the health route
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) {
		s.checks[name] = check
	}
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

func New(c config.EnvConfig, registry *shim.Registry, options ...Option) (*Server, error) {
	if c == nil {
		return nil, errors.New("[Server New] config is required")
	}
	if registry == nil {
		return nil, errors.New("[Server New] shim registry is required")
	}

	s := &Server{
		env:      c.GetEnv(),
		router:   chi.NewRouter(),
		config:   c,
		registry: registry,
		checks:   make(map[string]HealthCheck),
		logger:   log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.sink == nil {
		s.sink = LogSink{Logger: s.logger}
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(method, pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, method+" "+pattern)
	s.router.Method(method, pattern, handler)
}

func (s *Server) RegisterRouteHandler(method, pattern string, handler http.Handler) {
	s.routes = append(s.routes, method+" "+pattern)
	s.router.Method(method, pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		s.logRoute(parts[0], parts[1])
	}
}

func (s *Server) logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	s.logger.Info().Msgf("[%s] %s", color+paddedMethod+ResetColor, path)
}
