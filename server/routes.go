package server

import (
	"net/http"
)

func (s *Server) initRoutes() {
	s.router.Use(s.RecoverMiddleware, s.LoggingMiddleware, s.SecurityHeadersMiddleware)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not_found", "no such route")
	})

	// Shim authorization
	s.RegisterRouteFunc(http.MethodGet, RouteAuthorize, s.AuthorizeHandler())
	s.RegisterRouteFunc(http.MethodGet, RouteCallback, s.CallbackHandler())
	s.RegisterRouteFunc(http.MethodPost, RouteCallback, s.CallbackHandler()) // Some providers post the callback

	// Operational
	s.RegisterRouteFunc(http.MethodGet, RouteShims, s.ShimsHandler())
	s.RegisterRouteFunc(http.MethodGet, RouteHealth, s.HealthHandler())
	if s.metrics != nil {
		s.RegisterRouteHandler(http.MethodGet, RouteMetrics, s.metrics.Handler())
	}
}
