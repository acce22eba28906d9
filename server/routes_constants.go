package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Shim authorization routes
	RouteAuthorize = "/authorize/{shimKey}"
	RouteCallback  = "/authorize/{shimKey}/callback"

	// Operational routes
	RouteHealth  = "/health"
	RouteMetrics = "/metrics"
	RouteShims   = "/shims"
)

// Route parameters
const (
	paramShimKey  = "shimKey"
	paramUsername = "username"
)
