// Package metrics exposes Prometheus metrics for handshakes, token calls and
// HTTP requests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ehealthMP/Omh-Schimmer/shim"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shimmer"

// Token call results.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics holds the collectors. It implements shim.Observer.
type Metrics struct {
	gatherer prometheus.Gatherer

	handshakeTransitions *prometheus.CounterVec
	tokenRequests        *prometheus.CounterVec
	tokenDuration        *prometheus.HistogramVec
	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
}

var _ shim.Observer = (*Metrics)(nil)

// Register creates the collectors and registers them with reg. A nil reg
// uses a fresh registry. Collectors already registered are reused.
func Register(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		gatherer: reg,
		handshakeTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshake_transitions_total",
			Help:      "Handshake state transitions by shim and state entered.",
		}, []string{"shim", "state"}),
		tokenRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_requests_total",
			Help:      "Calls to provider token endpoints by shim, step and result.",
		}, []string{"shim", "step", "result"}),
		tokenDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "token_request_duration_seconds",
			Help:      "Latency of provider token endpoint calls.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"shim", "step"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	var err error
	if m.handshakeTransitions, err = registerVec(reg, m.handshakeTransitions); err != nil {
		return nil, err
	}
	if m.tokenRequests, err = registerVec(reg, m.tokenRequests); err != nil {
		return nil, err
	}
	if m.tokenDuration, err = registerVec(reg, m.tokenDuration); err != nil {
		return nil, err
	}
	if m.httpRequests, err = registerVec(reg, m.httpRequests); err != nil {
		return nil, err
	}
	if m.httpDuration, err = registerVec(reg, m.httpDuration); err != nil {
		return nil, err
	}
	return m, nil
}

// registerVec registers c, returning the existing collector on duplicates.
func registerVec[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// HandshakeTransition counts a handshake entering state.
func (m *Metrics) HandshakeTransition(shimKey string, state shim.HandshakeState) {
	m.handshakeTransitions.WithLabelValues(shimKey, state.String()).Inc()
}

// TokenCall records one provider token call.
func (m *Metrics) TokenCall(shimKey, step string, d time.Duration, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	m.tokenRequests.WithLabelValues(shimKey, step, result).Inc()
	m.tokenDuration.WithLabelValues(shimKey, step).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency labelled by the chi route
// pattern, so state keys and shim keys do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}
