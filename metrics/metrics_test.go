package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ehealthMP/Omh-Schimmer/metrics"
	"github.com/ehealthMP/Omh-Schimmer/shim"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestObserver(t *testing.T) {
	m, err := metrics.Register(prometheus.NewRegistry())
	require.NoError(t, err)

	m.HandshakeTransition("withings", shim.AwaitingUserAuthorization)
	m.HandshakeTransition("withings", shim.AwaitingUserAuthorization)
	m.TokenCall("withings", "request_token", 120*time.Millisecond, nil)
	m.TokenCall("withings", "access_token", time.Second, errors.New("boom"))

	body := scrape(t, m)
	require.Contains(t, body, `shimmer_handshake_transitions_total{shim="withings",state="awaiting_user_authorization"} 2`)
	require.Contains(t, body, `shimmer_token_requests_total{result="success",shim="withings",step="request_token"} 1`)
	require.Contains(t, body, `shimmer_token_requests_total{result="error",shim="withings",step="access_token"} 1`)
	require.Contains(t, body, `shimmer_token_request_duration_seconds_count{shim="withings",step="access_token"} 1`)
}

func TestRegister_Twice(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := metrics.Register(reg)
	require.NoError(t, err)
	second, err := metrics.Register(reg)
	require.NoError(t, err)

	first.HandshakeTransition("fitbit", shim.Failed)
	second.HandshakeTransition("fitbit", shim.Failed)

	require.Contains(t, scrape(t, first), `shimmer_handshake_transitions_total{shim="fitbit",state="failed"} 2`)
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m, err := metrics.Register(nil)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/authorize/{shimKey}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusFound)
	})

	for _, key := range []string{"withings", "fitbit"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/authorize/"+key, nil))
		require.Equal(t, http.StatusFound, rec.Code)
	}

	require.Contains(t, scrape(t, m), `shimmer_http_requests_total{method="GET",route="/authorize/{shimKey}",status="302"} 2`)
}
