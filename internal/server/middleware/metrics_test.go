package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/domainsearch/internal/observability"
)

func setupTelemetry(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()

	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)

	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = original })
	return collector
}

func TestRequestMetricsEmitsRequestSeries(t *testing.T) {
	collector := setupTelemetry(t)

	handler := RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"domain":"tapr.io","available":true}`))
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/check?domain=tapr.io", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	for _, name := range []string{
		"http_requests_total",
		"http_request_duration_ms",
		"http_request_size_bytes",
		"http_response_size_bytes",
	} {
		assert.Greater(t, collector.CountMetricsByName(name), 0, name)
	}
	assert.Zero(t, collector.CountMetricsByName("http_errors_total"))
}

func TestRequestMetricsCountsErrors(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusGatewayTimeout} {
		collector := setupTelemetry(t)
		handler := RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/search?q=", nil))
		assert.Greater(t, collector.CountMetricsByName("http_errors_total"), 0, "status %d", status)
	}
}

func TestRequestMetricsWithoutTelemetry(t *testing.T) {
	original := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() { observability.TelemetrySystem = original })

	handler := RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cron/update-prices", strings.NewReader("{}")))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestRequestMetricsKeepsRequestID(t *testing.T) {
	collector := setupTelemetry(t)

	handler := RequestID(RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "search-7", GetRequestID(r.Context()))
	})))
	req := httptest.NewRequest(http.MethodGet, "/search?q=coffee", nil)
	req.Header.Set(RequestIDHeader, "search-7")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "search-7", rec.Header().Get(RequestIDHeader))
	assert.Greater(t, collector.CountMetricsByName("http_requests_total"), 0)
}

func TestRequestMetricsFlushesSearchStream(t *testing.T) {
	setupTelemetry(t)

	handler := RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}\n"))
		require.NoError(t, http.NewResponseController(w).Flush())
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search/stream?q=coffee", nil))

	assert.True(t, rec.Flushed)
	assert.Equal(t, "{}\n", rec.Body.String())
}

func TestEndpointPattern(t *testing.T) {
	tests := map[string]string{
		"/health":             "/health/*",
		"/health/ready":       "/health/*",
		"/version":            "/version",
		"/metrics":            "/metrics",
		"/":                   "/",
		"/check":              "/check",
		"/domainInfo":         "/domainInfo",
		"/search/stream":      "/search/stream",
		"/cron/update-prices": "/cron/update-prices",
		"/api/check":          "/api/*",
		"/users/123":          "/unknown",
	}
	for path, want := range tests {
		assert.Equal(t, want, EndpointPattern(path), path)
	}
}

func TestRouteLabelPrefersChiPattern(t *testing.T) {
	var label string
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/domainInfo", func(w http.ResponseWriter, req *http.Request) {
			label = routeLabel(req)
		})
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/domainInfo?domain=google.com", nil))
	assert.Equal(t, "/api/domainInfo", label)

	assert.Equal(t, "/unknown", routeLabel(httptest.NewRequest(http.MethodGet, "/nope", nil)))
}
