package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/personalens/personalens/internal/config"
	"github.com/personalens/personalens/internal/core/engine"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	registry := engine.NewRegistry(map[string]engine.ServiceSettings{
		"apify": {
			Limits: engine.Limits{Minute: 60, Hour: 1000, Day: 10000},
			Backoff: engine.BackoffPolicy{
				Base:       time.Second,
				Multiplier: 2,
				Max:        time.Minute,
			},
			MaxRetries: 3,
		},
	})

	return New(config.ServerConfig{Host: "127.0.0.1", Port: 0}, Options{
		Registry: registry,
		Model:    "gemini-2.5-flash",
		Version:  "test",
	})
}

func doRequest(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

func TestUnknownRouteReturnsStructuredNotFound(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/does-not-exist")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "NOT_FOUND", body.Error.Code)
	require.NotEmpty(t, body.Error.RequestID)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/version")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "METHOD_NOT_ALLOWED", body.Error.Code)
}

func TestLimitsEndpointReportsConfiguredServices(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/v1/limits")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Services []engine.Stats `json:"services"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Services, 1)
	require.Equal(t, "apify", body.Services[0].Service)
	require.Len(t, body.Services[0].Windows, 3)
	require.Equal(t, 60, body.Services[0].Windows[0].Limit)
}

func TestServiceLimitsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/v1/limits/apify")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats engine.Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	require.Equal(t, "apify", stats.Service)
}

func TestServiceLimitsUnknownService(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/v1/limits/stripe")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "SUBJECT_NOT_FOUND", body.Error.Code)
}

func TestAnalysisEndpointWithoutStore(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/v1/analyses/jack")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVersionEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/version")
	require.Equal(t, http.StatusOK, rec.Code)

	var body VersionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "test", body.Version)
	require.NotEmpty(t, body.GoVersion)
}

func TestLivenessEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/health/live")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthEndpointWithoutStore(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "healthy", body.Status)
}

func TestRequestIDEchoedToCaller(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestMetricsEndpointWithoutExporter(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
}
