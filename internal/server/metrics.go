package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/personalens/personalens/internal/observability"
)

var metricsProxyClient = &http.Client{
	Timeout: 5 * time.Second,
}

// metricsHandler proxies Prometheus output from the internal exporter so
// callers can scrape /metrics on the main HTTP port.
func metricsHandler(w http.ResponseWriter, r *http.Request) {
	if observability.PrometheusExporter == nil {
		envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "metrics exporter not initialized")
		respondEnvelope(w, r, envelope, http.StatusServiceUnavailable)
		return
	}

	metricsPort := observability.GetMetricsPort()
	if metricsPort == 0 {
		metricsPort = 9090
	}
	metricsURL := fmt.Sprintf("http://127.0.0.1:%d/metrics", metricsPort)

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, metricsURL, nil)
	if err != nil {
		envelope := errors.NewErrorEnvelope("INTERNAL_ERROR", "unable to construct metrics request")
		respondEnvelope(w, r, envelope, http.StatusInternalServerError)
		return
	}
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := metricsProxyClient.Do(req)
	if err != nil {
		envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "metrics exporter unavailable")
		respondEnvelope(w, r, envelope, http.StatusServiceUnavailable)
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	for key, values := range resp.Header {
		if isHopByHopHeader(key) {
			continue
		}
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	if resp.Header.Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to write metrics response", zap.Error(err))
	}
}

func isHopByHopHeader(key string) bool {
	switch {
	case strings.EqualFold(key, "Connection"),
		strings.EqualFold(key, "Keep-Alive"),
		strings.EqualFold(key, "Proxy-Authenticate"),
		strings.EqualFold(key, "Proxy-Authorization"),
		strings.EqualFold(key, "TE"),
		strings.EqualFold(key, "Trailer"),
		strings.EqualFold(key, "Transfer-Encoding"),
		strings.EqualFold(key, "Upgrade"):
		return true
	}
	return false
}
