// Package metrics emits external-API counters through the shared telemetry
// system. All helpers are no-ops until observability.InitMetrics runs.
package metrics

import (
	"time"

	"github.com/personalens/personalens/internal/observability"
)

// Metric names following Prometheus conventions.
const (
	RequestsTotal      = "external_requests_total"
	RetriesTotal       = "external_retries_total"
	RateLimitWaitTotal = "rate_limit_wait_seconds_total"
	BackoffWaitTotal   = "backoff_wait_seconds_total"
	ErrorsTotal        = "external_errors_total"
	PanicsTotal        = "http_panics_total"
)

// RecordRequest records an attempt against an external service.
func RecordRequest(service string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RequestsTotal,
			1,
			map[string]string{
				"service": service,
				"status":  status,
			},
		)
	}
}

// RecordRetry records a retry attempt for a service.
func RecordRetry(service string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RetriesTotal,
			1,
			map[string]string{"service": service},
		)
	}
}

// RecordRateLimitWait records time spent waiting for window capacity.
func RecordRateLimitWait(service string, wait time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RateLimitWaitTotal,
			wait.Seconds(),
			map[string]string{"service": service},
		)
	}
}

// RecordBackoffWait records time spent in adaptive backoff before a retry.
func RecordBackoffWait(service string, wait time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			BackoffWaitTotal,
			wait.Seconds(),
			map[string]string{"service": service},
		)
	}
}

// RecordPanic records a recovered panic in the HTTP server.
func RecordPanic() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(PanicsTotal, 1, nil)
	}
}

// RecordError records a classified failure from an external service.
func RecordError(service string, kind string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ErrorsTotal,
			1,
			map[string]string{
				"service": service,
				"kind":    kind,
			},
		)
	}
}
