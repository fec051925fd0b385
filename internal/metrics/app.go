package metrics

import (
	"strconv"
	"time"

	"github.com/namelens/domainsearch/internal/observability"
)

// Service-level metric names.
const (
	OperationsTotal       = "app_operations_total"
	OperationsErrorsTotal = "app_operations_errors_total"
	HealthCheckTotal      = "app_health_check_total"
	HealthCheckDuration   = "app_health_check_duration_ms"
	ServerStartTime       = "app_server_start_time_seconds"
	ServerUptime          = "app_server_uptime_seconds"

	ErrorsTotalName      = "errors_total"
	PanicsTotalName      = "panics_total"
	ErrorsByEndpointName = "errors_by_endpoint"
)

// RecordOperation counts a CLI or API operation (search, check, prices.update).
func RecordOperation(operation string, success bool) {
	counter(OperationsTotal, map[string]string{
		"operation": operation,
		"status":    statusLabel(success),
	})
}

// RecordOperationError counts a failed operation by error class.
func RecordOperationError(operation string, errorType string) {
	counter(OperationsErrorsTotal, map[string]string{
		"operation":  operation,
		"error_type": errorType,
	})
}

// RecordHealthCheck counts a health probe and its latency.
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	counter(HealthCheckTotal, map[string]string{"check": checkName, "status": status})
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(HealthCheckDuration, duration, map[string]string{"check": checkName})
	}
}

// SetServerStartTime records the server start as a Unix timestamp.
func SetServerStartTime(timestamp int64) {
	gauge(ServerStartTime, float64(timestamp))
}

// SetServerUptime records seconds since start.
func SetServerUptime(seconds int64) {
	gauge(ServerUptime, float64(seconds))
}

// RecordError counts an error response by envelope code and HTTP status.
func RecordError(errorCode string, httpStatus int) {
	counter(ErrorsTotalName, map[string]string{
		"error_code":  errorCode,
		"http_status": strconv.Itoa(httpStatus),
	})
}

// RecordPanic counts a recovered handler panic.
func RecordPanic() {
	counter(PanicsTotalName, nil)
}

// RecordErrorByEndpoint counts an error response by route pattern.
func RecordErrorByEndpoint(endpoint string, errorCode string) {
	counter(ErrorsByEndpointName, map[string]string{
		"endpoint":   endpoint,
		"error_code": errorCode,
	})
}

func gauge(name string, value float64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(name, value, nil)
	}
}
