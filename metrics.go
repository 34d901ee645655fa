package apiclient

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the request lifecycle and
// the in-flight coalescing registry. It is safe for concurrent use; a nil
// collector records nothing.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	coalescedTotal *prometheus.CounterVec
	registrySize   prometheus.Gauge

	errorsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using supplied registerer.
func NewMetricsCollectorWithRegistry(registerer prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(registerer)
	mc := &MetricsCollector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apiclient_requests_total",
				Help: "Total number of API calls completed",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "apiclient_request_duration_seconds",
				Help:    "Duration of API calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "apiclient_requests_in_flight",
				Help: "Number of network calls currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		coalescedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apiclient_coalesced_total",
				Help: "Total number of GET calls served by another caller's in-flight request",
			},
			[]string{"endpoint"},
		),
		registrySize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "apiclient_inflight_registry_size",
				Help: "Number of distinct GET keys currently in flight",
			},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apiclient_errors_total",
				Help: "Total number of failed API calls by error code",
			},
			[]string{"code", "method", "endpoint"},
		),
	}
	if reg, ok := registerer.(*prometheus.Registry); ok {
		mc.registry = reg
	}

	return mc
}

// RecordRequest records request count and duration.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}

	statusCodeStr := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, statusCodeStr, endpoint).Inc()
	mc.requestDuration.WithLabelValues(method, statusCodeStr, endpoint).Observe(duration.Seconds())
}

// RecordRequestStart increments in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd decrements in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordCoalesced counts a GET that joined an in-flight call.
func (mc *MetricsCollector) RecordCoalesced(endpoint string) {
	if mc == nil {
		return
	}

	mc.coalescedTotal.WithLabelValues(endpoint).Inc()
}

// RecordRegistrySize sets the in-flight registry gauge.
func (mc *MetricsCollector) RecordRegistrySize(size int) {
	if mc == nil {
		return
	}

	mc.registrySize.Set(float64(size))
}

// RecordError increments error counter by code. An empty code is recorded
// as "HTTP_<status>".
func (mc *MetricsCollector) RecordError(apiErr *APIError, method, endpoint string) {
	if mc == nil || apiErr == nil {
		return
	}

	code := apiErr.Code
	if code == "" {
		code = "HTTP_" + strconv.Itoa(apiErr.Status)
	}
	mc.errorsTotal.WithLabelValues(code, method, endpoint).Inc()
}

// GetRegistry exposes the underlying prometheus registry, if the collector
// was built on one.
func (mc *MetricsCollector) GetRegistry() *prometheus.Registry {
	return mc.registry
}
