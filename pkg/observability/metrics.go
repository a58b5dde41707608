package observability

import (
	"net/http"
	"time"

	"promptstore/pkg/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Store metrics
	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec

	// Versioning metrics
	VersionsCreated  prometheus.Counter
	VersionRetries   prometheus.Counter
	Compensations    *prometheus.CounterVec
	LineagesRepaired *prometheus.CounterVec
	EventsPublished  *prometheus.CounterVec
}

// NewCollector creates a new metrics collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of prompt store operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Prompt store operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		VersionsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prompt_versions_created_total",
				Help:      "Total number of prompt versions created",
			},
		),
		VersionRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prompt_version_retries_total",
				Help:      "Total number of createNewVersion attempts retried after a conflict",
			},
		),
		Compensations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prompt_version_compensations_total",
				Help:      "Demotions rolled back after a failed create, by result",
			},
			[]string{"result"},
		),
		LineagesRepaired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prompt_lineages_repaired_total",
				Help:      "Latest flags changed by reconciliation, by action",
			},
			[]string{"action"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Domain events sent to the event bus, by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.StoreOperations,
		c.StoreDuration,
		c.VersionsCreated,
		c.VersionRetries,
		c.Compensations,
		c.LineagesRepaired,
		c.EventsPublished,
	)
	return c
}

// RecordStoreOperation counts one store call and its latency
func (c *Collector) RecordStoreOperation(operation string, duration time.Duration, err error) {
	c.StoreOperations.WithLabelValues(operation, Outcome(err)).Inc()
	c.StoreDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordHTTPRequest counts one request and its latency
func (c *Collector) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Outcome is a low-cardinality label for an error
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	appErr := errors.GetAppError(err)
	if appErr == nil {
		return "error"
	}
	switch appErr.Type {
	case errors.ErrorTypeValidation:
		return "validation"
	case errors.ErrorTypeNotFound:
		return "not_found"
	case errors.ErrorTypeConflict:
		return "conflict"
	case errors.ErrorTypeRateLimit:
		return "throttled"
	case errors.ErrorTypeUnavailable:
		return "unavailable"
	default:
		return "error"
	}
}
