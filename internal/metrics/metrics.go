package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "events"

// Lookup results
const (
	LookupFound    = "found"
	LookupNotFound = "not_found"
	LookupInvalid  = "invalid"
	LookupError    = "error"
)

// Message outcomes
const (
	MessageCompleted    = "completed"
	MessageAbandoned    = "abandoned"
	MessageDeadLettered = "dead_lettered"
)

var connectionStates = []string{"empty", "connecting", "ready"}

// Metrics is the Prometheus collector set for the service. Each instance owns
// its own registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	lookups            *prometheus.CounterVec
	cacheLookups       *prometheus.CounterVec
	connectAttempts    *prometheus.CounterVec
	connectDuration    prometheus.Histogram
	connectionState    *prometheus.GaugeVec
	validationFailures *prometheus.CounterVec
	writes             *prometheus.CounterVec
	messages           *prometheus.CounterVec
	health             *prometheus.GaugeVec
}

// NewMetrics creates and registers the service collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Event lookups by slug, by result",
		}, []string{"result"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Read-through cache lookups by result",
		}, []string{"result"}),
		connectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_connect_attempts_total",
			Help:      "Database connection attempts by result",
		}, []string{"result"}),
		connectDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_connect_duration_seconds",
			Help:      "Time spent establishing the database connection",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		connectionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connection_state",
			Help:      "Current database connection state (1 for the active state)",
		}, []string{"state"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Rejected records by failing field",
		}, []string{"field"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "Persisted records by operation",
		}, []string{"operation"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Queue messages by outcome",
		}, []string{"outcome"}),
		health: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "component_healthy",
			Help:      "Health status of a component (0 = unhealthy, 1 = healthy)",
		}, []string{"component"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.lookups, m.cacheLookups,
		m.connectAttempts, m.connectDuration, m.connectionState,
		m.validationFailures, m.writes, m.messages, m.health,
	)

	m.ConnectionState("empty")
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records a served HTTP request
func (m *Metrics) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordLookup records the result of a lookup by slug
func (m *Metrics) RecordLookup(result string) {
	m.lookups.WithLabelValues(result).Inc()
}

// RecordCache records a read-through cache hit or miss
func (m *Metrics) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ConnectAttempt records the outcome of a database connection attempt
func (m *Metrics) ConnectAttempt(success bool, duration time.Duration) {
	result := "failure"
	if success {
		result = "success"
	}
	m.connectAttempts.WithLabelValues(result).Inc()
	m.connectDuration.Observe(duration.Seconds())
}

// ConnectionState marks the given database connection state as current
func (m *Metrics) ConnectionState(state string) {
	for _, s := range connectionStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.connectionState.WithLabelValues(s).Set(v)
	}
}

// RecordValidationFailure records a record rejected on the given field
func (m *Metrics) RecordValidationFailure(field string) {
	m.validationFailures.WithLabelValues(field).Inc()
}

// RecordWrite records a persisted create or update
func (m *Metrics) RecordWrite(operation string) {
	m.writes.WithLabelValues(operation).Inc()
}

// RecordMessage records how a queue message was settled
func (m *Metrics) RecordMessage(outcome string) {
	m.messages.WithLabelValues(outcome).Inc()
}

// SetHealth sets the health status of a component
func (m *Metrics) SetHealth(component string, isHealthy bool) {
	var value float64
	if isHealthy {
		value = 1
	}
	m.health.WithLabelValues(component).Set(value)
}
