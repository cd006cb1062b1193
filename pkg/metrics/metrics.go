package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace prefixes every series exported by the service.
const namespace = "dispatch"

func counter(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

func gauge(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

func histogram(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
		Buckets:   prometheus.DefBuckets,
	}, labels)
}

// Transport.
var (
	HttpRequestsTotal    = counter("http_requests_total", "HTTP requests by route and status", "service", "method", "path", "status")
	HttpRequestDuration  = histogram("http_request_duration_seconds", "HTTP request latency", "service", "method", "path", "status")
	HttpRequestsInFlight = gauge("http_requests_in_flight", "HTTP requests being served", "service")

	WebSocketConnectionsGauge = gauge("websocket_connections", "Open manager feed connections", "service")

	RabbitMQMessagesPublished = counter("rabbitmq_messages_published_total", "Events published to the broker", "service", "exchange", "status")
	RabbitMQMessagesConsumed  = counter("rabbitmq_messages_consumed_total", "Events received from the broker", "exchange", "status")
)

// Storage.
var (
	DatabaseQueriesTotal  = counter("database_queries_total", "Repository calls by backend and outcome", "backend", "operation", "status")
	DatabaseQueryDuration = histogram("database_query_duration_seconds", "Repository call latency", "backend", "operation")

	OverviewCacheTotal = counter("overview_cache_requests_total", "Overview cache lookups by result", "result")
)

// Dispatch.
var (
	OrderTransitionsTotal    = counter("order_transitions_total", "Committed order transitions by target status", "status")
	AssignmentConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_assignment_conflicts_total",
		Help:      "Assignments that lost a race or found the driver unavailable",
	})
	DriverStatusChangesTotal = counter("driver_status_changes_total", "Committed driver status changes by target status", "status")
	DriversByStatus          = gauge("drivers_by_status", "Drivers per status as of the last overview", "status")
	IssuesReportedTotal      = counter("issues_reported_total", "Driver issues reported by type", "type")
	SettingsVersion          = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "manager_settings_version",
		Help:      "Version of the active manager settings",
	})
)

func RecordHTTPMetrics(service, method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	HttpRequestsTotal.WithLabelValues(service, method, path, status).Inc()
	HttpRequestDuration.WithLabelValues(service, method, path, status).Observe(duration.Seconds())
}

// RecordDatabaseQuery counts one repository call; backend is "postgres" or "sqlite".
func RecordDatabaseQuery(backend, operation string, err error, duration time.Duration) {
	DatabaseQueriesTotal.WithLabelValues(backend, operation, result(err)).Inc()
	DatabaseQueryDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

func RecordRabbitMQPublish(service, exchange string, err error) {
	RabbitMQMessagesPublished.WithLabelValues(service, exchange, result(err)).Inc()
}

func RecordRabbitMQConsume(exchange string, err error) {
	RabbitMQMessagesConsumed.WithLabelValues(exchange, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
