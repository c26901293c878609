// Package metrics provides the Prometheus metrics this module scrapes on
// /metrics: RED metrics for the RPC surface, stream registry occupancy, AI
// subprocess behavior, and circuit breaker state.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clustercore"

var (
	// HTTPRequestTotal counts requests by method, path, status (RED: rate).
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, path, and status.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDurationSeconds is request latency histogram (RED: duration).
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10), // 1ms to ~9.3s
		},
		[]string{"method", "path"},
	)

	// WebSocketConnectionsActive is current number of WebSocket event clients.
	WebSocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections_active",
			Help:      "Number of active WebSocket event connections.",
		},
	)

	// RegistrySessionsActive is current number of live stream sessions by kind
	// (watch/log/shell/portforward).
	RegistrySessionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_sessions_active",
			Help:      "Number of active stream sessions by kind.",
		},
		[]string{"kind"},
	)

	// RegistrySessionsTotal counts sessions opened by kind.
	RegistrySessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_sessions_total",
			Help:      "Total number of stream sessions opened by kind.",
		},
		[]string{"kind"},
	)

	// CircuitBreakerState tracks current circuit breaker state (0=closed, 1=open, 2=half-open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Current circuit breaker state (0=closed, 1=open, 2=half-open).",
		},
		[]string{"cluster_id"},
	)

	// CircuitBreakerTransitionsTotal counts circuit breaker state transitions.
	CircuitBreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Total number of circuit breaker state transitions.",
		},
		[]string{"cluster_id", "from_state", "to_state"},
	)

	// CircuitBreakerFailuresTotal counts circuit breaker failures.
	CircuitBreakerFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_failures_total",
			Help:      "Total number of circuit breaker failures.",
		},
		[]string{"cluster_id"},
	)

	// AIRequestsTotal counts AI coordinator turns by outcome.
	AIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_requests_total",
			Help:      "Total number of AI agent turns by outcome.",
		},
		[]string{"outcome"}, // outcome: success, retried, failed
	)

	// AIRequestDurationSeconds is AI subprocess turn latency.
	AIRequestDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_request_duration_seconds",
			Help:      "AI agent subprocess turn duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	// PermissionApprovalWaitSeconds tracks how long a mutating command waits
	// for interactive approval before being allowed, denied, or timing out.
	PermissionApprovalWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "permission_approval_wait_seconds",
			Help:      "Time spent waiting for permission gate approval, in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	// PermissionDecisionsTotal counts permission gate decisions by severity and verdict.
	PermissionDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "permission_decisions_total",
			Help:      "Total number of permission gate decisions by severity and verdict.",
		},
		[]string{"severity", "verdict"}, // verdict: allowed, blocked, denied, timed_out
	)

	// DBQueryDurationSeconds tracks AI session store query latency by operation type.
	DBQueryDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)
)
