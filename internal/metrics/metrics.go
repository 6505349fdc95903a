// Package metrics provides Prometheus metrics for devroom.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "devroom"
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks concurrent HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
)

// Realtime metrics
var (
	// WSConnectionsActive tracks open websocket connections.
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "connections_active",
			Help:      "Number of open websocket connections",
		},
	)

	// WSRejectedTotal counts connection attempts refused by the gate.
	WSRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "rejected_total",
			Help:      "Websocket connection attempts rejected before upgrade",
		},
		[]string{"reason"},
	)

	// WSSlowConsumersTotal counts connections dropped because their send queue was full.
	WSSlowConsumersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "slow_consumers_total",
			Help:      "Connections closed because they could not keep up",
		},
	)

	// RoomsActive tracks rooms with at least one member.
	RoomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "room",
			Name:      "active",
			Help:      "Number of rooms with connected members",
		},
	)

	// RoomMembers tracks connections joined to any room.
	RoomMembers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "room",
			Name:      "members",
			Help:      "Number of connections joined to rooms",
		},
	)

	// RoomDeliveryFailures counts events a member failed to accept.
	RoomDeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "room",
			Name:      "delivery_failures_total",
			Help:      "Room events that could not be delivered to a member",
		},
	)
)

// Chat metrics
var (
	// MessagesBroadcast counts chat messages by origin.
	MessagesBroadcast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "messages_total",
			Help:      "Chat messages broadcast to rooms",
		},
		[]string{"origin"}, // human, ai
	)

	// MessagesRateLimited counts inbound messages dropped by the per-connection limiter.
	MessagesRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "rate_limited_total",
			Help:      "Inbound chat messages rejected by rate limiting",
		},
	)

	// PersistFailures counts message log appends that failed after broadcast.
	PersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "persist_failures_total",
			Help:      "Broadcast messages that could not be persisted",
		},
	)
)

// AI metrics
var (
	// AIGenerationsTotal counts generation attempts by outcome.
	AIGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "generations_total",
			Help:      "AI generations by outcome",
		},
		[]string{"outcome"}, // ok, transport_error, parse_failure, schema_violation
	)

	// AIGenerationDuration tracks generator latency.
	AIGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "generation_duration_seconds",
			Help:      "AI generation latency in seconds",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 20, 40, 80},
		},
	)
)

// Auth metrics
var (
	// AuthAttemptsTotal counts login attempts.
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Total authentication attempts",
		},
		[]string{"result"}, // success, failure, locked
	)

	// AuthTokensRevoked counts logouts.
	AuthTokensRevoked = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "tokens_revoked_total",
			Help:      "Session tokens revoked by logout",
		},
	)
)

// Info metric
var (
	// BuildInfo exposes build information.
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "commit", "build_time"},
	)
)

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, commit, buildTime string) {
	BuildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}
