package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "castrelay_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "castrelay_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Socket metrics
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "castrelay_connections_active",
			Help: "Currently connected authenticated sessions",
		},
	)

	HandshakeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "castrelay_handshake_failures_total",
			Help: "Connections refused during the auth handshake",
		},
		[]string{"reason"}, // "bad_key", "timeout", "malformed", "closed"
	)

	// Room metrics
	RoomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "castrelay_rooms_active",
			Help: "Rooms currently held by the registry",
		},
	)

	RoomsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "castrelay_rooms_created_total",
			Help: "Total rooms created",
		},
		[]string{"via"}, // "socket" or "http"
	)

	// Dispatch metrics
	EmitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "castrelay_emits_total",
			Help: "Total room:emit requests",
		},
		[]string{"outcome"}, // "ok", "not_member", "not_found"
	)

	DeliveriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "castrelay_deliveries_total",
			Help: "Total per-recipient deliveries attempted",
		},
	)

	DeliveriesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "castrelay_deliveries_dropped_total",
			Help: "Deliveries dropped because the recipient buffer was full or closed",
		},
	)

	SessionsSaturated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "castrelay_sessions_saturated_total",
			Help: "Sessions closed because the outbound queue could not accept an ack",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "castrelay_rate_limit_hits_total",
			Help: "Total admin API rate limit hits",
		},
	)
)
