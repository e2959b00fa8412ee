package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renju_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "renju_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Room metrics
	ActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "renju_active_rooms",
			Help: "Rooms held in memory",
		},
	)

	RoomsEvicted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renju_rooms_evicted_total",
			Help: "Rooms evicted by the janitor",
		},
		[]string{"status"},
	)

	MovesAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renju_moves_accepted_total",
			Help: "Accepted moves",
		},
		[]string{"color"},
	)

	MovesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renju_moves_rejected_total",
			Help: "Rejected moves",
		},
		[]string{"code"},
	)

	MatchesArchived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renju_matches_archived_total",
			Help: "Finished matches handed to storage",
		},
		[]string{"result"}, // "B", "W", "draw" or "failed"
	)

	// Connection metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "renju_websocket_connections",
			Help: "Open websocket connections",
		},
	)

	ObserversDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "renju_observers_dropped_total",
			Help: "Observers removed after a failed send",
		},
	)
)
