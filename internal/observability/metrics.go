package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "courier_client", Name: "api_requests_total", Help: "Total API requests issued"},
		[]string{"endpoint", "outcome"},
	)

	PollTicksTotal    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "courier_client", Name: "poll_ticks_total", Help: "Total acceptance poll ticks"})
	PollFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "courier_client", Name: "poll_failures_total", Help: "Poll ticks skipped due to errors"})
	AcceptancesSeen   = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "courier_client", Name: "acceptances_seen", Help: "Acceptances in the latest poll response"})
	AssignmentsTotal  = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "courier_client", Name: "assignments_total", Help: "Assignment confirmations by result"},
		[]string{"result"},
	)

	RealtimeEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "courier_client", Name: "realtime_events_total", Help: "Realtime events dispatched to subscribers"},
		[]string{"event"},
	)
	RealtimeReconnects = promauto.NewCounter(prometheus.CounterOpts{Namespace: "courier_client", Name: "realtime_reconnects_total", Help: "Websocket reconnect attempts"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "courier_sim", Name: "http_requests_total", Help: "Total HTTP requests handled by the simulator"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "courier_sim",
			Name:      "http_request_duration_seconds",
			Help:      "Simulator HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
