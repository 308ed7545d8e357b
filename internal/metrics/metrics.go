package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	Registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "competition_registrations_total",
			Help: "Competition registration attempts by outcome.",
		},
		[]string{"result"}, // ok|deadline|full|duplicate|error
	)

	ChatbotReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_replies_total",
			Help: "Chatbot replies by source.",
		},
		[]string{"source"},
	)

	SocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_connections",
			Help: "Open realtime gateway connections on this instance.",
		},
	)

	SocketEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_total",
			Help: "Client events handled by the realtime gateway.",
		},
		[]string{"event"},
	)

	TasksProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_tasks_total",
			Help: "Background tasks processed by type and outcome.",
		},
		[]string{"type", "result"},
	)

	once sync.Once
)

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPLatency,
			Registrations,
			ChatbotReplies,
			SocketConnections,
			SocketEvents,
			TasksProcessed,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
