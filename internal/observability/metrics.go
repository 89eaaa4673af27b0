package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	chatRequestsTotal  *prometheus.CounterVec
	chatLatencySeconds *prometheus.HistogramVec
	messagesSentTotal  *prometheus.CounterVec
	streamSubscribers  prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors for the chat API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		chatRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_requests_total",
			Help: "Total number of chat API requests served.",
		}, []string{"method", "route", "status"})

		chatLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chat_latency_seconds",
			Help:    "Latency distribution for chat API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		messagesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total number of chat messages persisted.",
		}, []string{"channel_type"})

		streamSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_stream_subscribers",
			Help: "Number of active chat stream subscriptions.",
		})

		prometheus.MustRegister(chatRequestsTotal, chatLatencySeconds, messagesSentTotal, streamSubscribers)
	})
}

// ChatRequests exposes the counter for chat requests.
func ChatRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return chatRequestsTotal
}

// ChatLatency exposes the latency histogram for chat requests.
func ChatLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return chatLatencySeconds
}

// MessagesSent exposes the counter for persisted chat messages.
func MessagesSent() *prometheus.CounterVec {
	RegisterMetrics()
	return messagesSentTotal
}

// StreamSubscribers exposes the gauge tracking active stream subscriptions.
func StreamSubscribers() prometheus.Gauge {
	RegisterMetrics()
	return streamSubscribers
}
