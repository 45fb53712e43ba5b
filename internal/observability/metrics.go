package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	authAttemptsTotal     *prometheus.CounterVec
	votesCastTotal        *prometheus.CounterVec
	chatMessagesSentTotal *prometheus.CounterVec
	chatStreamsActive     prometheus.Gauge
	searchRequestsTotal   *prometheus.CounterVec
	uploadsTotal          *prometheus.CounterVec
	uploadLatencySeconds  prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forumly_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forumly_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forumly_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		authAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forumly_auth_attempts_total",
			Help: "Login and signup attempts by method and outcome.",
		}, []string{"method", "outcome"})

		votesCastTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forumly_votes_total",
			Help: "Votes cast, changed or removed.",
		}, []string{"action"})

		chatMessagesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forumly_chat_messages_sent_total",
			Help: "Chat messages delivered by message type and origin.",
		}, []string{"type", "origin"})

		chatStreamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forumly_chat_streams_active",
			Help: "Open chat websocket streams on this node.",
		})

		searchRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forumly_search_requests_total",
			Help: "Search requests by entity and cache result.",
		}, []string{"entity", "cache"})

		uploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forumly_uploads_total",
			Help: "Upload attempts by outcome.",
		}, []string{"outcome"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "forumly_upload_latency_seconds",
			Help:    "Time spent validating and storing uploads.",
			Buckets: prometheus.DefBuckets,
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			authAttemptsTotal,
			votesCastTotal,
			chatMessagesSentTotal,
			chatStreamsActive,
			searchRequestsTotal,
			uploadsTotal,
			uploadLatencySeconds,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// AuthAttempts counts authentication attempts.
func AuthAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return authAttemptsTotal
}

// VotesCast counts vote mutations.
func VotesCast() *prometheus.CounterVec {
	RegisterMetrics()
	return votesCastTotal
}

// ChatMessagesSent counts delivered chat messages.
func ChatMessagesSent() *prometheus.CounterVec {
	RegisterMetrics()
	return chatMessagesSentTotal
}

// ChatStreamsActive tracks open websocket streams.
func ChatStreamsActive() prometheus.Gauge {
	RegisterMetrics()
	return chatStreamsActive
}

// SearchRequests counts search requests.
func SearchRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return searchRequestsTotal
}

// Uploads counts upload attempts.
func Uploads() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadsTotal
}

// UploadLatency exposes the upload latency histogram.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}
