package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Request metrics
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aven_chat_requests_total",
		Help: "Total number of chat requests",
	}, []string{"status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aven_chat_request_duration_seconds",
		Help:    "Duration of chat requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	// Guardrail metrics
	guardrailBlocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aven_guardrail_blocks_total",
		Help: "Total number of queries blocked by guardrails",
	}, []string{"reason"})

	// Model metrics
	modelRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aven_model_request_duration_seconds",
		Help:    "Duration of model requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "status"})

	modelRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aven_model_requests_total",
		Help: "Total number of model requests",
	}, []string{"provider", "status"})

	providerFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aven_provider_fallbacks_total",
		Help: "Total number of times a fallback provider was used",
	})

	// Cache metrics
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aven_response_cache_hits_total",
		Help: "Total number of response cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aven_response_cache_misses_total",
		Help: "Total number of response cache misses",
	})

	// Email metrics
	emailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aven_emails_sent_total",
		Help: "Total number of notification emails sent",
	}, []string{"kind", "status"})

	// Rate limit metrics
	rateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aven_rate_limit_exceeded_total",
		Help: "Total number of rate limit exceeded events",
	}, []string{"client"})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordRequest records a completed chat request
func (m *Metrics) RecordRequest(status string, duration time.Duration) {
	requestsTotal.WithLabelValues(status).Inc()
	requestDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordGuardrailBlock records a query blocked by guardrails
func (m *Metrics) RecordGuardrailBlock(reason string) {
	guardrailBlocks.WithLabelValues(reason).Inc()
}

// RecordModelRequest records a model request
func (m *Metrics) RecordModelRequest(provider, status string, duration time.Duration) {
	modelRequestDuration.WithLabelValues(provider, status).Observe(duration.Seconds())
	modelRequestsTotal.WithLabelValues(provider, status).Inc()
}

// RecordProviderFallback records use of a fallback provider
func (m *Metrics) RecordProviderFallback() {
	providerFallbacks.Inc()
}

// RecordCacheHit records a response cache hit
func (m *Metrics) RecordCacheHit() {
	cacheHits.Inc()
}

// RecordCacheMiss records a response cache miss
func (m *Metrics) RecordCacheMiss() {
	cacheMisses.Inc()
}

// RecordEmailSent records a notification email attempt
func (m *Metrics) RecordEmailSent(kind, status string) {
	emailsSent.WithLabelValues(kind, status).Inc()
}

// RecordRateLimitExceeded records a rate limit exceeded event
func (m *Metrics) RecordRateLimitExceeded(clientKey string) {
	rateLimitExceeded.WithLabelValues(clientKey).Inc()
}

// StartMetricsServer starts the metrics HTTP server
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
