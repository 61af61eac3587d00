package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics captures low-cardinality HTTP server metrics plus webhook
// reconciliation outcomes.
type HTTPMetrics struct {
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	webhookOutcomes *prometheus.CounterVec
}

// NewHTTPMetrics registers the metrics instruments on the default registry.
func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_server_duration_seconds",
			Help:    "HTTP request duration by endpoint and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint", "status_code"}),
		inFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "http_server_in_flight",
			Help: "In-flight HTTP requests.",
		}),
		webhookOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Webhook events by provider and outcome.",
		}, []string{"provider", "outcome"}),
	}
}

// GinMiddleware records request duration and in-flight metrics.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		endpoint := normalizeEndpoint(c.FullPath())
		m.inFlight.Inc()
		start := time.Now()
		c.Next()
		m.inFlight.Dec()

		status := strconv.Itoa(c.Writer.Status())
		m.requestDuration.WithLabelValues(endpoint, status).Observe(time.Since(start).Seconds())
	}
}

// RecordWebhook counts a webhook reconciliation outcome.
func (m *HTTPMetrics) RecordWebhook(provider, outcome string) {
	if m == nil {
		return
	}
	m.webhookOutcomes.WithLabelValues(normalizeEndpoint(provider), normalizeEndpoint(outcome)).Inc()
}

func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "unknown"
	}
	return endpoint
}
