package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API, dispatcher, and
// worker flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	pushesSentTotal       *prometheus.CounterVec
	pushesFailedTotal     *prometheus.CounterVec
	dispatchRejectedTotal *prometheus.CounterVec
	dispatchBatchSize     prometheus.Histogram
	providerSendDuration  prometheus.Histogram
	tokensRevokedTotal    *prometheus.CounterVec
	workerInflight        prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gagyo_push",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gagyo_push",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		pushesSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gagyo_push",
				Name:      "pushes_sent_total",
				Help:      "Total number of pushes delivered to the provider, by notification type.",
			},
			[]string{"type"},
		),
		pushesFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gagyo_push",
				Name:      "pushes_failed_total",
				Help:      "Total number of per-token push failures, by notification type and failure class.",
			},
			[]string{"type", "class"},
		),
		dispatchRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gagyo_push",
				Name:      "dispatch_rejected_total",
				Help:      "Total number of whole-request dispatch rejections by reason.",
			},
			[]string{"reason"},
		),
		dispatchBatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "gagyo_push",
				Name:      "dispatch_batch_size",
				Help:      "Token count per provider batch call.",
				Buckets:   []float64{1, 5, 10, 25, 50, 75, 100},
			},
		),
		providerSendDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "gagyo_push",
				Name:      "provider_send_duration_seconds",
				Help:      "Provider batch send duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		tokensRevokedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gagyo_push",
				Name:      "tokens_revoked_total",
				Help:      "Total number of device tokens revoked, by cause.",
			},
			[]string{"cause"},
		),
		workerInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "gagyo_push",
				Name:      "worker_inflight",
				Help:      "Current number of in-flight dispatch worker operations.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.pushesSentTotal,
		m.pushesFailedTotal,
		m.dispatchRejectedTotal,
		m.dispatchBatchSize,
		m.providerSendDuration,
		m.tokensRevokedTotal,
		m.workerInflight,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncPushSent(notificationType string) {
	if m == nil {
		return
	}
	m.pushesSentTotal.WithLabelValues(normalizeLabel(notificationType)).Inc()
}

func (m *Metrics) IncPushFailed(notificationType string, class string) {
	if m == nil {
		return
	}
	m.pushesFailedTotal.WithLabelValues(normalizeLabel(notificationType), normalizeLabel(class)).Inc()
}

func (m *Metrics) IncDispatchRejected(reason string) {
	if m == nil {
		return
	}
	m.dispatchRejectedTotal.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *Metrics) ObserveDispatchBatchSize(tokens int) {
	if m == nil {
		return
	}
	if tokens < 0 {
		tokens = 0
	}
	m.dispatchBatchSize.Observe(float64(tokens))
}

func (m *Metrics) ObserveProviderSendDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.providerSendDuration.Observe(seconds)
}

func (m *Metrics) IncTokenRevoked(cause string) {
	if m == nil {
		return
	}
	m.tokensRevokedTotal.WithLabelValues(normalizeLabel(cause)).Inc()
}

func (m *Metrics) IncWorkerInFlight() {
	if m == nil {
		return
	}
	m.workerInflight.Inc()
}

func (m *Metrics) DecWorkerInFlight() {
	if m == nil {
		return
	}
	m.workerInflight.Dec()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
