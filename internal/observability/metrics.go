package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	openaiRequestsTotal *prometheus.CounterVec
	openaiDuration      *prometheus.HistogramVec
	smtpRequestsTotal   *prometheus.CounterVec
	retriesTotal        *prometheus.CounterVec
	rateLimitDenials    *prometheus.CounterVec
	scheduledEmails     prometheus.Counter
	scheduledFailures   prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voiceagent_http_requests_total",
				Help: "Total number of HTTP requests handled.",
			},
			[]string{"route", "method", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "voiceagent_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
		openaiRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voiceagent_openai_requests_total",
				Help: "Total OpenAI API requests.",
			},
			[]string{"endpoint", "status"},
		),
		openaiDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "voiceagent_openai_request_duration_seconds",
				Help:    "OpenAI request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "status"},
		),
		smtpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voiceagent_smtp_requests_total",
				Help: "Total SMTP relay operations.",
			},
			[]string{"endpoint", "outcome"},
		),
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voiceagent_provider_retries_total",
				Help: "Backoff retries triggered by provider rate limiting.",
			},
			[]string{"operation"},
		),
		rateLimitDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voiceagent_ratelimit_denials_total",
				Help: "Requests denied by the admission gate.",
			},
			[]string{"class"},
		),
		scheduledEmails: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "voiceagent_scheduled_emails_total",
				Help: "Emails registered for delayed delivery.",
			},
		),
		scheduledFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "voiceagent_scheduled_email_failures_total",
				Help: "Scheduled email sends that failed when their timer fired.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.openaiRequestsTotal,
		m.openaiDuration,
		m.smtpRequestsTotal,
		m.retriesTotal,
		m.rateLimitDenials,
		m.scheduledEmails,
		m.scheduledFailures,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	if method == "" {
		method = "UNKNOWN"
	}
	statusLabel := strconv.Itoa(status)
	m.httpRequestsTotal.WithLabelValues(route, method, statusLabel).Inc()
	m.httpRequestDuration.WithLabelValues(route, method, statusLabel).Observe(duration.Seconds())
}

func (m *Metrics) ObserveOpenAI(endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	statusLabel := strconv.Itoa(status)
	m.openaiRequestsTotal.WithLabelValues(endpoint, statusLabel).Inc()
	m.openaiDuration.WithLabelValues(endpoint, statusLabel).Observe(duration.Seconds())
}

func (m *Metrics) ObserveSMTP(endpoint string, ok bool, _ time.Duration) {
	if m == nil {
		return
	}
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	m.smtpRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) IncRetry(operation string) {
	if m == nil {
		return
	}
	m.retriesTotal.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncRateLimitDenial(class string) {
	if m == nil {
		return
	}
	m.rateLimitDenials.WithLabelValues(class).Inc()
}

func (m *Metrics) IncScheduledEmail() {
	if m == nil {
		return
	}
	m.scheduledEmails.Inc()
}

func (m *Metrics) IncScheduledEmailFailure() {
	if m == nil {
		return
	}
	m.scheduledFailures.Inc()
}
