package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for the account service
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// Auth Metrics
	LoginsTotal          *prometheus.CounterVec
	SignupsTotal         *prometheus.CounterVec
	TokenRotationsTotal  *prometheus.CounterVec
	RefreshTokensEvicted prometheus.Counter
	ActiveRefreshTokens  prometheus.Gauge

	// Background Metrics
	BackgroundTasksTotal *prometheus.CounterVec
	MailOutboxTotal      *prometheus.CounterVec
	MailOutboxBacklog    *prometheus.GaugeVec
}

// NewMetricsRegistry initializes and returns a new MetricsRegistry with all
// metrics registered on reg. Pass prometheus.DefaultRegisterer in production.
func NewMetricsRegistry(reg prometheus.Registerer) *MetricsRegistry {
	factory := promauto.With(reg)

	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clubhouse_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clubhouse_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "clubhouse_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		// Auth Metrics
		LoginsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clubhouse_logins_total",
				Help: "Login attempts by method and result",
			},
			[]string{"method", "result"},
		),
		SignupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clubhouse_signups_total",
				Help: "Signups by user type and result",
			},
			[]string{"user_type", "result"},
		),
		TokenRotationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clubhouse_token_rotations_total",
				Help: "Refresh token rotations by result code",
			},
			[]string{"result"},
		),
		RefreshTokensEvicted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "clubhouse_refresh_tokens_evicted_total",
				Help: "Refresh tokens deleted by retention cleanup",
			},
		),
		ActiveRefreshTokens: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "clubhouse_active_refresh_tokens",
				Help: "Live refresh tokens across all users, updated by the sweep job",
			},
		),

		// Background Metrics
		BackgroundTasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clubhouse_background_tasks_total",
				Help: "Fire-and-forget tasks by name and result",
			},
			[]string{"task", "result"},
		),
		MailOutboxTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clubhouse_mail_outbox_total",
				Help: "Outbox mail messages by kind and result",
			},
			[]string{"kind", "result"},
		),
		MailOutboxBacklog: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "clubhouse_mail_outbox_backlog",
				Help: "Outbox stream length and unacknowledged entries",
			},
			[]string{"state"},
		),
	}
}

// The helpers below accept a nil registry so callers in tests can skip metrics.

func (m *MetricsRegistry) ObserveLogin(method, result string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(method, result).Inc()
}

func (m *MetricsRegistry) ObserveSignup(userType, result string) {
	if m == nil {
		return
	}
	m.SignupsTotal.WithLabelValues(userType, result).Inc()
}

func (m *MetricsRegistry) ObserveRotation(result string) {
	if m == nil {
		return
	}
	m.TokenRotationsTotal.WithLabelValues(result).Inc()
}

func (m *MetricsRegistry) ObserveEvictions(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.RefreshTokensEvicted.Add(float64(n))
}

func (m *MetricsRegistry) ObserveTask(task, result string) {
	if m == nil {
		return
	}
	m.BackgroundTasksTotal.WithLabelValues(task, result).Inc()
}

func (m *MetricsRegistry) ObserveMail(kind, result string) {
	if m == nil {
		return
	}
	m.MailOutboxTotal.WithLabelValues(kind, result).Inc()
}

func (m *MetricsRegistry) SetActiveRefreshTokens(n int64) {
	if m == nil {
		return
	}
	m.ActiveRefreshTokens.Set(float64(n))
}

func (m *MetricsRegistry) SetMailBacklog(length, pending int64) {
	if m == nil {
		return
	}
	m.MailOutboxBacklog.WithLabelValues("queued").Set(float64(length))
	m.MailOutboxBacklog.WithLabelValues("pending").Set(float64(pending))
}
