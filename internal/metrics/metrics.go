package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the service.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	SessionsIssuedTotal  prometheus.Counter
	SessionsRevokedTotal prometheus.Counter
	SessionsExpiredTotal prometheus.Counter
	SessionsActive       prometheus.Gauge

	registry *prometheus.Registry
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kiosk_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kiosk_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		SessionsIssuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kiosk_sessions_issued_total",
			Help: "Sessions minted by successful logins",
		}),
		SessionsRevokedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kiosk_sessions_revoked_total",
			Help: "Sessions revoked by logout, password change, or user deletion",
		}),
		SessionsExpiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kiosk_sessions_expired_total",
			Help: "Sessions removed after their TTL elapsed",
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kiosk_sessions_active",
			Help: "Sessions currently within their TTL",
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SessionsIssuedTotal,
		m.SessionsRevokedTotal,
		m.SessionsExpiredTotal,
		m.SessionsActive,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
