// Package metrics provides Prometheus instrumentation for Academia.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "academia"

// Login outcomes used as the "outcome" label.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomePendingApproval    = "pending_approval"
	OutcomeAccountDisabled    = "account_disabled"
	OutcomeError              = "error"
)

// Metrics holds every collector exported by the server.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Identity workflow
	LoginsTotal        *prometheus.CounterVec
	RegistrationsTotal *prometheus.CounterVec
	ApprovalsTotal     prometheus.Counter
	RejectionsTotal    prometheus.Counter
	AdminCreatesTotal  *prometheus.CounterVec

	// Provisioning
	ProvisionedTotal *prometheus.CounterVec

	// Sessions
	SessionsExpiredTotal prometheus.Counter
	SessionsActive       prometheus.Gauge

	// Reconciliation
	ReconcileRunsTotal       prometheus.Counter
	ReconcileDuration        prometheus.Histogram
	ReconcileRepairedTotal   prometheus.Counter
	ReconcileInconsistencies prometheus.Gauge
	ReconcileLastRunTime     prometheus.Gauge
}

// NewMetrics creates and registers all collectors on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		LoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		RegistrationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registration",
			Name:      "registrations_total",
			Help:      "Self-registrations by requested role.",
		}, []string{"role"}),
		ApprovalsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registration",
			Name:      "approvals_total",
			Help:      "Pending users approved by an administrator.",
		}),
		RejectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registration",
			Name:      "rejections_total",
			Help:      "Pending users rejected and deleted by an administrator.",
		}),
		AdminCreatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registration",
			Name:      "admin_creates_total",
			Help:      "Users created directly by an administrator, by role and completeness.",
		}, []string{"role", "complete"}),

		ProvisionedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provisioning",
			Name:      "domain_profiles_created_total",
			Help:      "Domain profiles created, by role and source.",
		}, []string{"role", "source"}),

		SessionsExpiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "idle_expired_total",
			Help:      "Sessions destroyed because of the idle timeout.",
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Sessions created minus sessions destroyed by this instance.",
		}),

		ReconcileRunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Completed reconciliation runs.",
		}),
		ReconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "duration_seconds",
			Help:      "Duration of reconciliation runs.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
		ReconcileRepairedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "repaired_total",
			Help:      "Missing domain profiles created by reconciliation.",
		}),
		ReconcileInconsistencies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "inconsistencies",
			Help:      "Approved profiles without a domain profile found by the last run.",
		}),
		ReconcileLastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last reconciliation run.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginsTotal,
		m.RegistrationsTotal,
		m.ApprovalsTotal,
		m.RejectionsTotal,
		m.AdminCreatesTotal,
		m.ProvisionedTotal,
		m.SessionsExpiredTotal,
		m.SessionsActive,
		m.ReconcileRunsTotal,
		m.ReconcileDuration,
		m.ReconcileRepairedTotal,
		m.ReconcileInconsistencies,
		m.ReconcileLastRunTime,
	)

	return m
}

// Registry returns the registry holding all collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records one HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordLogin records a login attempt.
func (m *Metrics) RecordLogin(outcome string) {
	m.LoginsTotal.WithLabelValues(outcome).Inc()
}

// RecordRegistration records a self-registration.
func (m *Metrics) RecordRegistration(role string) {
	m.RegistrationsTotal.WithLabelValues(role).Inc()
}

// RecordAdminCreate records an admin-direct creation.
func (m *Metrics) RecordAdminCreate(role string, complete bool) {
	m.AdminCreatesTotal.WithLabelValues(role, strconv.FormatBool(complete)).Inc()
}

// RecordProvisioned records a created domain profile.
func (m *Metrics) RecordProvisioned(role, source string) {
	m.ProvisionedTotal.WithLabelValues(role, source).Inc()
}

// RecordReconcileRun records a completed reconciliation run.
func (m *Metrics) RecordReconcileRun(duration time.Duration, found, repaired int) {
	m.ReconcileRunsTotal.Inc()
	m.ReconcileDuration.Observe(duration.Seconds())
	m.ReconcileRepairedTotal.Add(float64(repaired))
	m.ReconcileInconsistencies.Set(float64(found - repaired))
	m.ReconcileLastRunTime.SetToCurrentTime()
}
