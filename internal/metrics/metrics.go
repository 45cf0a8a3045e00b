package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for finpilot
type Metrics struct {
	// Command execution metrics
	CommandExecutions *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec

	// API client metrics
	APIRequests      *prometheus.CounterVec
	APILatency       *prometheus.HistogramVec
	APIUnauthorized  *prometheus.CounterVec
	TokenAcquisition *prometheus.CounterVec

	// Navigation metrics
	Navigations    *prometheus.CounterVec
	GuardDecisions *prometheus.CounterVec

	// Tag cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Onboarding metrics
	OnboardingSubmissions  *prometheus.CounterVec
	OnboardingConfirmTries *prometheus.CounterVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		CommandExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finpilot_command_executions_total",
				Help: "Total number of command executions",
			},
			[]string{"command", "success"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finpilot_command_duration_seconds",
				Help:    "Command execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),

		APIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finpilot_api_requests_total",
				Help: "Total number of API requests by method and status class",
			},
			[]string{"method", "status"},
		),
		APILatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finpilot_api_latency_seconds",
				Help:    "API request latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method"},
		),
		APIUnauthorized: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finpilot_api_unauthorized_total",
				Help: "Total number of 401 responses by handling policy and action taken",
			},
			[]string{"policy", "action"},
		),
		TokenAcquisition: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finpilot_token_acquisitions_total",
				Help: "Total number of bearer token acquisitions",
			},
			[]string{"success"},
		),

		Navigations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finpilot_navigations_total",
				Help: "Total number of route navigations by outcome",
			},
			[]string{"route", "outcome"},
		),
		GuardDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finpilot_guard_decisions_total",
				Help: "Total number of guard decisions",
			},
			[]string{"guard", "decision"},
		),

		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finpilot_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache"},
		),
		CacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finpilot_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache"},
		),

		OnboardingSubmissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finpilot_onboarding_submissions_total",
				Help: "Total number of onboarding submissions by outcome",
			},
			[]string{"outcome"},
		),
		OnboardingConfirmTries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finpilot_onboarding_confirm_attempts_total",
				Help: "Total number of onboarding confirmation attempts",
			},
			[]string{"strategy", "confirmed"},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finpilot_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code", "component"},
		),
	}
}

// The helpers below accept a nil receiver so components can run without metrics.

// ObserveRequest records one API round trip.
func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(method, statusClass(status)).Inc()
	m.APILatency.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveUnauthorized records how a 401 was handled.
func (m *Metrics) ObserveUnauthorized(policy, action string) {
	if m == nil {
		return
	}
	m.APIUnauthorized.WithLabelValues(policy, action).Inc()
}

// ObserveToken records a token acquisition attempt.
func (m *Metrics) ObserveToken(ok bool) {
	if m == nil {
		return
	}
	m.TokenAcquisition.WithLabelValues(strconv.FormatBool(ok)).Inc()
}

// ObserveNavigation records the outcome of a navigation.
func (m *Metrics) ObserveNavigation(route, outcome string) {
	if m == nil {
		return
	}
	m.Navigations.WithLabelValues(route, outcome).Inc()
}

// ObserveGuard records a single guard decision.
func (m *Metrics) ObserveGuard(guard, decision string) {
	if m == nil {
		return
	}
	m.GuardDecisions.WithLabelValues(guard, decision).Inc()
}

// ObserveCache records a cache lookup.
func (m *Metrics) ObserveCache(cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMisses.WithLabelValues(cache).Inc()
}

// ObserveOnboarding records a submission outcome.
func (m *Metrics) ObserveOnboarding(outcome string) {
	if m == nil {
		return
	}
	m.OnboardingSubmissions.WithLabelValues(outcome).Inc()
}

// ObserveConfirmAttempt records one onboarding confirmation attempt.
func (m *Metrics) ObserveConfirmAttempt(strategy string, confirmed bool) {
	if m == nil {
		return
	}
	m.OnboardingConfirmTries.WithLabelValues(strategy, strconv.FormatBool(confirmed)).Inc()
}

// ObserveCommand records a CLI command execution.
func (m *Metrics) ObserveCommand(command string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.CommandExecutions.WithLabelValues(command, strconv.FormatBool(success)).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(d.Seconds())
}

// ObserveError counts an error by code.
func (m *Metrics) ObserveError(code, component string) {
	if m == nil || code == "" {
		return
	}
	m.Errors.WithLabelValues(code, component).Inc()
}

func statusClass(status int) string {
	switch {
	case status == 0:
		return "error"
	case status == 401:
		return "401"
	case status == 422:
		return "422"
	default:
		return strconv.Itoa(status/100) + "xx"
	}
}
