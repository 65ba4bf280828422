package observability

import (
	"time"

	"github.com/larimar/onboarding-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the onboarding BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	stepSubmissions *prometheus.CounterVec
	conflicts       *prometheus.CounterVec
	provisioning    *prometheus.CounterVec
	storeErrors     *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "onboarding_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		stepSubmissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboarding_step_submissions_total",
				Help: "Step submissions by step name and outcome.",
			},
			[]string{"step", "outcome"},
		),
		conflicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboarding_duplicate_conflicts_total",
				Help: "Duplicate conflicts detected, by field.",
			},
			[]string{"field"},
		),
		provisioning: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboarding_account_provisioning_total",
				Help: "Account provisioning attempts by outcome.",
			},
			[]string{"outcome"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboarding_store_errors_total",
				Help: "Unclassified store failures by operation.",
			},
			[]string{"op"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboarding_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboarding_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrStep increments the step-submission counter.
func (m *Metrics) IncrStep(step, outcome string) {
	m.stepSubmissions.WithLabelValues(step, outcome).Inc()
}

// IncrConflict increments the duplicate-conflict counter for a field.
func (m *Metrics) IncrConflict(field string) {
	m.conflicts.WithLabelValues(field).Inc()
}

// IncrProvisioning increments the account-provisioning counter.
func (m *Metrics) IncrProvisioning(outcome string) {
	m.provisioning.WithLabelValues(outcome).Inc()
}

// IncrStoreError increments the store failure counter.
func (m *Metrics) IncrStoreError(op string) {
	m.storeErrors.WithLabelValues(op).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// GetFunnelSnapshot returns a snapshot of onboarding funnel metrics
// suitable for the GET /v1/backoffice/metrics endpoint.
func (m *Metrics) GetFunnelSnapshot() *domain.FunnelMetrics {
	steps := map[string]int64{}
	for _, step := range []string{
		domain.StepCompanyInfo,
		domain.StepCompanyAddress,
		domain.StepOwner,
		domain.StepExpectedActivity,
		domain.StepFollowUp,
	} {
		steps[step] = int64(getCounterValue(m.stepSubmissions, step, "success"))
	}

	conflicts := map[string]int64{
		"rnc":   int64(getCounterValue(m.conflicts, "rnc")),
		"email": int64(getCounterValue(m.conflicts, "email")),
	}

	var storeErrs float64
	gathered, err := m.Registry.Gather()
	if err == nil {
		for _, mf := range gathered {
			if mf.GetName() == "onboarding_store_errors_total" {
				for _, metric := range mf.GetMetric() {
					storeErrs += metric.GetCounter().GetValue()
				}
			}
		}
	}

	return &domain.FunnelMetrics{
		StepSubmissions:     steps,
		DuplicateConflicts:  conflicts,
		AccountsProvisioned: int64(getCounterValue(m.provisioning, "created")),
		ProvisioningSkipped: int64(getCounterValue(m.provisioning, "noop") + getCounterValue(m.provisioning, "collision")),
		StoreErrors:         int64(storeErrs),
		Period:              "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for
// the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
