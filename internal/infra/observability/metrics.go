package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

// Metrics holds all Prometheus metrics of the insights service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	runDuration     *prometheus.HistogramVec
	runsTotal       *prometheus.CounterVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	anomalies       *prometheus.CounterVec
	modeTransitions *prometheus.CounterVec
	suggestions     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. A private registry lets NewMetrics be called
// more than once (e.g. in tests) without duplicate collector panics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bfa_insights_run_duration_seconds",
				Help:    "Duration of insight runs and their stages.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_insights_runs_total",
				Help: "Total insight runs by outcome.",
			},
			[]string{"status"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_insights_external_errors_total",
				Help: "Total errors from ledger sources and state stores.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_insights_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_insights_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		anomalies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_insights_anomalies_total",
				Help: "Anomalies reported, by type.",
			},
			[]string{"type"},
		),
		modeTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_insights_mode_transitions_total",
				Help: "Mode transitions, by target mode.",
			},
			[]string{"to"},
		),
		suggestions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_insights_suggestions_total",
				Help: "Suggestions emitted, by type.",
			},
			[]string{"type"},
		),
	}
}

// RecordRunDuration records the duration of a run or one of its stages.
func (m *Metrics) RecordRunDuration(operation string, d time.Duration) {
	m.runDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrRun increments the run counter with a status label (success, error).
func (m *Metrics) IncrRun(status string) {
	m.runsTotal.WithLabelValues(status).Inc()
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordReport counts what a finished report surfaced.
func (m *Metrics) RecordReport(r *domain.InsightReport) {
	for _, a := range r.Anomalies {
		m.anomalies.WithLabelValues(string(a.Type)).Inc()
	}
	for _, s := range r.Suggestions {
		m.suggestions.WithLabelValues(string(s.Type)).Inc()
	}
	if r.ModeTransitioned {
		m.modeTransitions.WithLabelValues(string(r.Mode.CurrentMode)).Inc()
	}
}

// GetInsightsSnapshot returns a snapshot suitable for the
// GET /v1/metrics/insights endpoint.
func (m *Metrics) GetInsightsSnapshot() *domain.InsightsMetrics {
	success := getCounterValue(m.runsTotal, "success")
	failed := getCounterValue(m.runsTotal, "error")
	total := success + failed
	hits := getCounterValue(m.cacheHits, "report")
	misses := getCounterValue(m.cacheMisses, "report")

	snap := &domain.InsightsMetrics{
		TotalRuns:       int64(total),
		FailedRuns:      int64(failed),
		AnomaliesByType: make(map[string]int64),
		ModeTransitions: make(map[string]int64),
		Period:          "all_time",
	}
	if total > 0 {
		snap.ErrorRate = failed / total
	}
	if hits+misses > 0 {
		snap.CacheHitRate = hits / (hits + misses)
	}

	for _, t := range []domain.AnomalyType{
		domain.AnomalyLargePurchase,
		domain.AnomalyUnusualPix,
		domain.AnomalyDuplicate,
		domain.AnomalyUnexpectedFee,
	} {
		if v := getCounterValue(m.anomalies, string(t)); v > 0 {
			snap.AnomaliesByType[string(t)] = int64(v)
		}
	}
	for _, mode := range []domain.Mode{domain.ModeNormal, domain.ModeIskra, domain.ModeMochila} {
		if v := getCounterValue(m.modeTransitions, string(mode)); v > 0 {
			snap.ModeTransitions[string(mode)] = int64(v)
		}
	}
	for _, t := range []domain.SuggestionType{
		domain.SuggestionCancelSubscription,
		domain.SuggestionReduceCategory,
		domain.SuggestionOptimizeSpending,
		domain.SuggestionDebtPayoff,
		domain.SuggestionSavingsOpportunity,
	} {
		snap.SuggestionsTotal += int64(getCounterValue(m.suggestions, string(t)))
	}

	return snap
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
