package metrics

import (
	"time"

	"arbiter-hq/arbiter/pkg/config"
	"arbiter-hq/arbiter/pkg/policy/engine"

	"github.com/prometheus/client_golang/prometheus"
)

// decisionCache is the label value for the decision result cache.
const decisionCache = "decision"

// EngineMetrics tracks policy engine metrics. It implements
// engine.MetricsRecorder; attach an instance with AttachMetrics.
type EngineMetrics struct {
	registry *prometheus.Registry

	// Total evaluations by final decision
	evaluationsTotal *prometheus.CounterVec

	// Evaluation duration histogram by final decision
	evaluationDuration *prometheus.HistogramVec

	// Currently loaded policies
	policiesLoaded prometheus.Gauge

	// Cache hit counter
	cacheHitsTotal *prometheus.CounterVec

	// Cache miss counter
	cacheMissesTotal *prometheus.CounterVec

	// Cache evictions counter
	cacheEvictionsTotal *prometheus.CounterVec

	// Current cache size (entries)
	cacheEntries *prometheus.GaugeVec
}

var _ engine.MetricsRecorder = (*EngineMetrics)(nil)

// NewEngineMetrics creates and registers engine metrics. A nil
// registry creates a fresh one, reachable through Registry.
func NewEngineMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EngineMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	em := &EngineMetrics{
		registry: registry,

		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_evaluations_total",
				Help:      "Total number of policy evaluations",
			},
			[]string{"decision"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_evaluation_duration_seconds",
				Help:      "Duration of policy evaluation in seconds",
				// Evaluations are in-memory and should stay well under 16ms
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15),
			},
			[]string{"decision"},
		),

		policiesLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policies_loaded",
				Help:      "Current number of loaded policies",
			},
		),

		cacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache"},
		),

		cacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache"},
		),

		cacheEvictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_evictions_total",
				Help:      "Total number of cache evictions",
			},
			[]string{"cache"},
		),

		cacheEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_entries",
				Help:      "Current number of entries in cache",
			},
			[]string{"cache"},
		),
	}

	registry.MustRegister(
		em.evaluationsTotal,
		em.evaluationDuration,
		em.policiesLoaded,
		em.cacheHitsTotal,
		em.cacheMissesTotal,
		em.cacheEvictionsTotal,
		em.cacheEntries,
	)

	return em
}

// Registry returns the underlying Prometheus registry.
func (em *EngineMetrics) Registry() *prometheus.Registry {
	return em.registry
}

// RecordEvaluation records a completed evaluation and its outcome.
func (em *EngineMetrics) RecordEvaluation(decision engine.Decision, duration time.Duration) {
	em.evaluationsTotal.WithLabelValues(string(decision)).Inc()
	em.evaluationDuration.WithLabelValues(string(decision)).Observe(duration.Seconds())
}

// RecordCacheHit records a result served from the cache.
func (em *EngineMetrics) RecordCacheHit() {
	em.cacheHitsTotal.WithLabelValues(decisionCache).Inc()
}

// RecordCacheMiss records an evaluation that bypassed the cache.
func (em *EngineMetrics) RecordCacheMiss() {
	em.cacheMissesTotal.WithLabelValues(decisionCache).Inc()
}

// RecordCacheEvictions records entries removed by a janitor sweep.
func (em *EngineMetrics) RecordCacheEvictions(count int) {
	if count <= 0 {
		return
	}
	em.cacheEvictionsTotal.WithLabelValues(decisionCache).Add(float64(count))
}

// SetCacheSize reports the current cache entry count.
func (em *EngineMetrics) SetCacheSize(count int) {
	em.cacheEntries.WithLabelValues(decisionCache).Set(float64(count))
}

// SetPolicyCount reports the current number of loaded policies.
func (em *EngineMetrics) SetPolicyCount(count int) {
	em.policiesLoaded.Set(float64(count))
}
