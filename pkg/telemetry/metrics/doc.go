// Package metrics provides Prometheus metrics for the policy engine.
//
// EngineMetrics implements the engine's MetricsRecorder interface and
// exports evaluation, cache, and policy-count metrics:
//
//	arbiter_policy_evaluations_total{decision}
//	arbiter_policy_evaluation_duration_seconds{decision}
//	arbiter_policies_loaded
//	arbiter_cache_hits_total{cache}
//	arbiter_cache_misses_total{cache}
//	arbiter_cache_evictions_total{cache}
//	arbiter_cache_entries{cache}
//
// Attach it to an engine and expose the handler:
//
//	em := metrics.NewEngineMetrics(&cfg.Telemetry.Metrics, nil)
//	eng.AttachMetrics(em)
//	http.Handle(cfg.Telemetry.Metrics.Path, em.Handler())
package metrics
