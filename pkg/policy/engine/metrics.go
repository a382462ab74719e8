package engine

import "time"

// MetricsRecorder receives engine observations. Implementations must
// be safe for concurrent use. The engine works without one; attach an
// implementation (for example telemetry/metrics.EngineMetrics) to
// export the numbers.
type MetricsRecorder interface {
	// RecordEvaluation records a completed evaluation and its outcome.
	RecordEvaluation(decision Decision, duration time.Duration)

	// RecordCacheHit records a result served from the cache.
	RecordCacheHit()

	// RecordCacheMiss records an evaluation that bypassed the cache.
	RecordCacheMiss()

	// RecordCacheEvictions records entries removed by a janitor sweep.
	RecordCacheEvictions(count int)

	// SetCacheSize reports the current cache entry count.
	SetCacheSize(count int)

	// SetPolicyCount reports the current number of loaded policies.
	SetPolicyCount(count int)
}

// nopMetrics is used when no recorder is attached.
type nopMetrics struct{}

func (nopMetrics) RecordEvaluation(Decision, time.Duration) {}
func (nopMetrics) RecordCacheHit()                          {}
func (nopMetrics) RecordCacheMiss()                         {}
func (nopMetrics) RecordCacheEvictions(int)                 {}
func (nopMetrics) SetCacheSize(int)                         {}
func (nopMetrics) SetPolicyCount(int)                       {}
