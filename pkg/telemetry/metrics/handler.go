package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
//
// It exposes all metrics registered with this instance's registry in
// the standard exposition format. Mount it at the path configured in
// MetricsConfig (typically "/metrics"):
//
//	em := metrics.NewEngineMetrics(&cfg.Telemetry.Metrics, nil)
//	http.Handle(cfg.Telemetry.Metrics.Path, em.Handler())
func (em *EngineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(
		em.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
		},
	)
}
