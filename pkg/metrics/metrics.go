// Package metrics instruments the engine's own behavior with Prometheus collectors: how many
// faults are active, how many commands ran, how many of those exited non-zero. There is no
// global registry — each Registry is constructed explicitly and passed down.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry wraps the engine's Prometheus collectors.
type Registry struct {
	reg *prometheus.Registry

	FaultsActive           prometheus.Gauge
	FaultsCompletedTotal    *prometheus.CounterVec
	CommandsExecutedTotal   *prometheus.CounterVec
	CommandExitNonzeroTotal prometheus.Counter
	CommandDurationSeconds  prometheus.Histogram
}

// New builds a Registry with a fresh *prometheus.Registry (never the global default, so
// multiple engines can coexist in one process, e.g. in tests).
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		FaultsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "faultd_faults_active",
			Help: "Number of fault tasks currently in the Active state.",
		}),
		FaultsCompletedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "faultd_faults_completed_total",
			Help: "Total number of fault tasks that reached a terminal state.",
		}, []string{"outcome"}),
		CommandsExecutedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "faultd_commands_executed_total",
			Help: "Total number of shell commands the namespace executor has run.",
		}, []string{"verb"}),
		CommandExitNonzeroTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "faultd_command_exit_nonzero_total",
			Help: "Total number of executed commands that exited with a non-zero status.",
		}),
		CommandDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "faultd_command_duration_seconds",
			Help:    "Wall-clock duration of each executed command.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Gatherer exposes the underlying registry for a scrape handler (promhttp.HandlerFor).
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
