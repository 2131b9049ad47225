// Package metrics exports service and algorithm counters to Prometheus. The
// Registry satisfies the service metrics recorder plus the merge and
// simulation instrumentation sinks, so one instance wires the whole pipeline.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"pedigreecore/internal/merge"
	"pedigreecore/internal/sim"
)

var (
	_ merge.Recorder = (*Registry)(nil)
	_ sim.Recorder   = (*Registry)(nil)
)

// Registry bundles the pedigree service collectors.
type Registry struct {
	opDuration       *prometheus.HistogramVec
	opResults        *prometheus.CounterVec
	mergeComparisons *prometheus.CounterVec
	mergeDuplicates  *prometheus.CounterVec
	simDraws         prometheus.Counter
	simRejections    prometheus.Counter
	simFallbacks     prometheus.Counter
}

// New registers the collectors with reg. Passing nil uses the default
// registerer.
func New(reg prometheus.Registerer) *Registry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Registry{
		opDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pedigreecore",
			Name:      "operation_duration_seconds",
			Help:      "Latency of registry service operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		opResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pedigreecore",
			Name:      "operation_results_total",
			Help:      "Service operation outcomes by status.",
		}, []string{"operation", "status"}),
		mergeComparisons: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pedigreecore",
			Name:      "merge_comparisons_total",
			Help:      "Record pair comparisons performed by merge operations.",
		}, []string{"operation"}),
		mergeDuplicates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pedigreecore",
			Name:      "merge_duplicates_total",
			Help:      "Record pairs classified as duplicates by merge operations.",
		}, []string{"operation"}),
		simDraws: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pedigreecore",
			Name:      "sim_parent_draws_total",
			Help:      "Parent pair draws attempted by the simulator.",
		}),
		simRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pedigreecore",
			Name:      "sim_rejections_total",
			Help:      "Candidate parent pairs rejected by mating constraints.",
		}),
		simFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pedigreecore",
			Name:      "sim_fallbacks_total",
			Help:      "Offspring forced to unknown parents after the draw cap.",
		}),
	}
}

// Observe records a service operation outcome.
func (r *Registry) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.opDuration.WithLabelValues(operation).Observe(duration.Seconds())
	r.opResults.WithLabelValues(operation, status).Inc()
}

// ObserveMerge records the comparison counters of one merge run.
func (r *Registry) ObserveMerge(operation string, comparisons, duplicates int) {
	r.mergeComparisons.WithLabelValues(operation).Add(float64(comparisons))
	r.mergeDuplicates.WithLabelValues(operation).Add(float64(duplicates))
}

// ObserveSimulation records the draw counters of one simulation run.
func (r *Registry) ObserveSimulation(draws, rejections, fallbacks int) {
	r.simDraws.Add(float64(draws))
	r.simRejections.Add(float64(rejections))
	r.simFallbacks.Add(float64(fallbacks))
}
