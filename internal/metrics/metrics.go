package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the instrumentation of the aggregation pipeline.
type Metrics struct {
	RunsTotal         prometheus.Counter
	RunFailures       prometheus.Counter
	FetchFailures     *prometheus.CounterVec
	ArticlesProcessed prometheus.Counter
	RunDuration       prometheus.Histogram
}

// New registers the pipeline metrics on the given registerer. Pass nil to
// use the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "finanzpuls_runs_total",
			Help: "Number of aggregation runs started.",
		}),
		RunFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "finanzpuls_run_failures_total",
			Help: "Number of aggregation runs that failed internally.",
		}),
		FetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "finanzpuls_source_fetch_failures_total",
			Help: "Number of per-source fetch failures, including timeouts.",
		}, []string{"source"}),
		ArticlesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "finanzpuls_articles_processed_total",
			Help: "Number of raw articles entering the scoring stage.",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "finanzpuls_run_duration_seconds",
			Help:    "Wall-clock duration of aggregation runs.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Nop returns metrics bound to a throwaway registry, for tests.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}
