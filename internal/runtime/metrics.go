package runtime

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llamad",
			Subsystem: "runtime",
			Name:      "loads_total",
			Help:      "Model load attempts by outcome",
		},
		[]string{"status"},
	)

	unloadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "llamad",
			Subsystem: "runtime",
			Name:      "unloads_total",
			Help:      "Explicit model unloads",
		},
	)

	runningModels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "llamad",
			Subsystem: "runtime",
			Name:      "running_models",
			Help:      "Models currently resident in memory",
		},
	)

	loadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "llamad",
			Subsystem: "runtime",
			Name:      "load_duration_seconds",
			Help:      "Duration of backend model loads in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	inferenceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "llamad",
			Subsystem: "runtime",
			Name:      "inference_duration_seconds",
			Help:      "Duration of backend inference calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind", "status"},
	)
)

func init() {
	prometheus.MustRegister(loadsTotal, unloadsTotal, runningModels, loadDuration, inferenceDuration)
}
