package download

import "github.com/prometheus/client_golang/prometheus"

var (
	downloadBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "llamad",
			Subsystem: "download",
			Name:      "bytes_total",
			Help:      "Total bytes downloaded across all fetches",
		},
	)

	downloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llamad",
			Subsystem: "download",
			Name:      "fetches_total",
			Help:      "Completed fetch attempts by outcome",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(downloadBytes, downloadsTotal)
}
