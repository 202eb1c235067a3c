package performance

import "github.com/prometheus/client_golang/prometheus"

var recordsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rotinas_performance_records_total",
		Help: "Performance records stored, by status.",
	},
	[]string{"status"},
)

var publishFailuresTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "rotinas_performance_events_publish_failures_total",
		Help: "Performance events that could not be published.",
	},
)

func init() {
	prometheus.MustRegister(recordsTotal, publishFailuresTotal)
}
