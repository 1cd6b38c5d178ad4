package sequencer

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the sequencer's prometheus instrumentation.
type Metrics struct {
	callsTotal   *prometheus.CounterVec
	revertsTotal *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
}

// NewMetrics constructs and registers the sequencer metrics against the
// given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		callsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "croc",
			Subsystem: "sequencer",
			Name:      "calls_total",
			Help:      "Completed orchestrated calls by operation.",
		}, []string{"op"}),
		revertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "croc",
			Subsystem: "sequencer",
			Name:      "reverts_total",
			Help:      "Orchestrated calls aborted without commit, by operation.",
		}, []string{"op"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "croc",
			Subsystem: "sequencer",
			Name:      "call_duration_seconds",
			Help:      "Wall time per orchestrated call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(m.callsTotal, m.revertsTotal, m.callDuration)
	return m
}
