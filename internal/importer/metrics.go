package importer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts import activity.
type Metrics struct {
	rows     *prometheus.CounterVec
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics registers the import collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		rows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gradtrack",
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Imported spreadsheet rows by final state.",
		}, []string{"state"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gradtrack",
			Subsystem: "import",
			Name:      "runs_total",
			Help:      "Import runs by outcome.",
		}, []string{"outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gradtrack",
			Subsystem: "import",
			Name:      "run_duration_seconds",
			Help:      "Wall time of import runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
}

func (m *Metrics) observeRow(state RowState) {
	if m == nil {
		return
	}
	m.rows.WithLabelValues(state.String()).Inc()
}

func (m *Metrics) observeRun(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.duration.Observe(seconds)
}
