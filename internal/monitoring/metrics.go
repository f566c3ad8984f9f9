// Package monitoring exposes prometheus metrics for analysis runs.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	RecordsProcessed prometheus.Counter
	AnomaliesFlagged prometheus.Counter
	RunDuration      prometheus.Histogram
}

// NewMetrics registers the run metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fraudscope_runs_total",
			Help: "Analysis runs by outcome (ok, rejected, error).",
		}, []string{"status"}),
		RecordsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "fraudscope_records_processed_total",
			Help: "Transaction records scored across all runs.",
		}),
		AnomaliesFlagged: factory.NewCounter(prometheus.CounterOpts{
			Name: "fraudscope_anomalies_flagged_total",
			Help: "Records flagged anomalous across all runs.",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fraudscope_run_duration_seconds",
			Help:    "Wall time of one analysis run.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
}

// ObserveRun records the outcome of one run.
func (m *Metrics) ObserveRun(status string, records, anomalies int, elapsed time.Duration) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RecordsProcessed.Add(float64(records))
	m.AnomaliesFlagged.Add(float64(anomalies))
	m.RunDuration.Observe(elapsed.Seconds())
}
