package ingestion

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/claimscore/claimscore/pkg/claim"
	"github.com/claimscore/claimscore/pkg/scoring"
)

// Metrics records pipeline counters for the service.
type Metrics struct {
	batches       *prometheus.CounterVec
	claimsScored  *prometheus.CounterVec
	batchDuration prometheus.Histogram
}

// NewMetrics registers the pipeline metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		batches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claimscore",
			Name:      "batches_total",
			Help:      "Batches processed, by final status.",
		}, []string{"status"}),
		claimsScored: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claimscore",
			Name:      "claims_scored_total",
			Help:      "Claims scored, by fraud label.",
		}, []string{"label"}),
		batchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "claimscore",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of a batch from load to commit.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
}

func (m *Metrics) observe(status string, start time.Time, result *scoring.BatchResult) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(status).Inc()
	m.batchDuration.Observe(time.Since(start).Seconds())
	if result == nil {
		return
	}
	for _, l := range claim.Labels {
		m.claimsScored.WithLabelValues(string(l)).Add(float64(result.Summary.ByLabel[l]))
	}
}
