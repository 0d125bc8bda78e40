package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for loading and querying.
type Metrics struct {
	Queries            *prometheus.CounterVec   // labels: operation, outcome
	QueryDuration      *prometheus.HistogramVec // labels: operation
	SourceLoadDuration *prometheus.HistogramVec // labels: source
	CorpusRecords      prometheus.Gauge
	CorpusSites        prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates all metrics and registers them with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.Queries,
		m.QueryDuration,
		m.SourceLoadDuration,
		m.CorpusRecords,
		m.CorpusSites,
	)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so tests can build
// as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aircheck",
			Name:      "queries_total",
			Help:      "Queries answered, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aircheck",
			Name:      "query_duration_seconds",
			Help:      "Time spent answering a query.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"operation"}),
		SourceLoadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aircheck",
			Name:      "source_load_duration_seconds",
			Help:      "Time spent reading and normalizing one source.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		CorpusRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aircheck",
			Name:      "corpus_records",
			Help:      "Measurement records in the loaded corpus.",
		}),
		CorpusSites: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aircheck",
			Name:      "corpus_sites",
			Help:      "Distinct sites in the loaded corpus.",
		}),
	}
}

// ObserveQuery records one query. A nil receiver is a no-op.
func (m *Metrics) ObserveQuery(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Queries.WithLabelValues(operation, outcome).Inc()
	m.QueryDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveLoad records the duration of one source load. A nil receiver is a no-op.
func (m *Metrics) ObserveLoad(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.SourceLoadDuration.WithLabelValues(source).Observe(d.Seconds())
}

// SetCorpus publishes corpus size gauges. A nil receiver is a no-op.
func (m *Metrics) SetCorpus(records, sites int) {
	if m == nil {
		return
	}
	m.CorpusRecords.Set(float64(records))
	m.CorpusSites.Set(float64(sites))
}
