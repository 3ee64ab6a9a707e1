package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters for the dataset retrieval and
// aggregation pipeline.
type Metrics struct {
	CacheHits      *prometheus.CounterVec // labels: dataset
	CacheMisses    *prometheus.CounterVec // labels: dataset
	RemoteFetches  *prometheus.CounterVec // labels: dataset, outcome={success,error,missing}
	FetchRetries   prometheus.Counter
	DegradedStocks prometheus.Counter
	RowsWritten    *prometheus.CounterVec // labels: format
	RowsPublished  prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "county_loads",
			Name:      "cache_hits_total",
			Help:      "Dataset requests served from the local cache.",
		}, []string{"dataset"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "county_loads",
			Name:      "cache_misses_total",
			Help:      "Dataset requests that required a remote fetch.",
		}, []string{"dataset"}),
		RemoteFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "county_loads",
			Name:      "remote_fetches_total",
			Help:      "Remote HTTP fetches by dataset and outcome.",
		}, []string{"dataset", "outcome"}),
		FetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "county_loads",
			Name:      "fetch_retries_total",
			Help:      "Retried fetch attempts against the housing-units source.",
		}),
		DegradedStocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "county_loads",
			Name:      "degraded_stock_lookups_total",
			Help:      "Stock driver lookups that degraded to NaN (ambiguous or missing county).",
		}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "county_loads",
			Name:      "rows_written_total",
			Help:      "Output rows serialized by format.",
		}, []string{"format"}),
		RowsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "county_loads",
			Name:      "rows_published_total",
			Help:      "Consolidated rows published to the Kafka sink.",
		}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CacheHits,
		m.CacheMisses,
		m.RemoteFetches,
		m.FetchRetries,
		m.DegradedStocks,
		m.RowsWritten,
		m.RowsPublished,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
