package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "riskmap"

// Metrics holds the Prometheus counters, histograms, and gauges for loading
// and querying asset records.
type Metrics struct {
	// Load metrics.
	RowsParsed    prometheus.Counter
	RowsDropped   *prometheus.CounterVec // labels: reason={malformed_risk_factors,malformed_year,column_count,csv}
	Loads         *prometheus.CounterVec // labels: outcome={success,failure}
	LoadDuration  prometheus.Histogram
	RecordsStored prometheus.Gauge

	// Stream metrics.
	ChunksConsumed   prometheus.Counter
	ChunkErrors      prometheus.Counter
	RecordsPublished prometheus.Counter
	StreamRunning    prometheus.Gauge
	BatchSize        prometheus.Histogram

	// Query metrics.
	QueryDuration *prometheus.HistogramVec // labels: view={map,table}
	ViewCache     *prometheus.CounterVec   // labels: result={hit,miss}
	ControlEvents *prometheus.CounterVec   // labels: event={decade,filter_open,filter_close,filter_draft,sort}
}

func newMetrics(help bool) *Metrics {
	h := func(s string) string {
		if help {
			return s
		}
		return ""
	}
	return &Metrics{
		RowsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_parsed_total",
			Help:      h("Total CSV data rows converted into asset records."),
		}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      h("CSV data rows dropped during parsing, by reason."),
		}, []string{"reason"}),
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      h("CSV source loads by outcome."),
		}, []string{"outcome"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      h("Duration of fetching and parsing one CSV source."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RecordsStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_stored",
			Help:      h("Number of asset records held in memory."),
		}),
		ChunksConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_consumed_total",
			Help:      h("Total CSV chunks read from the chunk topic."),
		}),
		ChunkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_errors_total",
			Help:      h("Total CSV chunks skipped because they could not be read."),
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      h("Total parsed asset records written to the record topic."),
		}),
		StreamRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_running",
			Help:      h("1 when the chunk stream is active, 0 when shut down."),
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      h("Number of chunks per batch extracted from Kafka."),
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      h("Time to build a map or table view."),
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"view"}),
		ViewCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_cache_total",
			Help:      h("View cache lookups by result."),
		}, []string{"result"}),
		ControlEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_events_total",
			Help:      h("Accepted control changes by event."),
		}, []string{"event"}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.RowsParsed,
		m.RowsDropped,
		m.Loads,
		m.LoadDuration,
		m.RecordsStored,
		m.ChunksConsumed,
		m.ChunkErrors,
		m.RecordsPublished,
		m.StreamRunning,
		m.BatchSize,
		m.QueryDuration,
		m.ViewCache,
		m.ControlEvents,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}
