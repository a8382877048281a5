package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "city_weather_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for one ETL run.
type Metrics struct {
	PipelineRunning prometheus.Gauge
	RunDuration     prometheus.Histogram

	// Extract metrics.
	SourceRecords  *prometheus.CounterVec // labels: source={covid,cities}, outcome={loaded,skipped}
	CitiesSelected prometheus.Gauge

	// Weather lookup metrics.
	WeatherLookups     *prometheus.CounterVec   // labels: strategy={name,coordinates}, outcome={hit,miss}
	WeatherCache       *prometheus.CounterVec   // labels: strategy={name,coordinates}, result={hit,miss}
	WeatherAPIDuration *prometheus.HistogramVec // labels: strategy={name,coordinates}
	CitiesDropped      prometheus.Counter

	// Load metrics.
	RowsJoined  prometheus.Gauge
	RowsWritten *prometheus.CounterVec // labels: sink={csv,xlsx,parquet,sqlite,kafka,mqtt}

	gatherer prometheus.Gatherer
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	reg := prometheus.NewRegistry()
	return newMetrics(reg, reg)
}

func newMetrics(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	m := &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a run is in progress, 0 otherwise.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete extract-resolve-join-load run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		SourceRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_records_total",
			Help:      "Reference records read from each source by outcome.",
		}, []string{"source", "outcome"}),
		CitiesSelected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cities_selected",
			Help:      "Cities selected for weather resolution in the last run.",
		}),
		WeatherLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_lookups_total",
			Help:      "Weather lookups by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_total",
			Help:      "Weather cache lookups by strategy and result.",
		}, []string{"strategy", "result"}),
		WeatherAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weather_api_duration_seconds",
			Help:      "Weather provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"strategy"}),
		CitiesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cities_dropped_total",
			Help:      "Cities with no weather after both lookups.",
		}),
		RowsJoined: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_joined",
			Help:      "Rows produced by the join in the last run.",
		}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows written by each sink.",
		}, []string{"sink"}),
		gatherer: g,
	}

	reg.MustRegister(
		m.PipelineRunning,
		m.RunDuration,
		m.SourceRecords,
		m.CitiesSelected,
		m.WeatherLookups,
		m.WeatherCache,
		m.WeatherAPIDuration,
		m.CitiesDropped,
		m.RowsJoined,
		m.RowsWritten,
	)

	return m
}

// WriteTextfile writes every gathered metric to path in the text exposition
// format, for node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
