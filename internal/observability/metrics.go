package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "walk_comfort"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	ObservationsConsumed prometheus.Counter
	ReportsProduced      prometheus.Counter
	TransformErrors      prometheus.Counter
	PipelineRunning      prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Comfort metrics.
	ComfortIndex   prometheus.Histogram
	StressCategory *prometheus.CounterVec // labels: category

	// Weather source metrics.
	WeatherRequests    *prometheus.CounterVec // labels: outcome={success,error}
	WeatherCache       *prometheus.CounterVec // labels: result={hit,miss,stale}
	WeatherAPIDuration prometheus.Histogram

	// Advisor metrics.
	AdvisorRequests    *prometheus.CounterVec   // labels: kind={routes,density}, outcome={success,error,empty}
	AdvisorAPIDuration *prometheus.HistogramVec // labels: kind={routes,density}
	AdvisorEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.ObservationsConsumed,
		m.ReportsProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.ComfortIndex,
		m.StressCategory,
		m.WeatherRequests,
		m.WeatherCache,
		m.WeatherAPIDuration,
		m.AdvisorRequests,
		m.AdvisorAPIDuration,
		m.AdvisorEnabled,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ObservationsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_consumed_total",
			Help:      "Total observation messages read from the source topic.",
		}),
		ReportsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_produced_total",
			Help:      "Total comfort reports written to the sinks.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total observations rejected during transformation.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		ComfortIndex: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "comfort_index",
			Help:      "Distribution of computed comfort index values, °C equivalent.",
			Buckets:   []float64{-13, 0, 9, 26, 32, 38},
		}),
		StressCategory: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stress_category_total",
			Help:      "Comfort estimates by stress category.",
		}, []string{"category"}),
		WeatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_requests_total",
			Help:      "Weather API requests by outcome.",
		}, []string{"outcome"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_total",
			Help:      "Weather cache lookups by result.",
		}, []string{"result"}),
		WeatherAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weather_api_duration_seconds",
			Help:      "Weather API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		AdvisorRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisor_requests_total",
			Help:      "Advisor API requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		AdvisorAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "advisor_api_duration_seconds",
			Help:      "Advisor API request duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"kind"}),
		AdvisorEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "advisor_enabled",
			Help:      "1 when the route and density advisor is enabled, 0 otherwise.",
		}),
	}
}

// ObserveComfort records a computed comfort estimate.
func (m *Metrics) ObserveComfort(value float64, category string) {
	m.ComfortIndex.Observe(value)
	m.StressCategory.WithLabelValues(category).Inc()
}
