package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry         *prometheus.Registry
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  prometheus.Histogram
	BlockRetries     prometheus.Counter
	ErrorsTotal      *prometheus.CounterVec
	RacesTotal       *prometheus.CounterVec
	RowsWrittenTotal prometheus.Counter
	ConsecutiveBlock prometheus.Gauge
	BackoffSeconds   prometheus.Gauge
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "racescrape_requests_total",
			Help: "HTTP attempts issued, by outcome.",
		},
		[]string{"outcome"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "racescrape_request_duration_seconds",
			Help:    "HTTP attempt latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	blockRetries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "racescrape_block_retries_total",
			Help: "Attempts retried after a block status.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "racescrape_errors_total",
			Help: "Per-URL failures by error type.",
		},
		[]string{"error_type"},
	)
	races := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "racescrape_races_total",
			Help: "Races processed, by result.",
		},
		[]string{"result"},
	)
	rows := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "racescrape_rows_written_total",
			Help: "Runner rows written to the output.",
		},
	)
	consecutive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "racescrape_consecutive_blocks",
			Help: "Current run of consecutive blocked URLs.",
		},
	)
	backoff := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "racescrape_backoff_seconds",
			Help: "Delay applied before the next request.",
		},
	)

	registry.MustRegister(requests, requestDuration, blockRetries, errorsTotal, races, rows, consecutive, backoff)

	return &Metrics{
		Registry:         registry,
		RequestsTotal:    requests,
		RequestDuration:  requestDuration,
		BlockRetries:     blockRetries,
		ErrorsTotal:      errorsTotal,
		RacesTotal:       races,
		RowsWrittenTotal: rows,
		ConsecutiveBlock: consecutive,
		BackoffSeconds:   backoff,
	}
}

// IncRequest increments the requests counter for an outcome label.
func (m *Metrics) IncRequest(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records an HTTP attempt duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncBlockRetry increments the block-retry counter.
func (m *Metrics) IncBlockRetry() {
	if m == nil {
		return
	}
	m.BlockRetries.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncRace counts one processed race by result (success, void, failed).
func (m *Metrics) IncRace(result string) {
	if m == nil {
		return
	}
	m.RacesTotal.WithLabelValues(result).Inc()
}

// AddRows adds to the rows-written counter.
func (m *Metrics) AddRows(n int) {
	if m == nil {
		return
	}
	m.RowsWrittenTotal.Add(float64(n))
}

// SetBackoff publishes the backoff state.
func (m *Metrics) SetBackoff(consecutive int, delay time.Duration) {
	if m == nil {
		return
	}
	m.ConsecutiveBlock.Set(float64(consecutive))
	m.BackoffSeconds.Set(delay.Seconds())
}
