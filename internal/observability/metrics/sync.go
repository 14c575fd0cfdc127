package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics tracks sync cycles per scope.
type SyncMetrics struct {
	cyclesTotal      *prometheus.CounterVec
	cycleDuration    *prometheus.HistogramVec
	rowsLoaded       *prometheus.GaugeVec
	fileParseErrors  *prometheus.CounterVec
	filesFetched     *prometheus.CounterVec
	lastSuccess      *prometheus.GaugeVec
	triggersRejected *prometheus.CounterVec
	collectors       []prometheus.Collector
}

// NewSyncMetrics creates the collectors and registers them on registry.
func NewSyncMetrics(registry prometheus.Registerer) (*SyncMetrics, error) {
	m := &SyncMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *SyncMetrics) initMetrics() {
	m.cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfsync_cycles_total",
			Help: "Total number of sync cycles by scope and outcome",
		},
		[]string{"scope", "outcome"},
	)

	m.cycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelfsync_cycle_duration_seconds",
			Help:    "Wall time of one scope sync cycle",
			Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount12),
		},
		[]string{"scope"},
	)

	m.rowsLoaded = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shelfsync_rows_loaded",
			Help: "Rows written by the last successful replace of a table",
		},
		[]string{"scope", "table"},
	)

	m.fileParseErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfsync_file_parse_errors_total",
			Help: "Input files skipped because they could not be parsed",
		},
		[]string{"scope", "kind"},
	)

	m.filesFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfsync_files_fetched_total",
			Help: "Files downloaded from the remote drop",
		},
		[]string{"scope", "kind"},
	)

	m.lastSuccess = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shelfsync_last_success_timestamp_seconds",
			Help: "Unix time of the last successful cycle",
		},
		[]string{"scope"},
	)

	m.triggersRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfsync_triggers_rejected_total",
			Help: "Run requests rejected because a run was already in progress",
		},
		[]string{"source"},
	)

	m.collectors = []prometheus.Collector{
		m.cyclesTotal,
		m.cycleDuration,
		m.rowsLoaded,
		m.fileParseErrors,
		m.filesFetched,
		m.lastSuccess,
		m.triggersRejected,
	}
}

// Describe implements the Collector interface
func (m *SyncMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *SyncMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordCycle records the outcome and duration of one scope cycle.
func (m *SyncMetrics) RecordCycle(scope, outcome string, duration time.Duration, finishedAt time.Time) {
	if m == nil {
		return
	}
	m.cyclesTotal.WithLabelValues(scope, outcome).Inc()
	m.cycleDuration.WithLabelValues(scope).Observe(duration.Seconds())
	if outcome == OutcomeSuccess {
		m.lastSuccess.WithLabelValues(scope).Set(float64(finishedAt.Unix()))
	}
}

// RecordRowsLoaded records the row count of a committed table replace.
func (m *SyncMetrics) RecordRowsLoaded(scope, table string, rows int) {
	if m == nil {
		return
	}
	m.rowsLoaded.WithLabelValues(scope, table).Set(float64(rows))
}

// RecordParseErrors adds skipped input files of kind ("products", "planograms").
func (m *SyncMetrics) RecordParseErrors(scope, kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.fileParseErrors.WithLabelValues(scope, kind).Add(float64(n))
}

// RecordFilesFetched adds downloaded files of kind.
func (m *SyncMetrics) RecordFilesFetched(scope, kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.filesFetched.WithLabelValues(scope, kind).Add(float64(n))
}

// RecordTriggerRejected counts a run request refused while another run was active.
func (m *SyncMetrics) RecordTriggerRejected(source string) {
	if m == nil {
		return
	}
	m.triggersRejected.WithLabelValues(source).Inc()
}
