package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSyncMetrics(t *testing.T) *SyncMetrics {
	t.Helper()
	m, err := NewSyncMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestRecordCycle(t *testing.T) {
	t.Parallel()
	m := newTestSyncMetrics(t)

	finished := time.Unix(1_700_000_000, 0)
	m.RecordCycle("189", OutcomeSuccess, 3*time.Second, finished)
	m.RecordCycle("189", OutcomeFailure, time.Second, finished.Add(time.Hour))
	m.RecordCycle("620", OutcomeSuccess, time.Second, finished)

	assert.InDelta(t, 1, testutil.ToFloat64(m.cyclesTotal.WithLabelValues("189", OutcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.cyclesTotal.WithLabelValues("189", OutcomeFailure)), 0)
	// a failed cycle does not move the last-success timestamp
	assert.InDelta(t, float64(finished.Unix()), testutil.ToFloat64(m.lastSuccess.WithLabelValues("189")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.cycleDuration))
}

func TestRecordRowsAndErrors(t *testing.T) {
	t.Parallel()
	m := newTestSyncMetrics(t)

	m.RecordRowsLoaded("189", "products", 120)
	m.RecordRowsLoaded("189", "products", 80)
	m.RecordParseErrors("189", "planograms", 2)
	m.RecordParseErrors("189", "planograms", 0)
	m.RecordFilesFetched("189", "planograms", 5)
	m.RecordTriggerRejected("http")

	assert.InDelta(t, 80, testutil.ToFloat64(m.rowsLoaded.WithLabelValues("189", "products")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.fileParseErrors.WithLabelValues("189", "planograms")), 0)
	assert.InDelta(t, 5, testutil.ToFloat64(m.filesFetched.WithLabelValues("189", "planograms")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.triggersRejected.WithLabelValues("http")), 0)
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()
	var m *SyncMetrics
	assert.NotPanics(t, func() {
		m.RecordCycle("189", OutcomeSuccess, time.Second, time.Now())
		m.RecordRowsLoaded("189", "products", 1)
		m.RecordParseErrors("189", "products", 1)
		m.RecordFilesFetched("189", "products", 1)
		m.RecordTriggerRejected("cron")
	})
}

func TestDoubleRegistrationFails(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	_, err := NewSyncMetrics(registry)
	require.NoError(t, err)
	_, err = NewSyncMetrics(registry)
	assert.Error(t, err)
}
