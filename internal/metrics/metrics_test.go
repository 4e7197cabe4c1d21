package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

var errEstimate = errors.New("emulation failed")

func TestMetrics_FeeEstimates(t *testing.T) {
	t.Parallel()
	m := New(prometheus.NewRegistry())

	m.ObserveFeeEstimate("ton", 100*time.Millisecond, nil)
	m.ObserveFeeEstimate("ton", 50*time.Millisecond, errEstimate)
	m.ObserveFeeEstimate("tron", 10*time.Millisecond, nil)

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.feeEstimatesTotal.WithLabelValues("ton", OutcomeSuccess)), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.feeEstimatesTotal.WithLabelValues("ton", OutcomeError)), 0.001)
	assert.Equal(t, 2, testutil.CollectAndCount(m.feeEstimateDuration))
}

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()
	m := New(prometheus.NewRegistry())

	m.StaleDiscarded(StaleFee)
	m.StaleDiscarded(StaleFee)
	m.StepTransition("recipient", "amount")
	m.ExecutionOutcome("ton", OutcomeCancelled)
	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordCacheMiss()

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.staleResultsTotal.WithLabelValues(StaleFee)), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.stepTransitions.WithLabelValues("recipient", "amount")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.executionsTotal.WithLabelValues("ton", OutcomeCancelled)), 0.001)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.cacheLookupsTotal.WithLabelValues("miss")), 0.001)
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveFeeEstimate("ton", time.Second, nil)
		m.StaleDiscarded(StaleRecipient)
		m.StepTransition("amount", "confirm")
		m.ExecutionOutcome("tron", OutcomeSuccess)
		m.RecordCacheHit()
		m.RecordCacheMiss()
	})
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
