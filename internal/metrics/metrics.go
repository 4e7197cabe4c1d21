// Package metrics provides Prometheus instrumentation for the transfer flow.
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "remit"

// Outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// Stale result kinds.
const (
	StaleFee       = "fee"
	StaleRecipient = "recipient"
)

// Metrics holds the collectors registered for one process.
type Metrics struct {
	feeEstimateDuration *prometheus.HistogramVec
	feeEstimatesTotal   *prometheus.CounterVec
	staleResultsTotal   *prometheus.CounterVec
	stepTransitions     *prometheus.CounterVec
	executionsTotal     *prometheus.CounterVec
	cacheLookupsTotal   *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		feeEstimateDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fee_estimate_duration_seconds",
			Help:      "Duration of fee emulation requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"chain"}),
		feeEstimatesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fee_estimates_total",
			Help:      "Fee emulation requests by outcome",
		}, []string{"chain", "outcome"}),
		staleResultsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_results_discarded_total",
			Help:      "Async results dropped because a newer request superseded them",
		}, []string{"kind"}),
		stepTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wizard_step_transitions_total",
			Help:      "Wizard step transitions",
		}, []string{"from", "to"}),
		executionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Transfer executions by outcome",
		}, []string{"chain", "outcome"}),
		cacheLookupsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_cache_lookups_total",
			Help:      "Balance cache lookups by result",
		}, []string{"result"}),
	}
}

// ObserveFeeEstimate records one fee emulation call.
func (m *Metrics) ObserveFeeEstimate(chain string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.feeEstimateDuration.WithLabelValues(chain).Observe(d.Seconds())
	m.feeEstimatesTotal.WithLabelValues(chain, outcome(err)).Inc()
}

// StaleDiscarded records a superseded result that was not applied.
func (m *Metrics) StaleDiscarded(kind string) {
	if m == nil {
		return
	}
	m.staleResultsTotal.WithLabelValues(kind).Inc()
}

// StepTransition records a wizard step change.
func (m *Metrics) StepTransition(from, to string) {
	if m == nil {
		return
	}
	m.stepTransitions.WithLabelValues(from, to).Inc()
}

// ExecutionOutcome records the terminal outcome of a transfer.
func (m *Metrics) ExecutionOutcome(chain, result string) {
	if m == nil {
		return
	}
	m.executionsTotal.WithLabelValues(chain, result).Inc()
}

// RecordCacheHit records a balance cache hit.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.cacheLookupsTotal.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a balance cache miss.
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.cacheLookupsTotal.WithLabelValues("miss").Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
