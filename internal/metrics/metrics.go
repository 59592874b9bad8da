// Package metrics exposes Prometheus collectors for actions and chain calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dappdash"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the collectors of one process. A nil *Metrics records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	actionCounter  *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	chainCalls     *prometheus.CounterVec
	receiptWait    prometheus.Histogram
	rateLimited    prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		actionCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Total number of dashboard actions by outcome",
		}, []string{"action", "outcome"}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Action duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"action"}),
		chainCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chain_calls_total",
			Help:      "Total number of contract calls by kind and outcome",
		}, []string{"kind", "method", "outcome"}),
		receiptWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "receipt_wait_seconds",
			Help:      "Time spent waiting for transaction receipts",
			Buckets:   prometheus.LinearBuckets(0.5, 1, 15),
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		}),
	}
	m.registry.MustRegister(
		m.actionCounter,
		m.actionDuration,
		m.chainCalls,
		m.receiptWait,
		m.rateLimited,
		collectors.NewGoCollector(),
	)
	return m
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// TrackAction records one action run that started at start.
func (m *Metrics) TrackAction(action string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.actionCounter.WithLabelValues(action, outcome(err)).Inc()
	m.actionDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
}

// TrackChainCall records a contract call. kind is "get" or "post".
func (m *Metrics) TrackChainCall(kind, method string, err error) {
	if m == nil {
		return
	}
	m.chainCalls.WithLabelValues(kind, method, outcome(err)).Inc()
}

// TrackReceiptWait records how long a receipt took to appear.
func (m *Metrics) TrackReceiptWait(start time.Time) {
	if m == nil {
		return
	}
	m.receiptWait.Observe(time.Since(start).Seconds())
}

// RateLimited counts a rejected request.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
