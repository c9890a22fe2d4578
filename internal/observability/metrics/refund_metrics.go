package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RefundMetrics tracks adjudication outcomes and settlement health.
type RefundMetrics struct {
	decisions            *prometheus.CounterVec
	refundsIssued        *prometheus.CounterVec
	settlementAttempts   *prometheus.CounterVec
	settlementDuration   prometheus.Histogram
	notificationFailures prometheus.Counter
	unsettledBacklog     prometheus.Gauge
}

var (
	refundMetricsOnce sync.Once
	refundMetrics     *RefundMetrics
)

// Refund returns the process-wide refund metrics set.
func Refund() *RefundMetrics {
	return RefundWithConfig(Config{})
}

// RefundWithConfig initializes the refund metrics set on first use.
func RefundWithConfig(cfg Config) *RefundMetrics {
	refundMetricsOnce.Do(func() {
		refundMetrics = newRefundMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return refundMetrics
}

// ResetRefundMetricsForTest clears the singleton between test registries.
func ResetRefundMetricsForTest() {
	refundMetricsOnce = sync.Once{}
	refundMetrics = nil
}

func newRefundMetrics(registerer prometheus.Registerer, cfg Config) *RefundMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "arbiter"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	decisions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "arbiter_refund_decisions_total",
			Help:        "Refund policy decisions by reason code.",
			ConstLabels: constLabels,
		},
		[]string{"reason"},
	)

	refundsIssued := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "arbiter_refunds_issued_total",
			Help:        "Refund rows created, by applied rule.",
			ConstLabels: constLabels,
		},
		[]string{"rule"},
	)

	settlementAttempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "arbiter_settlement_attempts_total",
			Help:        "Settlement attempts by outcome.",
			ConstLabels: constLabels,
		},
		[]string{"outcome"}, // settled | noop | rejected | unavailable
	)

	settlementDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "arbiter_settlement_duration_seconds",
			Help:        "Wall time of processor settlement calls.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			ConstLabels: constLabels,
		},
	)

	notificationFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "arbiter_notification_failures_total",
			Help:        "Best-effort refund notices that could not be delivered.",
			ConstLabels: constLabels,
		},
	)

	unsettledBacklog := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:        "arbiter_unsettled_refunds_total",
			Help:        "Refunds awaiting processor settlement.",
			ConstLabels: constLabels,
		},
	)

	registerer.MustRegister(
		decisions,
		refundsIssued,
		settlementAttempts,
		settlementDuration,
		notificationFailures,
		unsettledBacklog,
	)

	return &RefundMetrics{
		decisions:            decisions,
		refundsIssued:        refundsIssued,
		settlementAttempts:   settlementAttempts,
		settlementDuration:   settlementDuration,
		notificationFailures: notificationFailures,
		unsettledBacklog:     unsettledBacklog,
	}
}

func (m *RefundMetrics) IncDecision(reason string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(reason).Inc()
}

func (m *RefundMetrics) IncRefundIssued(rule string) {
	if m == nil {
		return
	}
	m.refundsIssued.WithLabelValues(rule).Inc()
}

func (m *RefundMetrics) IncSettlementAttempt(outcome string) {
	if m == nil {
		return
	}
	m.settlementAttempts.WithLabelValues(outcome).Inc()
}

func (m *RefundMetrics) ObserveSettlementDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.settlementDuration.Observe(d.Seconds())
}

func (m *RefundMetrics) IncNotificationFailure() {
	if m == nil {
		return
	}
	m.notificationFailures.Inc()
}

func (m *RefundMetrics) SetUnsettledBacklog(value int) {
	if m == nil {
		return
	}
	m.unsettledBacklog.Set(float64(value))
}
