package observability

import (
	"errors"
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Metrics holds the Prometheus collectors of the deal ledger.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// --- Engine operations ---
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// --- Money flow ---
	PaymentsAllocated *prometheus.CounterVec
	EarlyRepayments   prometheus.Counter
	Disbursed         prometheus.Counter

	// --- Schedule & collateral ---
	ScheduleRegenerations *prometheus.CounterVec
	CollateralLTV         prometheus.Histogram
	LTVBreaches           prometheus.Counter
	AuditFailures         *prometheus.CounterVec

	// --- HTTP ---
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics registers every collector with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deal_ledger",
			Name:      "operations_total",
			Help:      "Engine operations by name and outcome kind.",
		}, []string{"operation", "outcome"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "deal_ledger",
			Name:      "operation_duration_seconds",
			Help:      "Engine operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		PaymentsAllocated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deal_ledger",
			Name:      "payments_allocated_amount_total",
			Help:      "Payment amounts allocated to schedule components.",
		}, []string{"component"}),
		EarlyRepayments: f.NewCounter(prometheus.CounterOpts{
			Namespace: "deal_ledger",
			Name:      "early_repayment_amount_total",
			Help:      "Payment remainders booked as early repayment.",
		}),
		Disbursed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "deal_ledger",
			Name:      "disbursed_amount_total",
			Help:      "Principal and additional draws paid out.",
		}),
		ScheduleRegenerations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deal_ledger",
			Name:      "schedule_regenerations_total",
			Help:      "Schedule regenerations by trigger.",
		}, []string{"trigger"}),
		CollateralLTV: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "deal_ledger",
			Name:      "collateral_ltv_percent",
			Help:      "Distribution of evaluated loan-to-value percentages.",
			Buckets:   []float64{10, 25, 50, 60, 70, 80, 90, 100, 125, 150},
		}),
		LTVBreaches: f.NewCounter(prometheus.CounterOpts{
			Namespace: "deal_ledger",
			Name:      "collateral_ltv_breaches_total",
			Help:      "Evaluations above the alert threshold.",
		}),
		AuditFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deal_ledger",
			Name:      "audit_failures_total",
			Help:      "Audit records that could not be delivered.",
		}, []string{"action"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deal_ledger",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "deal_ledger",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveOperation counts an operation outcome and its latency.
func (m *Metrics) ObserveOperation(operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, Outcome(err)).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// AddPayment records allocated interest, principal and early repayment amounts.
func (m *Metrics) AddPayment(interest, principal, early decimal.Decimal) {
	if m == nil {
		return
	}
	m.PaymentsAllocated.WithLabelValues("interest").Add(interest.InexactFloat64())
	m.PaymentsAllocated.WithLabelValues("principal").Add(principal.InexactFloat64())
	m.EarlyRepayments.Add(early.InexactFloat64())
}

// AddDisbursed records money paid out.
func (m *Metrics) AddDisbursed(amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.Disbursed.Add(amount.InexactFloat64())
}

// IncRegeneration counts a schedule regeneration.
func (m *Metrics) IncRegeneration(trigger string) {
	if m == nil {
		return
	}
	m.ScheduleRegenerations.WithLabelValues(trigger).Inc()
}

// ObserveLTV records an evaluated LTV and whether it breached the threshold.
func (m *Metrics) ObserveLTV(ltv decimal.Decimal, breached bool) {
	if m == nil {
		return
	}
	m.CollateralLTV.Observe(ltv.InexactFloat64())
	if breached {
		m.LTVBreaches.Inc()
	}
}

// IncAuditFailure counts an undelivered audit record.
func (m *Metrics) IncAuditFailure(action string) {
	if m == nil {
		return
	}
	m.AuditFailures.WithLabelValues(action).Inc()
}

// Outcome maps an error to a low-cardinality label.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, apperrors.ErrInternal) {
		return "internal"
	}
	return apperrors.KindName(err)
}
