package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_ObserveOperation(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveOperation("record_payment", time.Now(), nil)
	m.ObserveOperation("record_payment", time.Now(), apperrors.NewConflict(apperrors.CodePauseOverlap, "x"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("record_payment", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("record_payment", "conflict")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("x", time.Now(), nil)
		m.AddPayment(decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.Zero)
		m.ObserveLTV(decimal.NewFromInt(50), true)
	})
}

func TestMetrics_AddPayment(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddPayment(decimal.RequireFromString("10.5"), decimal.NewFromInt(100), decimal.NewFromInt(5))

	assert.Equal(t, 10.5, testutil.ToFloat64(m.PaymentsAllocated.WithLabelValues("interest")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.PaymentsAllocated.WithLabelValues("principal")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.EarlyRepayments))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "internal", Outcome(errors.New("boom")))
	assert.Equal(t, "validation", Outcome(apperrors.NewValidation("X", "bad")))
}
