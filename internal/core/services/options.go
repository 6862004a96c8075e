package services

import (
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/core/ports/collaborators"
	"github.com/SscSPs/finance_deal_ledger/internal/observability"
	"github.com/shopspring/decimal"
)

// serviceOptions carries cross-cutting settings shared by every service in the container.
type serviceOptions struct {
	auditSink                collaborators.AuditSink
	metrics                  *observability.Metrics
	clock                    func() time.Time
	closeRequiresZeroBalance bool
	ltvAlertThreshold        decimal.Decimal
}

// ServiceOption is a functional option for configuring the services
type ServiceOption func(*serviceOptions)

// WithAuditSink replaces the audit sink taken from the repository provider.
func WithAuditSink(sink collaborators.AuditSink) ServiceOption {
	return func(o *serviceOptions) {
		o.auditSink = sink
	}
}

// WithMetrics enables prometheus instrumentation.
func WithMetrics(m *observability.Metrics) ServiceOption {
	return func(o *serviceOptions) {
		o.metrics = m
	}
}

// WithClock overrides the wall clock used for dates and audit timestamps.
func WithClock(clock func() time.Time) ServiceOption {
	return func(o *serviceOptions) {
		o.clock = clock
	}
}

// WithCloseRequiresZeroBalance makes CloseDeal fail while principal is outstanding.
func WithCloseRequiresZeroBalance(required bool) ServiceOption {
	return func(o *serviceOptions) {
		o.closeRequiresZeroBalance = required
	}
}

// WithLTVAlertThreshold sets the LTV percentage above which batch evaluation raises alerts.
// Zero disables alerts.
func WithLTVAlertThreshold(threshold decimal.Decimal) ServiceOption {
	return func(o *serviceOptions) {
		o.ltvAlertThreshold = threshold
	}
}
