// Package audit holds the AuditSink implementations the engine fans records out to.
package audit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/SscSPs/finance_deal_ledger/internal/core/ports/collaborators"
	"github.com/SscSPs/finance_deal_ledger/internal/middleware"
)

// LogSink writes every record to the request logger.
type LogSink struct{}

var _ collaborators.AuditSink = LogSink{}

func (LogSink) Record(ctx context.Context, record collaborators.AuditRecord) error {
	middleware.GetLoggerFromCtx(ctx).Info("audit",
		slog.String("action", record.Action),
		slog.String("entity_table", record.EntityTable),
		slog.String("entity_id", record.EntityID),
		slog.String("actor_id", record.ActorID),
		slog.Time("occurred_at", record.OccurredAt),
	)
	return nil
}

// MultiSink delivers a record to every sink and joins their errors.
type MultiSink struct {
	sinks []collaborators.AuditSink
}

var _ collaborators.AuditSink = (*MultiSink)(nil)

// NewMultiSink drops nil sinks.
func NewMultiSink(sinks ...collaborators.AuditSink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *MultiSink) Len() int {
	return len(m.sinks)
}

func (m *MultiSink) Record(ctx context.Context, record collaborators.AuditRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Record(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
