package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/core/ports/collaborators"
	"github.com/SscSPs/finance_deal_ledger/internal/middleware"
	"github.com/SscSPs/finance_deal_ledger/internal/observability"
)

// BaseService provides common functionality for all services
type BaseService struct {
	auditSink collaborators.AuditSink
	metrics   *observability.Metrics
	clock     func() time.Time
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	s.GetLogger(ctx).Error(msg, args...)
}

// LogWarn logs a warning message with consistent formatting
func (s *BaseService) LogWarn(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Warn(msg, keyvals...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// now returns the service clock in UTC.
func (s *BaseService) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}

// today is the current calendar day of the service clock.
func (s *BaseService) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// track starts timing an operation; the returned func records its outcome from *errp.
//
//	defer s.track("record_payment", &err)()
func (s *BaseService) track(operation string, errp *error) func() {
	started := time.Now()
	return func() {
		s.metrics.ObserveOperation(operation, started, *errp)
	}
}

// recordAudit delivers audit records after the business transaction committed.
// A failing sink is logged and counted, never returned.
func (s *BaseService) recordAudit(ctx context.Context, records ...collaborators.AuditRecord) {
	if s.auditSink == nil {
		return
	}
	for _, rec := range records {
		if rec.OccurredAt.IsZero() {
			rec.OccurredAt = s.now()
		}
		if err := s.auditSink.Record(ctx, rec); err != nil {
			s.LogError(ctx, err, "Failed to record audit entry",
				slog.String("action", rec.Action),
				slog.String("entity_table", rec.EntityTable),
				slog.String("entity_id", rec.EntityID))
			s.metrics.IncAuditFailure(rec.Action)
		}
	}
}
