package pgsql

import (
	"context"
	"encoding/json"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/SscSPs/finance_deal_ledger/internal/core/ports/collaborators"
)

// PgxAuditLog persists audit records into audit_log.
type PgxAuditLog struct {
	BaseRepository
}

func newPgxAuditLog(base BaseRepository) *PgxAuditLog {
	return &PgxAuditLog{BaseRepository: base}
}

var _ collaborators.AuditSink = (*PgxAuditLog)(nil)

func marshalState(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func (a *PgxAuditLog) Record(ctx context.Context, record collaborators.AuditRecord) error {
	before, err := marshalState(record.Before)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, apperrors.CodeInvalidInput, "failed to encode audit before state", err)
	}
	after, err := marshalState(record.After)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, apperrors.CodeInvalidInput, "failed to encode audit after state", err)
	}

	_, err = a.db(ctx).Exec(ctx, `
		INSERT INTO audit_log (action, entity_table, entity_id, before_state, after_state, actor_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);`,
		record.Action, record.EntityTable, record.EntityID, before, after, record.ActorID, record.OccurredAt)
	return mapError(err, "audit record", record.Action)
}
