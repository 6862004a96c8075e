package audit

import (
	"context"

	"github.com/SscSPs/finance_deal_ledger/internal/core/ports/collaborators"
)

// posthogEnqueuer is satisfied by utils.PosthogClientWrapper.
type posthogEnqueuer interface {
	Enqueue(distinctID string, event string, properties map[string]any) error
}

// PosthogSink captures audit records as product analytics events. Only identifiers are
// sent; entity snapshots stay in the audit log.
type PosthogSink struct {
	client posthogEnqueuer
}

var _ collaborators.AuditSink = (*PosthogSink)(nil)

func NewPosthogSink(client posthogEnqueuer) *PosthogSink {
	return &PosthogSink{client: client}
}

func (s *PosthogSink) Record(_ context.Context, record collaborators.AuditRecord) error {
	distinctID := record.ActorID
	if distinctID == "" {
		distinctID = "system"
	}
	return s.client.Enqueue(distinctID, record.Action, map[string]any{
		"entity_table": record.EntityTable,
		"entity_id":    record.EntityID,
		"occurred_at":  record.OccurredAt,
	})
}
