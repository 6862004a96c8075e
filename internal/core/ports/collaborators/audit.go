package collaborators

import (
	"context"
	"time"
)

// AuditRecord describes one state change for the audit trail.
type AuditRecord struct {
	Action      string    `json:"action"`
	EntityTable string    `json:"entityTable"`
	EntityID    string    `json:"entityID"`
	Before      any       `json:"before,omitempty"`
	After       any       `json:"after,omitempty"`
	ActorID     string    `json:"actorID,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// AuditSink receives audit records. Callers treat it as best effort: an error is
// logged and never fails the operation that produced the record.
type AuditSink interface {
	Record(ctx context.Context, record AuditRecord) error
}
