package memory

import (
	"context"

	"github.com/SscSPs/finance_deal_ledger/internal/core/ports/collaborators"
)

var _ collaborators.AuditSink = (*Store)(nil)

func (s *Store) Record(ctx context.Context, record collaborators.AuditRecord) error {
	defer s.lock(ctx)()
	s.audit = append(s.audit, record)
	return nil
}

// AuditRecords returns a copy of every recorded audit entry.
func (s *Store) AuditRecords() []collaborators.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]collaborators.AuditRecord(nil), s.audit...)
}
