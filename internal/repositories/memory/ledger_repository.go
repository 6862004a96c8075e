package memory

import (
	"context"
	"sort"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finance_deal_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/finance_deal_ledger/internal/utils/pagination"
)

var _ portsrepo.LedgerRepositoryFacade = (*Store)(nil)

func (s *Store) ListLedgerEntriesByDeal(ctx context.Context, dealID string) ([]domain.LedgerEntry, error) {
	defer s.lock(ctx)()
	return s.dealEntries(dealID), nil
}

func (s *Store) ListLedgerEntriesPage(ctx context.Context, dealID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error) {
	defer s.lock(ctx)()
	entries := s.dealEntries(dealID)

	if nextToken != nil && *nextToken != "" {
		afterAt, afterID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.Wrap(apperrors.ErrValidation, apperrors.CodeInvalidInput, "invalid next token", err)
		}
		start := sort.Search(len(entries), func(i int) bool {
			e := entries[i]
			return e.OccurredAt.After(afterAt) || (e.OccurredAt.Equal(afterAt) && e.EntryID > afterID)
		})
		entries = entries[start:]
	}

	if limit <= 0 || len(entries) <= limit {
		return entries, nil, nil
	}
	page := entries[:limit]
	last := page[len(page)-1]
	token := pagination.EncodeToken(last.OccurredAt, last.EntryID)
	return page, &token, nil
}

func (s *Store) FindLedgerEntriesByPaymentID(ctx context.Context, dealID, paymentID string) ([]domain.LedgerEntry, error) {
	defer s.lock(ctx)()
	var out []domain.LedgerEntry
	for _, e := range s.dealEntries(dealID) {
		if e.PaymentID != nil && *e.PaymentID == paymentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) AppendLedgerEntries(ctx context.Context, entries []domain.LedgerEntry) error {
	defer s.lock(ctx)()
	for _, e := range entries {
		for _, existing := range s.ledger {
			if existing.EntryID == e.EntryID {
				return apperrors.Newf(apperrors.ErrDuplicate, apperrors.CodeInvalidInput, "ledger entry %s already exists", e.EntryID)
			}
		}
	}
	s.ledger = append(s.ledger, entries...)
	return nil
}

// dealEntries returns the deal's entries ordered by (occurred_at, entry_id).
func (s *Store) dealEntries(dealID string) []domain.LedgerEntry {
	out := make([]domain.LedgerEntry, 0)
	for _, e := range s.ledger {
		if e.DealID == dealID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].EntryID < out[j].EntryID
	})
	return out
}
