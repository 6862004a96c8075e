package repositories

import (
	"context"

	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
)

// LedgerReader defines read operations for ledger entries.
type LedgerReader interface {
	// ListLedgerEntriesByDeal returns every entry of the deal ordered by occurrence.
	ListLedgerEntriesByDeal(ctx context.Context, dealID string) ([]domain.LedgerEntry, error)

	// ListLedgerEntriesPage returns a page of entries and a token for the next page.
	ListLedgerEntriesPage(ctx context.Context, dealID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error)

	// FindLedgerEntriesByPaymentID returns the entries a payment produced (empty when unknown).
	FindLedgerEntriesByPaymentID(ctx context.Context, dealID, paymentID string) ([]domain.LedgerEntry, error)
}

// LedgerWriter appends entries. There is no update or delete.
type LedgerWriter interface {
	AppendLedgerEntries(ctx context.Context, entries []domain.LedgerEntry) error
}

// LedgerRepositoryFacade combines all ledger repository interfaces.
type LedgerRepositoryFacade interface {
	LedgerReader
	LedgerWriter
}
