package services

import (
	"context"

	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/SscSPs/finance_deal_ledger/internal/dto"
)

// LedgerReaderSvc defines read operations over a deal's ledger.
type LedgerReaderSvc interface {
	GetBalances(ctx context.Context, dealID string) (*domain.Balances, error)
	ListLedgerEntries(ctx context.Context, dealID string, params dto.ListLedgerEntriesParams) (*dto.ListLedgerEntriesResponse, error)
}

// LedgerWriterSvc appends entries that are not produced by payments or collateral sales.
type LedgerWriterSvc interface {
	// RecordLedgerEntry appends a Fee, Penalty, Adjustment or Offset.
	RecordLedgerEntry(ctx context.Context, dealID string, req dto.RecordLedgerEntryRequest, actorID string) (*domain.LedgerEntry, error)

	// Disburse appends an additional draw, optionally debiting a cashbox in the same transaction.
	Disburse(ctx context.Context, dealID string, req dto.DisburseRequest, actorID string) (*dto.DisbursementResponse, error)
}

// LedgerSvcFacade combines all ledger service interfaces.
type LedgerSvcFacade interface {
	LedgerReaderSvc
	LedgerWriterSvc
}
