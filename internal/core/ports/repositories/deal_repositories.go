package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
)

// ListDealsFilter narrows ListDeals.
type ListDealsFilter struct {
	Status *domain.DealStatus
	Limit  int
	Offset int
}

// DealReader defines read operations for deals and their contract terms.
type DealReader interface {
	// FindDealByID returns apperrors.ErrNotFound when the deal does not exist.
	FindDealByID(ctx context.Context, dealID string) (*domain.Deal, error)
	FindFinanceDealByID(ctx context.Context, dealID string) (*domain.FinanceDeal, error)
	ListDeals(ctx context.Context, filter ListDealsFilter) ([]domain.Deal, error)
}

// DealWriter defines write operations for deals.
type DealWriter interface {
	SaveDeal(ctx context.Context, deal domain.Deal, finance domain.FinanceDeal) error
	UpdateDealStatus(ctx context.Context, dealID string, status domain.DealStatus, actorID string, now time.Time) error
	UpdateDisbursement(ctx context.Context, dealID string, disbursedOn time.Time, cashboxTxID *string, actorID string, now time.Time) error

	// LockDealForUpdate reads the deal and holds a row lock until the surrounding
	// transaction ends. Every mutating deal operation starts with it.
	LockDealForUpdate(ctx context.Context, dealID string) (*domain.Deal, error)
}

// DealRepositoryFacade combines all deal-related repository interfaces.
type DealRepositoryFacade interface {
	DealReader
	DealWriter
}
