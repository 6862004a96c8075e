package services

import (
	"context"

	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/SscSPs/finance_deal_ledger/internal/dto"
)

// DealReaderSvc defines read operations for deals.
type DealReaderSvc interface {
	// GetDeal returns the deal, its contract terms and current balances.
	GetDeal(ctx context.Context, dealID string) (*dto.DealResponse, error)
	ListDeals(ctx context.Context, params dto.ListDealsParams) (*dto.ListDealsResponse, error)
}

// DealLifecycleSvc defines the status transitions of a deal.
// Pause/resume live in PauseSvcFacade and default in CollateralSvcFacade.
type DealLifecycleSvc interface {
	CreateDeal(ctx context.Context, req dto.CreateDealRequest, actorID string) (*dto.DealResponse, error)

	// ActivateDeal moves New → Active, records the disbursement date and generates the
	// initial schedule for regenerable schedule types.
	ActivateDeal(ctx context.Context, dealID string, req dto.ActivateDealRequest, actorID string) (*dto.DealResponse, error)

	CloseDeal(ctx context.Context, dealID string, actorID string) (*domain.Deal, error)
	CancelDeal(ctx context.Context, dealID string, actorID string) (*domain.Deal, error)
}

// DealSvcFacade combines all deal-related service interfaces.
type DealSvcFacade interface {
	DealReaderSvc
	DealLifecycleSvc
}
