package services

import (
	"context"

	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/SscSPs/finance_deal_ledger/internal/dto"
	"github.com/shopspring/decimal"
)

// CollateralReaderSvc defines read operations for collateral.
type CollateralReaderSvc interface {
	ListCollateral(ctx context.Context, dealID string) ([]domain.CollateralLink, error)
	GetCollateralChain(ctx context.Context, dealID string) ([]domain.CollateralChainEvent, error)
}

// CollateralRiskSvc computes loan-to-value.
type CollateralRiskSvc interface {
	// EvaluateCollateral computes LTV for one link. A nil outstanding is computed from the ledger.
	EvaluateCollateral(ctx context.Context, linkID string, outstanding *decimal.Decimal) (*dto.EvaluationResult, error)

	// EvaluateActiveCollateral re-evaluates every Active link and reports those above the alert threshold.
	EvaluateActiveCollateral(ctx context.Context) (*dto.BatchEvaluationResult, error)
}

// CollateralWriterSvc defines collateral state changes.
type CollateralWriterSvc interface {
	PledgeCollateral(ctx context.Context, dealID string, req dto.PledgeCollateralRequest, actorID string) (*domain.CollateralLink, error)
	ReplaceCollateral(ctx context.Context, dealID string, linkID string, req dto.ReplaceCollateralRequest, actorID string) (*dto.ReplaceCollateralResult, error)
	ReleaseCollateral(ctx context.Context, linkID string, actorID string) (*domain.CollateralLink, error)
	RecordCollateralSale(ctx context.Context, linkID string, req dto.RecordCollateralSaleRequest, actorID string) (*dto.CollateralSaleResult, error)
	UpsertAssetValuation(ctx context.Context, assetID string, req dto.UpsertAssetValuationRequest, actorID string) (*domain.AssetValuation, error)

	// DefaultWithSideEffects moves the deal to Defaulted and forecloses its Active links atomically.
	DefaultWithSideEffects(ctx context.Context, dealID string, actorID string) (*dto.DefaultResult, error)
}

// CollateralSvcFacade combines all collateral service interfaces.
type CollateralSvcFacade interface {
	CollateralReaderSvc
	CollateralRiskSvc
	CollateralWriterSvc
}
