package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CollateralReader defines read operations for collateral links and the substitution chain.
type CollateralReader interface {
	FindCollateralLinkByID(ctx context.Context, linkID string) (*domain.CollateralLink, error)
	ListCollateralLinksByDeal(ctx context.Context, dealID string) ([]domain.CollateralLink, error)
	ListActiveCollateralLinks(ctx context.Context) ([]domain.CollateralLink, error)

	// FindActiveLinkByAsset returns apperrors.ErrNotFound when the asset is not pledged.
	FindActiveLinkByAsset(ctx context.Context, assetID string) (*domain.CollateralLink, error)

	ListCollateralChain(ctx context.Context, dealID string) ([]domain.CollateralChainEvent, error)
}

// CollateralWriter defines write operations for collateral links.
type CollateralWriter interface {
	SaveCollateralLink(ctx context.Context, link domain.CollateralLink) error

	// UpdateCollateralLinkStatus changes status when the stored version still equals
	// expectedVersion and bumps it; otherwise it fails with apperrors.ErrConflict.
	UpdateCollateralLinkStatus(ctx context.Context, linkID string, status domain.CollateralStatus, endDate *time.Time, expectedVersion int64, actorID string, now time.Time) error

	// ForecloseActiveLinks marks every Active link of the deal Foreclosed and returns their ids.
	ForecloseActiveLinks(ctx context.Context, dealID string, actorID string, now time.Time) ([]string, error)

	UpdateCollateralEvaluation(ctx context.Context, linkID string, ltv decimal.Decimal, evaluatedAt time.Time) error
	AppendChainEvent(ctx context.Context, event domain.CollateralChainEvent) error
}

// CollateralRepositoryFacade combines all collateral repository interfaces.
type CollateralRepositoryFacade interface {
	CollateralReader
	CollateralWriter
}
