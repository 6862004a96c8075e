package collaborators

import (
	"context"

	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
)

// AssetValuationStore reads and writes current valuations of external assets.
type AssetValuationStore interface {
	// GetAssetValuation returns apperrors.ErrNotFound for unknown assets.
	GetAssetValuation(ctx context.Context, assetID string) (*domain.AssetValuation, error)
	UpsertAssetValuation(ctx context.Context, valuation domain.AssetValuation) error
}
