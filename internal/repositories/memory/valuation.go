package memory

import (
	"context"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/SscSPs/finance_deal_ledger/internal/core/ports/collaborators"
)

var _ collaborators.AssetValuationStore = (*Store)(nil)

func (s *Store) GetAssetValuation(ctx context.Context, assetID string) (*domain.AssetValuation, error) {
	defer s.lock(ctx)()
	v, ok := s.valuations[assetID]
	if !ok {
		return nil, apperrors.NewNotFound("asset", assetID)
	}
	return &v, nil
}

func (s *Store) UpsertAssetValuation(ctx context.Context, valuation domain.AssetValuation) error {
	defer s.lock(ctx)()
	s.valuations[valuation.AssetID] = valuation
	return nil
}
