package pgsql

import (
	"context"

	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/SscSPs/finance_deal_ledger/internal/core/ports/collaborators"
)

type PgxValuationStore struct {
	BaseRepository
}

func newPgxValuationStore(base BaseRepository) *PgxValuationStore {
	return &PgxValuationStore{BaseRepository: base}
}

var _ collaborators.AssetValuationStore = (*PgxValuationStore)(nil)

func (s *PgxValuationStore) GetAssetValuation(ctx context.Context, assetID string) (*domain.AssetValuation, error) {
	var v domain.AssetValuation
	err := s.db(ctx).QueryRow(ctx, `
		SELECT asset_id, name, valuation, currency_code, valued_at
		FROM asset_valuations WHERE asset_id = $1;`, assetID).Scan(
		&v.AssetID,
		&v.Name,
		&v.Valuation,
		&v.CurrencyCode,
		&v.ValuedAt,
	)
	if err != nil {
		return nil, mapError(err, "asset", assetID)
	}
	return &v, nil
}

func (s *PgxValuationStore) UpsertAssetValuation(ctx context.Context, v domain.AssetValuation) error {
	_, err := s.db(ctx).Exec(ctx, `
		INSERT INTO asset_valuations (asset_id, name, valuation, currency_code, valued_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (asset_id) DO UPDATE
		SET name = EXCLUDED.name, valuation = EXCLUDED.valuation,
			currency_code = EXCLUDED.currency_code, valued_at = EXCLUDED.valued_at;`,
		v.AssetID, v.Name, v.Valuation, v.CurrencyCode, v.ValuedAt)
	return mapError(err, "asset", v.AssetID)
}
