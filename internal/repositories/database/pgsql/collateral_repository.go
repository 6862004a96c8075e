package pgsql

import (
	"context"
	"sort"
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finance_deal_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type PgxCollateralRepository struct {
	BaseRepository
}

func newPgxCollateralRepository(base BaseRepository) *PgxCollateralRepository {
	return &PgxCollateralRepository{BaseRepository: base}
}

var _ portsrepo.CollateralRepositoryFacade = (*PgxCollateralRepository)(nil)

const linkColumns = `link_id, deal_id, asset_id, status, valuation_at_pledge, ltv_at_pledge, pledged_units,
	start_date, end_date, last_ltv, last_evaluated_at, version, created_at, created_by, last_updated_at, last_updated_by`

func scanLink(row pgx.Row) (*domain.CollateralLink, error) {
	var l domain.CollateralLink
	err := row.Scan(
		&l.LinkID,
		&l.DealID,
		&l.AssetID,
		&l.Status,
		&l.ValuationAtPledge,
		&l.LTVAtPledge,
		&l.PledgedUnits,
		&l.StartDate,
		&l.EndDate,
		&l.LastLTV,
		&l.LastEvaluatedAt,
		&l.Version,
		&l.CreatedAt,
		&l.CreatedBy,
		&l.LastUpdatedAt,
		&l.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *PgxCollateralRepository) listLinks(ctx context.Context, entity, id, query string, args ...any) ([]domain.CollateralLink, error) {
	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, entity, id)
	}
	defer rows.Close()

	links := make([]domain.CollateralLink, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, mapError(err, entity, id)
		}
		links = append(links, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, entity, id)
	}
	return links, nil
}

func (r *PgxCollateralRepository) FindCollateralLinkByID(ctx context.Context, linkID string) (*domain.CollateralLink, error) {
	query := `SELECT ` + linkColumns + ` FROM collateral_links WHERE link_id = $1;`
	l, err := scanLink(r.db(ctx).QueryRow(ctx, query, linkID))
	if err != nil {
		return nil, mapError(err, "collateral link", linkID)
	}
	return l, nil
}

func (r *PgxCollateralRepository) ListCollateralLinksByDeal(ctx context.Context, dealID string) ([]domain.CollateralLink, error) {
	return r.listLinks(ctx, "collateral of deal", dealID,
		`SELECT `+linkColumns+` FROM collateral_links WHERE deal_id = $1 ORDER BY start_date, link_id;`, dealID)
}

func (r *PgxCollateralRepository) ListActiveCollateralLinks(ctx context.Context) ([]domain.CollateralLink, error) {
	return r.listLinks(ctx, "collateral links", "active",
		`SELECT `+linkColumns+` FROM collateral_links WHERE status = $1 ORDER BY deal_id, link_id;`, domain.CollateralActive)
}

func (r *PgxCollateralRepository) FindActiveLinkByAsset(ctx context.Context, assetID string) (*domain.CollateralLink, error) {
	query := `SELECT ` + linkColumns + ` FROM collateral_links WHERE asset_id = $1 AND status = $2;`
	l, err := scanLink(r.db(ctx).QueryRow(ctx, query, assetID, domain.CollateralActive))
	if err != nil {
		return nil, mapError(err, "active collateral link for asset", assetID)
	}
	return l, nil
}

func (r *PgxCollateralRepository) ListCollateralChain(ctx context.Context, dealID string) ([]domain.CollateralChainEvent, error) {
	rows, err := r.db(ctx).Query(ctx, `
		SELECT event_id, deal_id, old_link_id, new_link_id, old_asset_id, new_asset_id, reason, occurred_at, actor_id
		FROM collateral_chain_events
		WHERE deal_id = $1
		ORDER BY occurred_at, event_id;`, dealID)
	if err != nil {
		return nil, mapError(err, "collateral chain of deal", dealID)
	}
	defer rows.Close()

	events := make([]domain.CollateralChainEvent, 0)
	for rows.Next() {
		var e domain.CollateralChainEvent
		if err := rows.Scan(
			&e.EventID,
			&e.DealID,
			&e.OldLinkID,
			&e.NewLinkID,
			&e.OldAssetID,
			&e.NewAssetID,
			&e.Reason,
			&e.OccurredAt,
			&e.ActorID,
		); err != nil {
			return nil, mapError(err, "collateral chain of deal", dealID)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "collateral chain of deal", dealID)
	}
	return events, nil
}

// SaveCollateralLink relies on collateral_links_active_asset_uq to refuse a second active pledge.
func (r *PgxCollateralRepository) SaveCollateralLink(ctx context.Context, link domain.CollateralLink) error {
	_, err := r.db(ctx).Exec(ctx, `
		INSERT INTO collateral_links (`+linkColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);`,
		link.LinkID,
		link.DealID,
		link.AssetID,
		link.Status,
		link.ValuationAtPledge,
		link.LTVAtPledge,
		link.PledgedUnits,
		link.StartDate,
		link.EndDate,
		link.LastLTV,
		link.LastEvaluatedAt,
		link.Version,
		link.CreatedAt,
		link.CreatedBy,
		link.LastUpdatedAt,
		link.LastUpdatedBy,
	)
	return mapError(err, "collateral link", link.LinkID)
}

func (r *PgxCollateralRepository) UpdateCollateralLinkStatus(ctx context.Context, linkID string, status domain.CollateralStatus, endDate *time.Time, expectedVersion int64, actorID string, now time.Time) error {
	tag, err := r.db(ctx).Exec(ctx, `
		UPDATE collateral_links
		SET status = $2, end_date = $3, version = version + 1, last_updated_at = $4, last_updated_by = $5
		WHERE link_id = $1 AND version = $6;`,
		linkID, status, endDate, now, actorID, expectedVersion)
	if err != nil {
		return mapError(err, "collateral link", linkID)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, err := r.FindCollateralLinkByID(ctx, linkID); err != nil {
		return err
	}
	return apperrors.Newf(apperrors.ErrConflict, apperrors.CodeStaleCollateralLink,
		"collateral link %s was modified concurrently", linkID)
}

func (r *PgxCollateralRepository) ForecloseActiveLinks(ctx context.Context, dealID string, actorID string, now time.Time) ([]string, error) {
	rows, err := r.db(ctx).Query(ctx, `
		UPDATE collateral_links
		SET status = $2, end_date = $3, version = version + 1, last_updated_at = $3, last_updated_by = $4
		WHERE deal_id = $1 AND status = $5
		RETURNING link_id;`,
		dealID, domain.CollateralForeclosed, now, actorID, domain.CollateralActive)
	if err != nil {
		return nil, mapError(err, "collateral of deal", dealID)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, mapError(err, "collateral of deal", dealID)
	}
	sort.Strings(ids)
	return ids, nil
}

// UpdateCollateralEvaluation stores the latest LTV without touching the link version.
func (r *PgxCollateralRepository) UpdateCollateralEvaluation(ctx context.Context, linkID string, ltv decimal.Decimal, evaluatedAt time.Time) error {
	tag, err := r.db(ctx).Exec(ctx, `
		UPDATE collateral_links SET last_ltv = $2, last_evaluated_at = $3
		WHERE link_id = $1;`,
		linkID, ltv, evaluatedAt)
	if err != nil {
		return mapError(err, "collateral link", linkID)
	}
	return requireRow(tag, "collateral link", linkID)
}

func (r *PgxCollateralRepository) AppendChainEvent(ctx context.Context, event domain.CollateralChainEvent) error {
	_, err := r.db(ctx).Exec(ctx, `
		INSERT INTO collateral_chain_events
			(event_id, deal_id, old_link_id, new_link_id, old_asset_id, new_asset_id, reason, occurred_at, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`,
		event.EventID,
		event.DealID,
		event.OldLinkID,
		event.NewLinkID,
		event.OldAssetID,
		event.NewAssetID,
		event.Reason,
		event.OccurredAt,
		event.ActorID,
	)
	return mapError(err, "collateral chain event", event.EventID)
}
