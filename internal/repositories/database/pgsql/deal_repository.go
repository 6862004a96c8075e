package pgsql

import (
	"context"
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finance_deal_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
)

type PgxDealRepository struct {
	BaseRepository
}

func newPgxDealRepository(base BaseRepository) *PgxDealRepository {
	return &PgxDealRepository{BaseRepository: base}
}

var _ portsrepo.DealRepositoryFacade = (*PgxDealRepository)(nil)

const dealColumns = `deal_id, title, responsible_party_id, status, created_at, created_by, last_updated_at, last_updated_by`

const financeColumns = `deal_id, contract_number, principal, currency_code, term_months, interest_rate, schedule_type,
	disbursement_date, disbursement_cashbox_tx_id, created_at, created_by, last_updated_at, last_updated_by`

func scanDeal(row pgx.Row) (*domain.Deal, error) {
	var d domain.Deal
	err := row.Scan(
		&d.DealID,
		&d.Title,
		&d.ResponsiblePartyID,
		&d.Status,
		&d.CreatedAt,
		&d.CreatedBy,
		&d.LastUpdatedAt,
		&d.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *PgxDealRepository) FindDealByID(ctx context.Context, dealID string) (*domain.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE deal_id = $1;`
	deal, err := scanDeal(r.db(ctx).QueryRow(ctx, query, dealID))
	if err != nil {
		return nil, mapError(err, "deal", dealID)
	}
	return deal, nil
}

// LockDealForUpdate holds the deal row lock until the surrounding transaction ends.
func (r *PgxDealRepository) LockDealForUpdate(ctx context.Context, dealID string) (*domain.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE deal_id = $1 FOR UPDATE;`
	deal, err := scanDeal(r.db(ctx).QueryRow(ctx, query, dealID))
	if err != nil {
		return nil, mapError(err, "deal", dealID)
	}
	return deal, nil
}

func (r *PgxDealRepository) FindFinanceDealByID(ctx context.Context, dealID string) (*domain.FinanceDeal, error) {
	query := `SELECT ` + financeColumns + ` FROM finance_deals WHERE deal_id = $1;`
	var fd domain.FinanceDeal
	err := r.db(ctx).QueryRow(ctx, query, dealID).Scan(
		&fd.DealID,
		&fd.ContractNumber,
		&fd.Principal,
		&fd.CurrencyCode,
		&fd.TermMonths,
		&fd.InterestRate,
		&fd.ScheduleType,
		&fd.DisbursementDate,
		&fd.DisbursementCashboxTxID,
		&fd.CreatedAt,
		&fd.CreatedBy,
		&fd.LastUpdatedAt,
		&fd.LastUpdatedBy,
	)
	if err != nil {
		return nil, mapError(err, "finance deal", dealID)
	}
	return &fd, nil
}

func (r *PgxDealRepository) ListDeals(ctx context.Context, filter portsrepo.ListDealsFilter) ([]domain.Deal, error) {
	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}
	query := `
		SELECT ` + dealColumns + `
		FROM deals
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC, deal_id
		LIMIT $2 OFFSET $3;
	`
	rows, err := r.db(ctx).Query(ctx, query, status, filter.Limit, filter.Offset)
	if err != nil {
		return nil, mapError(err, "deals", "list")
	}
	defer rows.Close()

	deals := make([]domain.Deal, 0)
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, mapError(err, "deals", "list")
		}
		deals = append(deals, *deal)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "deals", "list")
	}
	return deals, nil
}

// SaveDeal inserts the deal and its contract terms atomically.
func (r *PgxDealRepository) SaveDeal(ctx context.Context, deal domain.Deal, finance domain.FinanceDeal) error {
	return r.WithinTx(ctx, func(ctx context.Context) error {
		_, err := r.db(ctx).Exec(ctx, `
			INSERT INTO deals (`+dealColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`,
			deal.DealID,
			deal.Title,
			deal.ResponsiblePartyID,
			deal.Status,
			deal.CreatedAt,
			deal.CreatedBy,
			deal.LastUpdatedAt,
			deal.LastUpdatedBy,
		)
		if err != nil {
			return mapError(err, "deal", deal.DealID)
		}

		_, err = r.db(ctx).Exec(ctx, `
			INSERT INTO finance_deals (`+financeColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);`,
			finance.DealID,
			finance.ContractNumber,
			finance.Principal,
			finance.CurrencyCode,
			finance.TermMonths,
			finance.InterestRate,
			finance.ScheduleType,
			finance.DisbursementDate,
			finance.DisbursementCashboxTxID,
			finance.CreatedAt,
			finance.CreatedBy,
			finance.LastUpdatedAt,
			finance.LastUpdatedBy,
		)
		return mapError(err, "finance deal", finance.DealID)
	})
}

func (r *PgxDealRepository) UpdateDealStatus(ctx context.Context, dealID string, status domain.DealStatus, actorID string, now time.Time) error {
	tag, err := r.db(ctx).Exec(ctx, `
		UPDATE deals SET status = $2, last_updated_at = $3, last_updated_by = $4
		WHERE deal_id = $1;`,
		dealID, status, now, actorID)
	if err != nil {
		return mapError(err, "deal", dealID)
	}
	return requireRow(tag, "deal", dealID)
}

func (r *PgxDealRepository) UpdateDisbursement(ctx context.Context, dealID string, disbursedOn time.Time, cashboxTxID *string, actorID string, now time.Time) error {
	tag, err := r.db(ctx).Exec(ctx, `
		UPDATE finance_deals
		SET disbursement_date = $2, disbursement_cashbox_tx_id = $3, last_updated_at = $4, last_updated_by = $5
		WHERE deal_id = $1;`,
		dealID, domain.DateOf(disbursedOn), cashboxTxID, now, actorID)
	if err != nil {
		return mapError(err, "finance deal", dealID)
	}
	return requireRow(tag, "finance deal", dealID)
}
