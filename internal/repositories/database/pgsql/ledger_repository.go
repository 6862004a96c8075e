package pgsql

import (
	"context"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finance_deal_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/finance_deal_ledger/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
)

type PgxLedgerRepository struct {
	BaseRepository
}

func newPgxLedgerRepository(base BaseRepository) *PgxLedgerRepository {
	return &PgxLedgerRepository{BaseRepository: base}
}

var _ portsrepo.LedgerRepositoryFacade = (*PgxLedgerRepository)(nil)

const ledgerColumns = `entry_id, deal_id, entry_type, amount, currency_code, occurred_at, note,
	cashbox_tx_id, schedule_line_id, payment_id, collateral_link_id, created_at, created_by`

func scanLedgerEntries(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	defer rows.Close()
	entries := make([]domain.LedgerEntry, 0)
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(
			&e.EntryID,
			&e.DealID,
			&e.EntryType,
			&e.Amount,
			&e.CurrencyCode,
			&e.OccurredAt,
			&e.Note,
			&e.CashboxTxID,
			&e.ScheduleLineID,
			&e.PaymentID,
			&e.CollateralLinkID,
			&e.CreatedAt,
			&e.CreatedBy,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *PgxLedgerRepository) ListLedgerEntriesByDeal(ctx context.Context, dealID string) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE deal_id = $1 ORDER BY occurred_at, entry_id;`
	rows, err := r.db(ctx).Query(ctx, query, dealID)
	if err != nil {
		return nil, mapError(err, "ledger entries of deal", dealID)
	}
	entries, err := scanLedgerEntries(rows)
	if err != nil {
		return nil, mapError(err, "ledger entries of deal", dealID)
	}
	return entries, nil
}

// ListLedgerEntriesPage uses keyset pagination on (occurred_at, entry_id).
func (r *PgxLedgerRepository) ListLedgerEntriesPage(ctx context.Context, dealID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if nextToken != nil && *nextToken != "" {
		afterAt, afterID, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.Wrap(apperrors.ErrValidation, apperrors.CodeInvalidInput, "invalid next token", decodeErr)
		}
		query := `
			SELECT ` + ledgerColumns + `
			FROM ledger_entries
			WHERE deal_id = $1 AND (occurred_at, entry_id) > ($2, $3)
			ORDER BY occurred_at, entry_id
			LIMIT $4;`
		rows, err = r.db(ctx).Query(ctx, query, dealID, afterAt, afterID, limit+1)
	} else {
		query := `
			SELECT ` + ledgerColumns + `
			FROM ledger_entries
			WHERE deal_id = $1
			ORDER BY occurred_at, entry_id
			LIMIT $2;`
		rows, err = r.db(ctx).Query(ctx, query, dealID, limit+1)
	}
	if err != nil {
		return nil, nil, mapError(err, "ledger entries of deal", dealID)
	}
	entries, err := scanLedgerEntries(rows)
	if err != nil {
		return nil, nil, mapError(err, "ledger entries of deal", dealID)
	}

	if len(entries) <= limit {
		return entries, nil, nil
	}
	page := entries[:limit]
	last := page[len(page)-1]
	token := pagination.EncodeToken(last.OccurredAt, last.EntryID)
	return page, &token, nil
}

func (r *PgxLedgerRepository) FindLedgerEntriesByPaymentID(ctx context.Context, dealID, paymentID string) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE deal_id = $1 AND payment_id = $2 ORDER BY occurred_at, entry_id;`
	rows, err := r.db(ctx).Query(ctx, query, dealID, paymentID)
	if err != nil {
		return nil, mapError(err, "payment", paymentID)
	}
	entries, err := scanLedgerEntries(rows)
	if err != nil {
		return nil, mapError(err, "payment", paymentID)
	}
	return entries, nil
}

// AppendLedgerEntries inserts all entries in one batch.
func (r *PgxLedgerRepository) AppendLedgerEntries(ctx context.Context, entries []domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	query := `INSERT INTO ledger_entries (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);`

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(query,
			e.EntryID,
			e.DealID,
			e.EntryType,
			e.Amount,
			e.CurrencyCode,
			e.OccurredAt,
			e.Note,
			e.CashboxTxID,
			e.ScheduleLineID,
			e.PaymentID,
			e.CollateralLinkID,
			e.CreatedAt,
			e.CreatedBy,
		)
	}
	return r.WithinTx(ctx, func(ctx context.Context) error {
		return execBatch(ctx, r.db(ctx), batch, "ledger entry", entries[0].EntryID)
	})
}
