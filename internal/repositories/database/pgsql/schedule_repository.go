package pgsql

import (
	"context"

	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finance_deal_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
)

type PgxScheduleRepository struct {
	BaseRepository
}

func newPgxScheduleRepository(base BaseRepository) *PgxScheduleRepository {
	return &PgxScheduleRepository{BaseRepository: base}
}

var _ portsrepo.ScheduleRepositoryFacade = (*PgxScheduleRepository)(nil)

const scheduleColumns = `line_id, deal_id, seq, due_date, original_due_date, principal_due, interest_due, principal_paid, interest_paid`

func (r *PgxScheduleRepository) ListScheduleLines(ctx context.Context, dealID string) ([]domain.ScheduleLine, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedule_lines WHERE deal_id = $1 ORDER BY due_date, seq;`
	rows, err := r.db(ctx).Query(ctx, query, dealID)
	if err != nil {
		return nil, mapError(err, "schedule of deal", dealID)
	}
	defer rows.Close()

	lines := make([]domain.ScheduleLine, 0)
	for rows.Next() {
		var l domain.ScheduleLine
		if err := rows.Scan(
			&l.LineID,
			&l.DealID,
			&l.Seq,
			&l.DueDate,
			&l.OriginalDueDate,
			&l.PrincipalDue,
			&l.InterestDue,
			&l.PrincipalPaid,
			&l.InterestPaid,
		); err != nil {
			return nil, mapError(err, "schedule of deal", dealID)
		}
		l.DueDate = domain.DateOf(l.DueDate)
		l.OriginalDueDate = domain.DateOf(l.OriginalDueDate)
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "schedule of deal", dealID)
	}
	return lines, nil
}

// ReplaceScheduleLines deletes the deal's lines and inserts the new set in one transaction.
func (r *PgxScheduleRepository) ReplaceScheduleLines(ctx context.Context, dealID string, lines []domain.ScheduleLine) error {
	insert := `INSERT INTO schedule_lines (` + scheduleColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`
	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(insert,
			l.LineID,
			dealID,
			l.Seq,
			domain.DateOf(l.DueDate),
			domain.DateOf(l.OriginalDueDate),
			l.PrincipalDue,
			l.InterestDue,
			l.PrincipalPaid,
			l.InterestPaid,
		)
	}

	return r.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := r.db(ctx).Exec(ctx, `DELETE FROM schedule_lines WHERE deal_id = $1;`, dealID); err != nil {
			return mapError(err, "schedule of deal", dealID)
		}
		return execBatch(ctx, r.db(ctx), batch, "schedule of deal", dealID)
	})
}

func (r *PgxScheduleRepository) UpdateScheduleLinePayments(ctx context.Context, lines []domain.ScheduleLine) error {
	if len(lines) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(`UPDATE schedule_lines SET principal_paid = $2, interest_paid = $3 WHERE line_id = $1;`,
			l.LineID, l.PrincipalPaid, l.InterestPaid)
	}
	return r.WithinTx(ctx, func(ctx context.Context) error {
		return execBatch(ctx, r.db(ctx), batch, "schedule line", lines[0].LineID)
	})
}
