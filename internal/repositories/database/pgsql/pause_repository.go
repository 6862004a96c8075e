package pgsql

import (
	"context"
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finance_deal_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
)

type PgxPauseRepository struct {
	BaseRepository
}

func newPgxPauseRepository(base BaseRepository) *PgxPauseRepository {
	return &PgxPauseRepository{BaseRepository: base}
}

var _ portsrepo.PauseRepositoryFacade = (*PgxPauseRepository)(nil)

const pauseColumns = `pause_id, deal_id, start_date, end_date, reason, created_at, created_by, last_updated_at, last_updated_by`

func scanPause(row pgx.Row) (*domain.PausePeriod, error) {
	var p domain.PausePeriod
	err := row.Scan(
		&p.PauseID,
		&p.DealID,
		&p.StartDate,
		&p.EndDate,
		&p.Reason,
		&p.CreatedAt,
		&p.CreatedBy,
		&p.LastUpdatedAt,
		&p.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	p.StartDate = domain.DateOf(p.StartDate)
	p.EndDate = domain.DateOf(p.EndDate)
	return &p, nil
}

func (r *PgxPauseRepository) ListPausesByDeal(ctx context.Context, dealID string) ([]domain.PausePeriod, error) {
	query := `SELECT ` + pauseColumns + ` FROM pause_periods WHERE deal_id = $1 ORDER BY start_date;`
	rows, err := r.db(ctx).Query(ctx, query, dealID)
	if err != nil {
		return nil, mapError(err, "pauses of deal", dealID)
	}
	defer rows.Close()

	pauses := make([]domain.PausePeriod, 0)
	for rows.Next() {
		p, err := scanPause(rows)
		if err != nil {
			return nil, mapError(err, "pauses of deal", dealID)
		}
		pauses = append(pauses, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "pauses of deal", dealID)
	}
	return pauses, nil
}

func (r *PgxPauseRepository) FindPauseByID(ctx context.Context, pauseID string) (*domain.PausePeriod, error) {
	query := `SELECT ` + pauseColumns + ` FROM pause_periods WHERE pause_id = $1;`
	p, err := scanPause(r.db(ctx).QueryRow(ctx, query, pauseID))
	if err != nil {
		return nil, mapError(err, "pause", pauseID)
	}
	return p, nil
}

// SavePause relies on the pause_periods_no_overlap exclusion constraint for overlap detection.
func (r *PgxPauseRepository) SavePause(ctx context.Context, pause domain.PausePeriod) error {
	_, err := r.db(ctx).Exec(ctx, `
		INSERT INTO pause_periods (`+pauseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`,
		pause.PauseID,
		pause.DealID,
		domain.DateOf(pause.StartDate),
		domain.DateOf(pause.EndDate),
		pause.Reason,
		pause.CreatedAt,
		pause.CreatedBy,
		pause.LastUpdatedAt,
		pause.LastUpdatedBy,
	)
	return mapError(err, "pause", pause.PauseID)
}

func (r *PgxPauseRepository) UpdatePauseEnd(ctx context.Context, pauseID string, endDate time.Time, actorID string, now time.Time) error {
	tag, err := r.db(ctx).Exec(ctx, `
		UPDATE pause_periods SET end_date = $2, last_updated_at = $3, last_updated_by = $4
		WHERE pause_id = $1;`,
		pauseID, domain.DateOf(endDate), now, actorID)
	if err != nil {
		return mapError(err, "pause", pauseID)
	}
	return requireRow(tag, "pause", pauseID)
}

func (r *PgxPauseRepository) DeletePause(ctx context.Context, pauseID string) error {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM pause_periods WHERE pause_id = $1;`, pauseID)
	if err != nil {
		return mapError(err, "pause", pauseID)
	}
	return requireRow(tag, "pause", pauseID)
}
