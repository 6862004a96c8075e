package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	portsrepo "github.com/SscSPs/finance_deal_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres error codes translated into application errors.
const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
)

// txKey carries the open pgx.Tx in a context.
type txKey struct{}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	Pool *pgxpool.Pool
}

var _ portsrepo.TransactionManager = (*BaseRepository)(nil)

// db returns the transaction carried by ctx, or the pool.
func (r *BaseRepository) db(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return r.Pool
}

// Begin starts a new database transaction
func (r *BaseRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return nil, apperrors.NewPersistence("failed to begin transaction", err)
	}
	return tx, nil
}

// Commit commits a transaction
func (r *BaseRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewPersistence("failed to commit transaction", err)
	}
	return nil
}

// Rollback rolls back a transaction
func (r *BaseRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return apperrors.NewPersistence("failed to rollback transaction", err)
	}
	return nil
}

// WithinTx runs fn in a transaction carried by the context handed to it. A nested call
// joins the outer transaction.
func (r *BaseRepository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx) // no-op once committed

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// mapError translates driver errors into application error kinds.
func mapError(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(entity, id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgExclusionViolation && pgErr.ConstraintName == "pause_periods_no_overlap":
			return apperrors.Wrap(apperrors.ErrConflict, apperrors.CodePauseOverlap, "pause overlaps an existing pause", err)
		case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == "collateral_links_active_asset_uq":
			return apperrors.Wrap(apperrors.ErrConflict, apperrors.CodeAssetAlreadyPledged, "asset is already pledged by an active collateral link", err)
		case pgErr.Code == pgUniqueViolation:
			return apperrors.Wrap(apperrors.ErrDuplicate, apperrors.CodeInvalidInput, fmt.Sprintf("%s %s already exists", entity, id), err)
		}
	}
	return apperrors.NewPersistence(fmt.Sprintf("%s %s", entity, id), err)
}

// requireRow turns an update that touched nothing into NotFound.
func requireRow(tag pgconn.CommandTag, entity, id string) error {
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFound(entity, id)
	}
	return nil
}

// execBatch sends a batch and surfaces the first failing statement.
func execBatch(ctx context.Context, q querier, batch *pgx.Batch, entity, id string) error {
	if batch.Len() == 0 {
		return nil
	}
	br := q.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return mapError(err, entity, id)
		}
	}
	if err := br.Close(); err != nil {
		return mapError(err, entity, id)
	}
	return nil
}
