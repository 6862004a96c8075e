package pgsql

import (
	"context"
	"errors"

	"github.com/SscSPs/finance_deal_ledger/internal/core/ports/collaborators"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// PgxCashbox keeps cashbox balances and movements in the same database as the ledger,
// so a movement commits or rolls back with the surrounding transaction.
type PgxCashbox struct {
	BaseRepository
}

func newPgxCashbox(base BaseRepository) *PgxCashbox {
	return &PgxCashbox{BaseRepository: base}
}

var _ collaborators.Cashbox = (*PgxCashbox)(nil)

func (c *PgxCashbox) Move(ctx context.Context, req collaborators.MoveRequest) (*collaborators.MoveResult, error) {
	var result *collaborators.MoveResult
	err := c.WithinTx(ctx, func(ctx context.Context) error {
		q := c.db(ctx)

		if req.RequestID != "" {
			var (
				prior        collaborators.MoveResult
				priorCashbox string
				priorAmount  decimal.Decimal
			)
			err := q.QueryRow(ctx, `
				SELECT tx_id, new_balance, cashbox_id, amount FROM cashbox_movements WHERE request_id = $1;`,
				req.RequestID).Scan(&prior.TxID, &prior.NewBalance, &priorCashbox, &priorAmount)
			if err == nil {
				if priorCashbox != req.CashboxID || !priorAmount.Equal(req.Amount) {
					return collaborators.ErrRequestMismatch
				}
				prior.Replayed = true
				result = &prior
				return nil
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				return mapError(err, "cashbox movement", req.RequestID)
			}
		}

		var balance decimal.Decimal
		err := q.QueryRow(ctx, `SELECT balance FROM cashboxes WHERE cashbox_id = $1 FOR UPDATE;`, req.CashboxID).Scan(&balance)
		if err != nil {
			return mapError(err, "cashbox", req.CashboxID)
		}

		newBalance := balance.Add(req.Amount)
		if newBalance.IsNegative() {
			return collaborators.ErrInsufficientFunds
		}

		txID := uuid.NewString()
		if _, err := q.Exec(ctx, `UPDATE cashboxes SET balance = $2, updated_at = now() WHERE cashbox_id = $1;`,
			req.CashboxID, newBalance); err != nil {
			return mapError(err, "cashbox", req.CashboxID)
		}

		var requestID *string
		if req.RequestID != "" {
			requestID = &req.RequestID
		}
		if _, err := q.Exec(ctx, `
			INSERT INTO cashbox_movements (tx_id, cashbox_id, amount, category, description, request_id, new_balance)
			VALUES ($1, $2, $3, $4, $5, $6, $7);`,
			txID, req.CashboxID, req.Amount, req.Category, req.Description, requestID, newBalance); err != nil {
			return mapError(err, "cashbox movement", txID)
		}

		result = &collaborators.MoveResult{TxID: txID, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
