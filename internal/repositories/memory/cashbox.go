package memory

import (
	"context"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/SscSPs/finance_deal_ledger/internal/core/ports/collaborators"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ collaborators.Cashbox = (*Store)(nil)

// SeedCashbox creates or resets a cash drawer.
func (s *Store) SeedCashbox(cashboxID string, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cashboxes[cashboxID] = balance
}

// CashboxBalance returns the drawer balance and whether it exists.
func (s *Store) CashboxBalance(cashboxID string) (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bal, ok := s.cashboxes[cashboxID]
	return bal, ok
}

func (s *Store) Move(ctx context.Context, req collaborators.MoveRequest) (*collaborators.MoveResult, error) {
	defer s.lock(ctx)()

	if req.RequestID != "" {
		if prev, ok := s.movements[req.RequestID]; ok {
			if prev.cashboxID != req.CashboxID || !prev.amount.Equal(req.Amount) {
				return nil, collaborators.ErrRequestMismatch
			}
			res := prev.result
			res.Replayed = true
			return &res, nil
		}
	}

	balance, ok := s.cashboxes[req.CashboxID]
	if !ok {
		return nil, apperrors.NewNotFound("cashbox", req.CashboxID)
	}
	newBalance := balance.Add(req.Amount)
	if newBalance.IsNegative() {
		return nil, collaborators.ErrInsufficientFunds
	}

	s.cashboxes[req.CashboxID] = newBalance
	res := collaborators.MoveResult{TxID: uuid.NewString(), NewBalance: newBalance}
	key := req.RequestID
	if key == "" {
		key = res.TxID
	}
	s.movements[key] = cashboxMovement{cashboxID: req.CashboxID, amount: req.Amount, result: res}
	return &res, nil
}
