package collaborators

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInsufficientFunds is returned by Move when a debit would take the cashbox below zero.
var ErrInsufficientFunds = errors.New("cashbox has insufficient funds")

// ErrRequestMismatch is returned by Move when RequestID was already used for a movement
// on another cashbox or for another amount.
var ErrRequestMismatch = errors.New("cashbox request id was used for a different movement")

// MoveRequest is a signed cashbox movement: positive credits the drawer, negative debits it.
type MoveRequest struct {
	CashboxID   string
	Amount      decimal.Decimal
	Category    string
	Description string
	RequestID   string
}

// MoveResult is the outcome of a movement. Replayed is set when RequestID was seen before
// and the stored result is returned without moving money again.
type MoveResult struct {
	TxID       string
	NewBalance decimal.Decimal
	Replayed   bool
}

// Cashbox is the cash-drawer primitive. Implementations must join the transaction
// carried by ctx so a movement commits or rolls back with the ledger writes.
type Cashbox interface {
	Move(ctx context.Context, req MoveRequest) (*MoveResult, error)
}

// Cashbox movement categories used by the engine.
const (
	CategoryDisbursement   = "deal_disbursement"
	CategoryRepayment      = "deal_repayment"
	CategoryCollateralSale = "collateral_sale"
)
