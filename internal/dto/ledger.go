package dto

import (
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RecordLedgerEntryRequest posts a manual entry (fee, penalty, adjustment, offset).
type RecordLedgerEntryRequest struct {
	EntryType  domain.EntryType `json:"entryType" binding:"required,oneof=FEE PENALTY ADJUSTMENT OFFSET"`
	Amount     decimal.Decimal  `json:"amount" binding:"decimal_ne0"`
	OccurredAt *time.Time       `json:"occurredAt"`
	Note       string           `json:"note"`
}

// DisburseRequest pays out an additional draw.
type DisburseRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt *time.Time      `json:"occurredAt"`
	CashboxID  *string         `json:"cashboxID"`
	RequestID  string          `json:"requestID"`
	Note       string          `json:"note"`
}

// DisbursementResponse is the outcome of a draw.
type DisbursementResponse struct {
	Entry       domain.LedgerEntry `json:"entry"`
	CashboxTxID *string            `json:"cashboxTxID,omitempty"`
	Balances    domain.Balances    `json:"balances"`
	Replayed    bool               `json:"replayed"`
}

// ListLedgerEntriesParams defines query parameters for paging a deal's ledger.
type ListLedgerEntriesParams struct {
	Limit     int     `form:"limit,default=50" binding:"min=1,max=500"`
	NextToken *string `form:"nextToken"`
}

// ListLedgerEntriesResponse wraps a page of ledger entries.
type ListLedgerEntriesResponse struct {
	Entries   []domain.LedgerEntry `json:"entries"`
	NextToken *string              `json:"nextToken,omitempty"`
}

// RecordPaymentRequest is an incoming repayment. RequestID makes retries idempotent.
type RecordPaymentRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt *time.Time      `json:"occurredAt"`
	CashboxID  *string         `json:"cashboxID"`
	RequestID  string          `json:"requestID"`
	Note       string          `json:"note"`
}

// PaymentResult reports how a payment was allocated.
type PaymentResult struct {
	PaymentID      string          `json:"paymentID"`
	PrincipalPaid  decimal.Decimal `json:"principalPaid"`
	InterestPaid   decimal.Decimal `json:"interestPaid"`
	EarlyRepayment decimal.Decimal `json:"earlyRepayment"`
	LedgerEntryIDs []string        `json:"ledgerEntryIDs"`
	CashboxTxID    *string         `json:"cashboxTxID,omitempty"`
	Replayed       bool            `json:"replayed"`
	Balances       domain.Balances `json:"balances"`
}
