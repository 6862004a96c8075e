package dto

import (
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PledgeCollateralRequest links an asset to a deal.
type PledgeCollateralRequest struct {
	AssetID      string          `json:"assetID" binding:"required"`
	PledgedUnits decimal.Decimal `json:"pledgedUnits" binding:"decimal_gte0"`
}

// EvaluateCollateralRequest optionally supplies the outstanding principal to evaluate against.
type EvaluateCollateralRequest struct {
	OutstandingPrincipal *decimal.Decimal `json:"outstandingPrincipal"`
}

// EvaluationResult is the LTV computed for a link.
type EvaluationResult struct {
	LinkID               string          `json:"linkID"`
	LTV                  decimal.Decimal `json:"ltv"`
	OutstandingPrincipal decimal.Decimal `json:"outstandingPrincipal"`
	ValuationAtPledge    decimal.Decimal `json:"valuationAtPledge"`
	EvaluatedAt          time.Time       `json:"evaluatedAt"`
	AboveThreshold       bool            `json:"aboveThreshold"`
}

// BatchEvaluationResult summarises a re-evaluation of every active link.
type BatchEvaluationResult struct {
	Evaluated      int                `json:"evaluated"`
	Failed         int                `json:"failed"`
	AboveThreshold []EvaluationResult `json:"aboveThreshold"`
}

// ReplaceCollateralRequest substitutes the asset of an active link.
type ReplaceCollateralRequest struct {
	NewAssetID      string           `json:"newAssetID" binding:"required"`
	Reason          string           `json:"reason" binding:"required"`
	ExpectedVersion *int64           `json:"expectedVersion"`
	PledgedUnits    *decimal.Decimal `json:"pledgedUnits"`
}

// ReplaceCollateralResult is the outcome of a substitution.
type ReplaceCollateralResult struct {
	OldLink domain.CollateralLink       `json:"oldLink"`
	NewLink domain.CollateralLink       `json:"newLink"`
	Event   domain.CollateralChainEvent `json:"event"`
}

// DefaultResult is the outcome of defaulting a deal.
type DefaultResult struct {
	Deal              domain.Deal `json:"deal"`
	ForeclosedLinkIDs []string    `json:"foreclosedLinkIDs"`
}

// RecordCollateralSaleRequest books the proceeds of selling a foreclosed asset.
type RecordCollateralSaleRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt *time.Time      `json:"occurredAt"`
	CashboxID  *string         `json:"cashboxID"`
	RequestID  string          `json:"requestID"`
	Note       string          `json:"note"`
}

// UpsertAssetValuationRequest sets the current valuation of an asset.
type UpsertAssetValuationRequest struct {
	Name         string          `json:"name"`
	Valuation    decimal.Decimal `json:"valuation" binding:"decimal_gte0"`
	CurrencyCode string          `json:"currencyCode" binding:"required,len=3"`
	ValuedAt     *time.Time      `json:"valuedAt"`
}

// CollateralSaleResult is the outcome of recording foreclosure sale proceeds.
type CollateralSaleResult struct {
	Entry       domain.LedgerEntry `json:"entry"`
	CashboxTxID *string            `json:"cashboxTxID,omitempty"`
	Balances    domain.Balances    `json:"balances"`
	Replayed    bool               `json:"replayed"`
}
