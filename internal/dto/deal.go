package dto

import (
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateDealRequest defines the data needed to open a new deal.
type CreateDealRequest struct {
	Title              string              `json:"title" binding:"required"`
	ResponsiblePartyID string              `json:"responsiblePartyID" binding:"required"`
	ContractNumber     string              `json:"contractNumber"`
	Principal          decimal.Decimal     `json:"principal" binding:"decimal_gt0"`
	CurrencyCode       string              `json:"currencyCode" binding:"required,len=3"`
	TermMonths         int                 `json:"termMonths" binding:"required,min=1,max=600"`
	InterestRate       decimal.Decimal     `json:"interestRate" binding:"decimal_gte0"`
	ScheduleType       domain.ScheduleType `json:"scheduleType" binding:"required,oneof=ANNUITY EQUAL_PRINCIPAL MANUAL TRANCHES"`
}

// ActivateDealRequest disburses the principal. A cashbox id debits the drawer in the same transaction.
type ActivateDealRequest struct {
	DisbursementDate *time.Time `json:"disbursementDate"`
	CashboxID        *string    `json:"cashboxID"`
	RequestID        string     `json:"requestID"`
}

// ListDealsParams defines query parameters for listing deals.
type ListDealsParams struct {
	Status *domain.DealStatus `form:"status" binding:"omitempty,oneof=NEW ACTIVE PAUSED CLOSED DEFAULTED CANCELLED"`
	Limit  int                `form:"limit,default=20" binding:"min=1,max=200"`
	Offset int                `form:"offset,default=0" binding:"min=0"`
}

// DealResponse is a deal with its contract terms and current balances.
type DealResponse struct {
	Deal     domain.Deal        `json:"deal"`
	Finance  domain.FinanceDeal `json:"finance"`
	Balances domain.Balances    `json:"balances"`
}

// ListDealsResponse wraps a page of deals.
type ListDealsResponse struct {
	Deals  []domain.Deal `json:"deals"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}
