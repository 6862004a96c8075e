package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryType classifies a ledger entry.
type EntryType string

const (
	EntryDisbursement           EntryType = "DISBURSEMENT"
	EntryPrincipalRepayment     EntryType = "PRINCIPAL_REPAYMENT"
	EntryEarlyRepayment         EntryType = "EARLY_REPAYMENT"
	EntryInterestPayment        EntryType = "INTEREST_PAYMENT"
	EntryFee                    EntryType = "FEE"
	EntryPenalty                EntryType = "PENALTY"
	EntryAdjustment             EntryType = "ADJUSTMENT"
	EntryOffset                 EntryType = "OFFSET"
	EntryCollateralSaleProceeds EntryType = "COLLATERAL_SALE_PROCEEDS"
)

// ParseEntryType validates a raw entry type value.
func ParseEntryType(s string) (EntryType, error) {
	switch EntryType(s) {
	case EntryDisbursement, EntryPrincipalRepayment, EntryEarlyRepayment, EntryInterestPayment,
		EntryFee, EntryPenalty, EntryAdjustment, EntryOffset, EntryCollateralSaleProceeds:
		return EntryType(s), nil
	default:
		return "", fmt.Errorf("unknown ledger entry type %q", s)
	}
}

// IsManual reports whether the entry type may be posted directly, outside the
// disbursement, payment and collateral sale operations.
func (t EntryType) IsManual() bool {
	switch t {
	case EntryFee, EntryPenalty, EntryAdjustment, EntryOffset:
		return true
	case EntryDisbursement, EntryPrincipalRepayment, EntryEarlyRepayment, EntryInterestPayment, EntryCollateralSaleProceeds:
		return false
	default:
		return false
	}
}

// AllowsNegative reports whether Amount carries a sign. Every other type stores a positive magnitude.
func (t EntryType) AllowsNegative() bool {
	return t == EntryAdjustment
}

// LedgerEntry is an immutable financial fact recorded against a deal.
type LedgerEntry struct {
	EntryID          string          `json:"entryID"`
	DealID           string          `json:"dealID"`
	EntryType        EntryType       `json:"entryType"`
	Amount           decimal.Decimal `json:"amount"`
	CurrencyCode     string          `json:"currencyCode"`
	OccurredAt       time.Time       `json:"occurredAt"`
	Note             string          `json:"note,omitempty"`
	CashboxTxID      *string         `json:"cashboxTxID,omitempty"`
	ScheduleLineID   *string         `json:"scheduleLineID,omitempty"`
	// PaymentID is the request id of the payment, draw or sale that wrote the entry.
	PaymentID        *string         `json:"paymentID,omitempty"`
	CollateralLinkID *string         `json:"collateralLinkID,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	CreatedBy        string          `json:"createdBy"`
}

// Balances is the state derived from a deal's principal and ledger.
type Balances struct {
	TotalDisbursed       decimal.Decimal `json:"totalDisbursed"`
	PrincipalRepaid      decimal.Decimal `json:"principalRepaid"`
	InterestRepaid       decimal.Decimal `json:"interestRepaid"`
	OutstandingPrincipal decimal.Decimal `json:"outstandingPrincipal"` // signed, negative when overpaid
	DisplayOutstanding   decimal.Decimal `json:"displayOutstanding"`   // floored at zero
	Overpaid             bool            `json:"overpaid"`
	FeesCharged          decimal.Decimal `json:"feesCharged"`
	PenaltiesCharged     decimal.Decimal `json:"penaltiesCharged"`
	AdjustmentsNet       decimal.Decimal `json:"adjustmentsNet"`
	OffsetsTotal         decimal.Decimal `json:"offsetsTotal"`
}
