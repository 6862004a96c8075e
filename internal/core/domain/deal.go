package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DealStatus is the lifecycle state of a deal.
type DealStatus string

const (
	DealStatusNew       DealStatus = "NEW"
	DealStatusActive    DealStatus = "ACTIVE"
	DealStatusPaused    DealStatus = "PAUSED"
	DealStatusClosed    DealStatus = "CLOSED"
	DealStatusDefaulted DealStatus = "DEFAULTED"
	DealStatusCancelled DealStatus = "CANCELLED"
)

// allowedTransitions is the lifecycle state machine. Anything not listed is rejected.
var allowedTransitions = map[DealStatus][]DealStatus{
	DealStatusNew:    {DealStatusActive, DealStatusCancelled},
	DealStatusActive: {DealStatusPaused, DealStatusClosed, DealStatusDefaulted, DealStatusCancelled},
	DealStatusPaused: {DealStatusActive, DealStatusDefaulted},
}

// ParseDealStatus validates a raw status value.
func ParseDealStatus(s string) (DealStatus, error) {
	switch DealStatus(s) {
	case DealStatusNew, DealStatusActive, DealStatusPaused, DealStatusClosed, DealStatusDefaulted, DealStatusCancelled:
		return DealStatus(s), nil
	default:
		return "", fmt.Errorf("unknown deal status %q", s)
	}
}

// IsTerminal reports whether no further transition is possible.
func (s DealStatus) IsTerminal() bool {
	switch s {
	case DealStatusClosed, DealStatusDefaulted, DealStatusCancelled:
		return true
	case DealStatusNew, DealStatusActive, DealStatusPaused:
		return false
	default:
		return false
	}
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to DealStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Deal is the lifecycle record of a financing agreement.
type Deal struct {
	DealID             string     `json:"dealID"`
	Title              string     `json:"title"`
	ResponsiblePartyID string     `json:"responsiblePartyID"`
	Status             DealStatus `json:"status"`
	AuditFields
}

// AcceptsPayments reports whether payments and draws may be recorded in the current status.
func (d Deal) AcceptsPayments() bool {
	return d.Status == DealStatusActive || d.Status == DealStatusPaused
}

// ScheduleType selects how the repayment schedule is produced.
type ScheduleType string

const (
	ScheduleTypeAnnuity        ScheduleType = "ANNUITY"
	ScheduleTypeEqualPrincipal ScheduleType = "EQUAL_PRINCIPAL"
	ScheduleTypeManual         ScheduleType = "MANUAL"
	ScheduleTypeTranches       ScheduleType = "TRANCHES"
)

// ParseScheduleType validates a raw schedule type value.
func ParseScheduleType(s string) (ScheduleType, error) {
	switch ScheduleType(s) {
	case ScheduleTypeAnnuity, ScheduleTypeEqualPrincipal, ScheduleTypeManual, ScheduleTypeTranches:
		return ScheduleType(s), nil
	default:
		return "", fmt.Errorf("unknown schedule type %q", s)
	}
}

// IsRegenerable reports whether the schedule can be recomputed from the contract terms.
func (t ScheduleType) IsRegenerable() bool {
	switch t {
	case ScheduleTypeAnnuity, ScheduleTypeEqualPrincipal:
		return true
	case ScheduleTypeManual, ScheduleTypeTranches:
		return false
	default:
		return false
	}
}

// FinanceDeal holds the contract terms of a deal (1:1 with Deal).
type FinanceDeal struct {
	DealID                  string          `json:"dealID"`
	ContractNumber          string          `json:"contractNumber"`
	Principal               decimal.Decimal `json:"principal"`
	CurrencyCode            string          `json:"currencyCode"`
	TermMonths              int             `json:"termMonths"`
	InterestRate            decimal.Decimal `json:"interestRate"` // annual, percent
	ScheduleType            ScheduleType    `json:"scheduleType"`
	DisbursementDate        *time.Time      `json:"disbursementDate,omitempty"`
	DisbursementCashboxTxID *string         `json:"disbursementCashboxTxID,omitempty"`
	AuditFields
}

// IsDisbursed reports whether the principal has been paid out.
func (f FinanceDeal) IsDisbursed() bool {
	return f.DisbursementDate != nil
}

// Precision returns the rounding precision for the contract currency.
func (f FinanceDeal) Precision() int32 {
	return CurrencyPrecision(f.CurrencyCode)
}
