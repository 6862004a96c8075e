package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineStatus is the derived state of a schedule line. It is computed, never stored.
type LineStatus string

const (
	LineStatusPlanned LineStatus = "PLANNED"
	LineStatusPartial LineStatus = "PARTIAL"
	LineStatusPaid    LineStatus = "PAID"
	LineStatusOverdue LineStatus = "OVERDUE"
)

// ScheduleLine is one expected due date of a repayment schedule.
type ScheduleLine struct {
	LineID          string          `json:"lineID"`
	DealID          string          `json:"dealID"`
	Seq             int             `json:"seq"`
	DueDate         time.Time       `json:"dueDate"`
	OriginalDueDate time.Time       `json:"originalDueDate"`
	PrincipalDue    decimal.Decimal `json:"principalDue"`
	InterestDue     decimal.Decimal `json:"interestDue"`
	PrincipalPaid   decimal.Decimal `json:"principalPaid"`
	InterestPaid    decimal.Decimal `json:"interestPaid"`
}

// InterestRemaining is the unpaid part of InterestDue.
func (l ScheduleLine) InterestRemaining() decimal.Decimal {
	return decimal.Max(l.InterestDue.Sub(l.InterestPaid), decimal.Zero)
}

// PrincipalRemaining is the unpaid part of PrincipalDue.
func (l ScheduleLine) PrincipalRemaining() decimal.Decimal {
	return decimal.Max(l.PrincipalDue.Sub(l.PrincipalPaid), decimal.Zero)
}

// TotalDue is principal plus interest due.
func (l ScheduleLine) TotalDue() decimal.Decimal {
	return l.PrincipalDue.Add(l.InterestDue)
}

// TotalPaid is principal plus interest paid.
func (l ScheduleLine) TotalPaid() decimal.Decimal {
	return l.PrincipalPaid.Add(l.InterestPaid)
}

// IsFullyPaid reports whether nothing remains on either component.
func (l ScheduleLine) IsFullyPaid() bool {
	return l.InterestRemaining().IsZero() && l.PrincipalRemaining().IsZero()
}

// Status derives the line state as of the given day.
func (l ScheduleLine) Status(asOf time.Time) LineStatus {
	if l.IsFullyPaid() {
		return LineStatusPaid
	}
	if DateOf(l.DueDate).Before(DateOf(asOf)) {
		return LineStatusOverdue
	}
	if l.TotalPaid().IsPositive() {
		return LineStatusPartial
	}
	return LineStatusPlanned
}
