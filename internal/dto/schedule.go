package dto

import (
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ScheduleLineResponse is a schedule line with its derived status.
type ScheduleLineResponse struct {
	domain.ScheduleLine
	Status domain.LineStatus `json:"status"`
}

// ScheduleResponse is a deal's schedule as of a given day.
type ScheduleResponse struct {
	DealID            string                 `json:"dealID"`
	ScheduleType      domain.ScheduleType    `json:"scheduleType"`
	CurrencyCode      string                 `json:"currencyCode"`
	AsOf              time.Time              `json:"asOf"`
	Lines             []ScheduleLineResponse `json:"lines"`
	TotalPrincipalDue decimal.Decimal        `json:"totalPrincipalDue"`
	TotalInterestDue  decimal.Decimal        `json:"totalInterestDue"`
	TotalPaid         decimal.Decimal        `json:"totalPaid"`
	OverdueLines      int                    `json:"overdueLines"`
	TotalPausedDays   int                    `json:"totalPausedDays"`
}

// ManualScheduleLineRequest is one caller-provided line.
type ManualScheduleLineRequest struct {
	DueDate      time.Time       `json:"dueDate" binding:"required"`
	PrincipalDue decimal.Decimal `json:"principalDue" binding:"decimal_gte0"`
	InterestDue  decimal.Decimal `json:"interestDue" binding:"decimal_gte0"`
}

// SetManualScheduleRequest replaces the schedule of a manual or tranche deal.
type SetManualScheduleRequest struct {
	Lines []ManualScheduleLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// NewScheduleResponse derives statuses and totals for the given lines.
func NewScheduleResponse(fd domain.FinanceDeal, lines []domain.ScheduleLine, pausedDays int, asOf time.Time) *ScheduleResponse {
	resp := &ScheduleResponse{
		DealID:            fd.DealID,
		ScheduleType:      fd.ScheduleType,
		CurrencyCode:      fd.CurrencyCode,
		AsOf:              domain.DateOf(asOf),
		Lines:             make([]ScheduleLineResponse, 0, len(lines)),
		TotalPrincipalDue: decimal.Zero,
		TotalInterestDue:  decimal.Zero,
		TotalPaid:         decimal.Zero,
		TotalPausedDays:   pausedDays,
	}
	for _, l := range lines {
		status := l.Status(asOf)
		if status == domain.LineStatusOverdue {
			resp.OverdueLines++
		}
		resp.TotalPrincipalDue = resp.TotalPrincipalDue.Add(l.PrincipalDue)
		resp.TotalInterestDue = resp.TotalInterestDue.Add(l.InterestDue)
		resp.TotalPaid = resp.TotalPaid.Add(l.TotalPaid())
		resp.Lines = append(resp.Lines, ScheduleLineResponse{ScheduleLine: l, Status: status})
	}
	return resp
}
