package accounting

import (
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, dd int) time.Time {
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

func entry(t domain.EntryType, amount string) domain.LedgerEntry {
	return domain.LedgerEntry{EntryType: t, Amount: d(amount)}
}

func pause(id string, start, end time.Time) domain.PausePeriod {
	return domain.PausePeriod{PauseID: id, StartDate: start, EndDate: end}
}

func scenarioASchedule() []domain.ScheduleLine {
	lines, err := GenerateSchedule(ScheduleTerms{
		DealID:            "deal-a",
		Principal:         d("12000"),
		TermMonths:        12,
		AnnualRatePercent: decimal.Zero,
		ScheduleType:      domain.ScheduleTypeEqualPrincipal,
		StartDate:         day(2024, time.January, 15),
		Precision:         2,
	})
	if err != nil {
		panic(err)
	}
	return lines
}
