package accounting

import (
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumPrincipal(lines []domain.ScheduleLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.PrincipalDue)
	}
	return total
}

func TestGenerateSchedule_ScenarioA_EqualPrincipalZeroRate(t *testing.T) {
	lines := scenarioASchedule()

	require.Len(t, lines, 12)
	for i, l := range lines {
		assert.Equal(t, i+1, l.Seq)
		assert.True(t, l.PrincipalDue.Equal(d("1000")), "line %d principal %s", l.Seq, l.PrincipalDue)
		assert.True(t, l.InterestDue.IsZero(), "line %d interest %s", l.Seq, l.InterestDue)
		assert.Equal(t, AddMonthsClamped(day(2024, time.January, 15), i+1), l.DueDate)
	}
	assert.True(t, sumPrincipal(lines).Equal(d("12000")))
}

func TestGenerateSchedule_Annuity(t *testing.T) {
	lines, err := GenerateSchedule(ScheduleTerms{
		DealID:            "deal-annuity",
		Principal:         d("10000"),
		TermMonths:        12,
		AnnualRatePercent: d("12"),
		ScheduleType:      domain.ScheduleTypeAnnuity,
		StartDate:         day(2024, time.January, 1),
		Precision:         2,
	})
	require.NoError(t, err)
	require.Len(t, lines, 12)

	assert.True(t, lines[0].InterestDue.Equal(d("100")), lines[0].InterestDue.String())
	assert.True(t, lines[0].TotalDue().Equal(d("888.49")), lines[0].TotalDue().String())
	for _, l := range lines[:11] {
		assert.True(t, l.TotalDue().Equal(d("888.49")), "line %d total %s", l.Seq, l.TotalDue())
	}
	assert.True(t, sumPrincipal(lines).Equal(d("10000")))
	// interest declines as the balance amortizes
	assert.True(t, lines[11].InterestDue.LessThan(lines[0].InterestDue))
}

func TestGenerateSchedule_EqualPrincipalRemainderOnLastLine(t *testing.T) {
	lines, err := GenerateSchedule(ScheduleTerms{
		DealID:            "deal-rem",
		Principal:         d("1000"),
		TermMonths:        3,
		AnnualRatePercent: d("6"),
		ScheduleType:      domain.ScheduleTypeEqualPrincipal,
		StartDate:         day(2024, time.January, 1),
		Precision:         2,
	})
	require.NoError(t, err)

	assert.True(t, lines[0].PrincipalDue.Equal(d("333.33")))
	assert.True(t, lines[1].PrincipalDue.Equal(d("333.33")))
	assert.True(t, lines[2].PrincipalDue.Equal(d("333.34")))
	assert.True(t, lines[0].InterestDue.Equal(d("5")))
	assert.True(t, lines[1].InterestDue.Equal(d("3.33")))
	assert.True(t, sumPrincipal(lines).Equal(d("1000")))
}

func TestGenerateSchedule_ZeroPrecisionCurrency(t *testing.T) {
	lines, err := GenerateSchedule(ScheduleTerms{
		DealID:            "deal-jpy",
		Principal:         d("100000"),
		TermMonths:        7,
		AnnualRatePercent: d("3"),
		ScheduleType:      domain.ScheduleTypeAnnuity,
		StartDate:         day(2024, time.January, 1),
		Precision:         domain.CurrencyPrecision("JPY"),
	})
	require.NoError(t, err)
	for _, l := range lines {
		assert.True(t, l.PrincipalDue.Equal(l.PrincipalDue.Round(0)))
		assert.True(t, l.InterestDue.Equal(l.InterestDue.Round(0)))
	}
	assert.True(t, sumPrincipal(lines).Equal(d("100000")))
}

func TestGenerateSchedule_Deterministic(t *testing.T) {
	first := scenarioASchedule()
	second := scenarioASchedule()
	assert.Equal(t, first, second)
	assert.Equal(t, ScheduleLineID("deal-a", 1), first[0].LineID)
	assert.NotEqual(t, first[0].LineID, first[1].LineID)
}

func TestGenerateSchedule_Rejections(t *testing.T) {
	base := ScheduleTerms{
		DealID:       "x",
		Principal:    d("100"),
		TermMonths:   1,
		ScheduleType: domain.ScheduleTypeAnnuity,
		StartDate:    day(2024, 1, 1),
		Precision:    2,
	}

	manual := base
	manual.ScheduleType = domain.ScheduleTypeManual
	_, err := GenerateSchedule(manual)
	assert.True(t, errors.Is(err, apperrors.ErrUnsupportedOperation))
	assert.Equal(t, apperrors.CodeUnsupportedScheduleType, apperrors.CodeOf(err))

	tranches := base
	tranches.ScheduleType = domain.ScheduleTypeTranches
	_, err = GenerateSchedule(tranches)
	assert.True(t, errors.Is(err, apperrors.ErrUnsupportedOperation))

	noTerm := base
	noTerm.TermMonths = 0
	_, err = GenerateSchedule(noTerm)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	noPrincipal := base
	noPrincipal.Principal = decimal.Zero
	_, err = GenerateSchedule(noPrincipal)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestAddMonthsClamped(t *testing.T) {
	assert.Equal(t, day(2024, 2, 29), AddMonthsClamped(day(2024, 1, 31), 1))
	assert.Equal(t, day(2023, 2, 28), AddMonthsClamped(day(2023, 1, 31), 1))
	assert.Equal(t, day(2024, 3, 31), AddMonthsClamped(day(2024, 1, 31), 2))
	assert.Equal(t, day(2025, 1, 15), AddMonthsClamped(day(2024, 1, 15), 12))
}

func TestApplyPauseShift_ScenarioB(t *testing.T) {
	lines := scenarioASchedule()
	start := lines[2].OriginalDueDate
	pauses := []domain.PausePeriod{pause("p", start, start.AddDate(0, 0, 9))}

	shifted := ApplyPauseShift(lines, pauses)

	for i := range lines {
		if i < 2 {
			assert.Equal(t, lines[i].DueDate, shifted[i].DueDate, "line %d must not move", i+1)
			continue
		}
		assert.Equal(t, lines[i].OriginalDueDate.AddDate(0, 0, 10), shifted[i].DueDate, "line %d", i+1)
		assert.Equal(t, lines[i].OriginalDueDate, shifted[i].OriginalDueDate)
	}
}

func TestApplyPauseShift_Cumulative(t *testing.T) {
	lines := scenarioASchedule()
	pauses := []domain.PausePeriod{
		pause("p1", lines[0].OriginalDueDate.AddDate(0, 0, 1), lines[0].OriginalDueDate.AddDate(0, 0, 3)),
		pause("p2", lines[4].OriginalDueDate, lines[4].OriginalDueDate.AddDate(0, 0, 4)),
	}

	shifted := ApplyPauseShift(lines, pauses)

	assert.Equal(t, lines[0].OriginalDueDate, shifted[0].DueDate)
	assert.Equal(t, lines[1].OriginalDueDate.AddDate(0, 0, 3), shifted[1].DueDate)
	assert.Equal(t, lines[4].OriginalDueDate.AddDate(0, 0, 8), shifted[4].DueDate)
	assert.Equal(t, lines[11].OriginalDueDate.AddDate(0, 0, 8), shifted[11].DueDate)
}

func TestApplyPauseShift_RemovingPauseRestoresDates(t *testing.T) {
	lines := scenarioASchedule()
	start := lines[5].OriginalDueDate
	shifted := ApplyPauseShift(lines, []domain.PausePeriod{pause("p", start, start.AddDate(0, 0, 20))})

	restored := ApplyPauseShift(shifted, nil)

	assert.Equal(t, lines, restored)
}

func TestReapplyPaidTotals(t *testing.T) {
	lines, err := GenerateSchedule(ScheduleTerms{
		DealID:            "deal-r",
		Principal:         d("300"),
		TermMonths:        3,
		AnnualRatePercent: d("12"),
		ScheduleType:      domain.ScheduleTypeEqualPrincipal,
		StartDate:         day(2024, 1, 1),
		Precision:         2,
	})
	require.NoError(t, err)
	// interest due: 3.00, 2.00, 1.00

	out, leftP, leftI := ReapplyPaidTotals(lines, d("150"), d("4"))

	assert.True(t, leftP.IsZero())
	assert.True(t, leftI.IsZero())
	assert.True(t, out[0].PrincipalPaid.Equal(d("100")))
	assert.True(t, out[0].InterestPaid.Equal(d("3")))
	assert.True(t, out[1].PrincipalPaid.Equal(d("50")))
	assert.True(t, out[1].InterestPaid.Equal(d("1")))
	assert.True(t, out[2].PrincipalPaid.IsZero())

	_, leftP, leftI = ReapplyPaidTotals(lines, d("301"), d("7"))
	assert.True(t, leftP.Equal(d("1")))
	assert.True(t, leftI.Equal(d("1")))
}

func TestBuildManualSchedule(t *testing.T) {
	lines, err := BuildManualSchedule("deal-m", d("1000"), []ManualLine{
		{DueDate: day(2024, 2, 1), PrincipalDue: d("400"), InterestDue: d("10")},
		{DueDate: day(2024, 5, 1), PrincipalDue: d("600"), InterestDue: d("5")},
	}, 2)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, ScheduleLineID("deal-m", 2), lines[1].LineID)

	_, err = BuildManualSchedule("deal-m", d("1000"), []ManualLine{
		{DueDate: day(2024, 2, 1), PrincipalDue: d("400")},
	}, 2)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = BuildManualSchedule("deal-m", d("1000"), []ManualLine{
		{DueDate: day(2024, 2, 1), PrincipalDue: d("500")},
		{DueDate: day(2024, 2, 1), PrincipalDue: d("500")},
	}, 2)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = BuildManualSchedule("deal-m", d("1000"), nil, 2)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}
