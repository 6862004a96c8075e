package accounting

import (
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// scheduleLineNamespace seeds deterministic schedule line ids.
var scheduleLineNamespace = uuid.MustParse("6f1c1f5e-3b0e-4c1a-9d43-2f7d0c5a8b21")

// factorPrecision bounds intermediate precision of the annuity factor.
const factorPrecision = 24

// ScheduleTerms are the contract inputs of schedule generation.
type ScheduleTerms struct {
	DealID            string
	Principal         decimal.Decimal
	TermMonths        int
	AnnualRatePercent decimal.Decimal
	ScheduleType      domain.ScheduleType
	StartDate         time.Time
	Precision         int32
}

// TermsFromFinanceDeal builds generation inputs from the contract. The deal must be disbursed.
func TermsFromFinanceDeal(fd domain.FinanceDeal) (ScheduleTerms, error) {
	if fd.DisbursementDate == nil {
		return ScheduleTerms{}, apperrors.NewPrecondition(apperrors.CodeNotDisbursed, "deal has no disbursement date")
	}
	return ScheduleTerms{
		DealID:            fd.DealID,
		Principal:         fd.Principal,
		TermMonths:        fd.TermMonths,
		AnnualRatePercent: fd.InterestRate,
		ScheduleType:      fd.ScheduleType,
		StartDate:         domain.DateOf(*fd.DisbursementDate),
		Precision:         fd.Precision(),
	}, nil
}

// ScheduleLineID returns the stable id of line seq of a deal's generated schedule.
func ScheduleLineID(dealID string, seq int) string {
	return uuid.NewSHA1(scheduleLineNamespace, []byte(fmt.Sprintf("%s/%d", dealID, seq))).String()
}

// AddMonthsClamped adds months to t, clamping to the last day of the target month
// (Jan 31 + 1 month = Feb 28/29).
func AddMonthsClamped(t time.Time, months int) time.Time {
	day := domain.DateOf(t)
	firstOfTarget := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	d := day.Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, 0, 0, 0, 0, time.UTC)
}

// MonthlyRate converts an annual percentage into a monthly fraction.
func MonthlyRate(annualPercent decimal.Decimal) decimal.Decimal {
	return annualPercent.Div(decimal.NewFromInt(1200))
}

// AnnuityPayment is the level monthly payment, rounded to precision.
func AnnuityPayment(principal decimal.Decimal, monthlyRate decimal.Decimal, n int, precision int32) decimal.Decimal {
	periods := decimal.NewFromInt(int64(n))
	if monthlyRate.IsZero() {
		return principal.Div(periods).Round(precision)
	}
	one := decimal.NewFromInt(1)
	onePlusR := one.Add(monthlyRate)
	factor := one
	for i := 0; i < n; i++ {
		factor = factor.Mul(onePlusR).Round(factorPrecision)
	}
	// P * r * (1+r)^n / ((1+r)^n - 1)
	return principal.Mul(monthlyRate).Mul(factor).Div(factor.Sub(one)).Round(precision)
}

// GenerateSchedule produces the unshifted schedule for regenerable schedule types.
// Total principal due always equals the contract principal; the last line absorbs rounding.
func GenerateSchedule(terms ScheduleTerms) ([]domain.ScheduleLine, error) {
	if !terms.ScheduleType.IsRegenerable() {
		return nil, apperrors.Newf(apperrors.ErrUnsupportedOperation, apperrors.CodeUnsupportedScheduleType,
			"schedule type %s cannot be generated", terms.ScheduleType)
	}
	if terms.TermMonths <= 0 {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidInput, "term must be at least one month")
	}
	if !terms.Principal.IsPositive() {
		return nil, apperrors.NewValidation(apperrors.CodeZeroOrNegativeAmount, "principal must be positive")
	}
	if terms.AnnualRatePercent.IsNegative() {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidInput, "interest rate must not be negative")
	}

	n := terms.TermMonths
	prec := terms.Precision
	r := MonthlyRate(terms.AnnualRatePercent)
	balance := terms.Principal

	var payment, levelPrincipal decimal.Decimal
	switch terms.ScheduleType {
	case domain.ScheduleTypeAnnuity:
		payment = AnnuityPayment(terms.Principal, r, n, prec)
	case domain.ScheduleTypeEqualPrincipal:
		levelPrincipal = terms.Principal.Div(decimal.NewFromInt(int64(n))).Truncate(prec)
	case domain.ScheduleTypeManual, domain.ScheduleTypeTranches:
		// rejected above
	}

	lines := make([]domain.ScheduleLine, 0, n)
	for k := 1; k <= n; k++ {
		interest := balance.Mul(r).Round(prec)
		var principal decimal.Decimal
		switch {
		case k == n:
			principal = balance
		case terms.ScheduleType == domain.ScheduleTypeAnnuity:
			principal = decimal.Min(decimal.Max(payment.Sub(interest), decimal.Zero), balance)
		default:
			principal = decimal.Min(levelPrincipal, balance)
		}
		balance = balance.Sub(principal)

		due := AddMonthsClamped(terms.StartDate, k)
		lines = append(lines, domain.ScheduleLine{
			LineID:          ScheduleLineID(terms.DealID, k),
			DealID:          terms.DealID,
			Seq:             k,
			DueDate:         due,
			OriginalDueDate: due,
			PrincipalDue:    principal,
			InterestDue:     interest,
			PrincipalPaid:   decimal.Zero,
			InterestPaid:    decimal.Zero,
		})
	}
	return lines, nil
}

// ApplyPauseShift moves every line's due date forward by the paused days of all periods
// starting on or before its original due date.
func ApplyPauseShift(lines []domain.ScheduleLine, pauses []domain.PausePeriod) []domain.ScheduleLine {
	shifted := make([]domain.ScheduleLine, len(lines))
	for i, l := range lines {
		shift := ShiftDays(pauses, l.OriginalDueDate)
		l.DueDate = domain.DateOf(l.OriginalDueDate).AddDate(0, 0, shift)
		shifted[i] = l
	}
	return shifted
}

// SortLines returns the lines ordered by due date, then sequence.
func SortLines(lines []domain.ScheduleLine) []domain.ScheduleLine {
	sorted := make([]domain.ScheduleLine, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].DueDate.Equal(sorted[j].DueDate) {
			return sorted[i].DueDate.Before(sorted[j].DueDate)
		}
		return sorted[i].Seq < sorted[j].Seq
	})
	return sorted
}

// ReapplyPaidTotals distributes paid-to-date totals over fresh lines oldest-first, each
// component independently. Amounts that do not fit are returned as leftovers.
func ReapplyPaidTotals(lines []domain.ScheduleLine, principalPaid, interestPaid decimal.Decimal) ([]domain.ScheduleLine, decimal.Decimal, decimal.Decimal) {
	out := SortLines(lines)
	for i := range out {
		out[i].PrincipalPaid = decimal.Zero
		out[i].InterestPaid = decimal.Zero
	}
	for i := range out {
		if interestPaid.IsPositive() {
			take := decimal.Min(out[i].InterestDue, interestPaid)
			out[i].InterestPaid = take
			interestPaid = interestPaid.Sub(take)
		}
		if principalPaid.IsPositive() {
			take := decimal.Min(out[i].PrincipalDue, principalPaid)
			out[i].PrincipalPaid = take
			principalPaid = principalPaid.Sub(take)
		}
	}
	return out, principalPaid, interestPaid
}

// ManualLine is caller input for a manual or tranche schedule.
type ManualLine struct {
	DueDate      time.Time
	PrincipalDue decimal.Decimal
	InterestDue  decimal.Decimal
}

// BuildManualSchedule validates caller-provided lines and turns them into schedule lines.
// Due dates must be strictly increasing and principal must add up to the contract principal.
func BuildManualSchedule(dealID string, principal decimal.Decimal, input []ManualLine, precision int32) ([]domain.ScheduleLine, error) {
	if len(input) == 0 {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidInput, "schedule must contain at least one line")
	}
	total := decimal.Zero
	lines := make([]domain.ScheduleLine, 0, len(input))
	var prev time.Time
	for i, in := range input {
		due := domain.DateOf(in.DueDate)
		if i > 0 && !due.After(prev) {
			return nil, apperrors.Newf(apperrors.ErrValidation, apperrors.CodeInvalidInput, "line %d due date must be after line %d", i+1, i)
		}
		if in.PrincipalDue.IsNegative() || in.InterestDue.IsNegative() {
			return nil, apperrors.Newf(apperrors.ErrValidation, apperrors.CodeInvalidInput, "line %d has a negative amount", i+1)
		}
		if !in.PrincipalDue.Equal(in.PrincipalDue.Round(precision)) || !in.InterestDue.Equal(in.InterestDue.Round(precision)) {
			return nil, apperrors.Newf(apperrors.ErrValidation, apperrors.CodeInvalidInput, "line %d exceeds currency precision", i+1)
		}
		prev = due
		total = total.Add(in.PrincipalDue)
		lines = append(lines, domain.ScheduleLine{
			LineID:          ScheduleLineID(dealID, i+1),
			DealID:          dealID,
			Seq:             i + 1,
			DueDate:         due,
			OriginalDueDate: due,
			PrincipalDue:    in.PrincipalDue,
			InterestDue:     in.InterestDue,
			PrincipalPaid:   decimal.Zero,
			InterestPaid:    decimal.Zero,
		})
	}
	if !total.Equal(principal) {
		return nil, apperrors.Newf(apperrors.ErrValidation, apperrors.CodeInvalidInput,
			"schedule principal %s does not match contract principal %s", total.String(), principal.String())
	}
	return lines, nil
}
