package accounting

import (
	"sort"
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
)

type dayRange struct {
	start, end time.Time
}

// mergedRanges returns the union of the periods as sorted, non-overlapping day ranges.
func mergedRanges(periods []domain.PausePeriod) []dayRange {
	ranges := make([]dayRange, 0, len(periods))
	for _, p := range periods {
		start, end := domain.DateOf(p.StartDate), domain.DateOf(p.EndDate)
		if end.Before(start) {
			continue
		}
		ranges = append(ranges, dayRange{start: start, end: end})
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].start.Before(ranges[j].start) })

	merged := make([]dayRange, 0, len(ranges))
	for _, r := range ranges {
		if n := len(merged); n > 0 && !r.start.After(merged[n-1].end.AddDate(0, 0, 1)) {
			if r.end.After(merged[n-1].end) {
				merged[n-1].end = r.end
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// TotalPausedDays counts the calendar days covered by the periods, inclusive on both
// ends. A day covered by several (overlapping) periods is counted once.
func TotalPausedDays(periods []domain.PausePeriod) int {
	total := 0
	for _, r := range mergedRanges(periods) {
		total += int(r.end.Sub(r.start).Hours()/24) + 1
	}
	return total
}

// ActivePause returns the period covering asOf, if any.
func ActivePause(periods []domain.PausePeriod, asOf time.Time) *domain.PausePeriod {
	for i := range periods {
		if periods[i].IsActiveOn(asOf) {
			p := periods[i]
			return &p
		}
	}
	return nil
}

// PausesOverlap reports whether two periods share at least one day.
func PausesOverlap(a, b domain.PausePeriod) bool {
	return !domain.DateOf(a.StartDate).After(domain.DateOf(b.EndDate)) &&
		!domain.DateOf(b.StartDate).After(domain.DateOf(a.EndDate))
}

// FindOverlap returns the first existing period that overlaps candidate.
func FindOverlap(existing []domain.PausePeriod, candidate domain.PausePeriod) *domain.PausePeriod {
	for i := range existing {
		if existing[i].PauseID == candidate.PauseID {
			continue
		}
		if PausesOverlap(existing[i], candidate) {
			p := existing[i]
			return &p
		}
	}
	return nil
}

// ShiftDays is the number of days a due date moves: the paused days of every period
// starting on or before that date.
func ShiftDays(periods []domain.PausePeriod, dueDate time.Time) int {
	due := domain.DateOf(dueDate)
	applicable := make([]domain.PausePeriod, 0, len(periods))
	for _, p := range periods {
		if !domain.DateOf(p.StartDate).After(due) {
			applicable = append(applicable, p)
		}
	}
	return TotalPausedDays(applicable)
}
