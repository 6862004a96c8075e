package domain

import "time"

// PausePeriod is an inclusive date range during which the deal's clock is stopped.
type PausePeriod struct {
	PauseID   string    `json:"pauseID"`
	DealID    string    `json:"dealID"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Reason    string    `json:"reason"`
	AuditFields
}

// Days is the inclusive number of calendar days covered.
func (p PausePeriod) Days() int {
	start, end := DateOf(p.StartDate), DateOf(p.EndDate)
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// IsActiveOn reports whether asOf falls inside the period.
func (p PausePeriod) IsActiveOn(asOf time.Time) bool {
	day := DateOf(asOf)
	return !day.Before(DateOf(p.StartDate)) && !day.After(DateOf(p.EndDate))
}

// IsFutureOn reports whether the period has not started by asOf.
func (p PausePeriod) IsFutureOn(asOf time.Time) bool {
	return DateOf(p.StartDate).After(DateOf(asOf))
}

// IsPastOn reports whether the period ended before asOf.
func (p PausePeriod) IsPastOn(asOf time.Time) bool {
	return DateOf(p.EndDate).Before(DateOf(asOf))
}
