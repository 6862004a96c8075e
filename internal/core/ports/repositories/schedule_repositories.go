package repositories

import (
	"context"

	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
)

// ScheduleReader defines read operations for schedule lines.
type ScheduleReader interface {
	// ListScheduleLines returns the deal's lines ordered by due date, then sequence.
	ListScheduleLines(ctx context.Context, dealID string) ([]domain.ScheduleLine, error)
}

// ScheduleWriter defines write operations for schedule lines.
type ScheduleWriter interface {
	// ReplaceScheduleLines deletes the deal's lines and inserts the given set.
	ReplaceScheduleLines(ctx context.Context, dealID string, lines []domain.ScheduleLine) error

	// UpdateScheduleLinePayments stores the paid amounts of the given lines.
	UpdateScheduleLinePayments(ctx context.Context, lines []domain.ScheduleLine) error
}

// ScheduleRepositoryFacade combines all schedule repository interfaces.
type ScheduleRepositoryFacade interface {
	ScheduleReader
	ScheduleWriter
}
