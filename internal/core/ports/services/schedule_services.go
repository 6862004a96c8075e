package services

import (
	"context"

	"github.com/SscSPs/finance_deal_ledger/internal/dto"
)

// ScheduleSvcFacade reads and rebuilds amortization schedules.
type ScheduleSvcFacade interface {
	GetSchedule(ctx context.Context, dealID string) (*dto.ScheduleResponse, error)

	// RegenerateSchedule rebuilds a regenerable schedule and re-applies paid-to-date totals.
	RegenerateSchedule(ctx context.Context, dealID string, actorID string) (*dto.ScheduleResponse, error)

	// SetManualSchedule stores caller-provided lines for manual and tranche deals.
	SetManualSchedule(ctx context.Context, dealID string, req dto.SetManualScheduleRequest, actorID string) (*dto.ScheduleResponse, error)
}
