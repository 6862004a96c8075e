package dto

import (
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
)

// PauseDealRequest opens a pause period.
type PauseDealRequest struct {
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required"`
	Reason    string    `json:"reason" binding:"required"`
}

// ResumeDealRequest resumes a paused deal. Without PauseID the currently active pause is used.
type ResumeDealRequest struct {
	PauseID *string `json:"pauseID"`
}

// PauseResult is the outcome of pause, resume and delete-pause operations.
type PauseResult struct {
	Deal                domain.Deal          `json:"deal"`
	Pause               *domain.PausePeriod  `json:"pause,omitempty"`
	Pauses              []domain.PausePeriod `json:"pauses"`
	ScheduleRegenerated bool                 `json:"scheduleRegenerated"`
	Schedule            *ScheduleResponse    `json:"schedule,omitempty"`
}
