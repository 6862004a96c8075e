package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
)

// PauseReader defines read operations for pause periods.
type PauseReader interface {
	ListPausesByDeal(ctx context.Context, dealID string) ([]domain.PausePeriod, error)
	FindPauseByID(ctx context.Context, pauseID string) (*domain.PausePeriod, error)
}

// PauseWriter defines write operations for pause periods.
type PauseWriter interface {
	SavePause(ctx context.Context, pause domain.PausePeriod) error
	UpdatePauseEnd(ctx context.Context, pauseID string, endDate time.Time, actorID string, now time.Time) error
	DeletePause(ctx context.Context, pauseID string) error
}

// PauseRepositoryFacade combines all pause repository interfaces.
type PauseRepositoryFacade interface {
	PauseReader
	PauseWriter
}
