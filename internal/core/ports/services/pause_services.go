package services

import (
	"context"

	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/SscSPs/finance_deal_ledger/internal/dto"
)

// PauseSvcFacade manages pause periods and the Active ⇄ Paused transitions.
type PauseSvcFacade interface {
	ListPauses(ctx context.Context, dealID string) ([]domain.PausePeriod, error)
	PauseDeal(ctx context.Context, dealID string, req dto.PauseDealRequest, actorID string) (*dto.PauseResult, error)
	ResumeDeal(ctx context.Context, dealID string, req dto.ResumeDealRequest, actorID string) (*dto.PauseResult, error)
	DeletePause(ctx context.Context, dealID string, pauseID string, actorID string) (*dto.PauseResult, error)
}
