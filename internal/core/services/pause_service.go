package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/SscSPs/finance_deal_ledger/internal/core/ports/collaborators"
	"github.com/SscSPs/finance_deal_ledger/internal/dto"
	"github.com/SscSPs/finance_deal_ledger/internal/utils/accounting"
	"github.com/google/uuid"
)

type pauseService struct {
	*dealEngine
}

func newPauseService(engine *dealEngine) *pauseService {
	return &pauseService{dealEngine: engine}
}

func (s *pauseService) ListPauses(ctx context.Context, dealID string) ([]domain.PausePeriod, error) {
	if _, err := s.deals.FindDealByID(ctx, dealID); err != nil {
		return nil, err
	}
	pauses, err := s.pauses.ListPausesByDeal(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pauses: %w", err)
	}
	return pauses, nil
}

// PauseDeal records a pause period, moves the deal Active → Paused and shifts the schedule.
func (s *pauseService) PauseDeal(ctx context.Context, dealID string, req dto.PauseDealRequest, actorID string) (result *dto.PauseResult, err error) {
	defer s.track("pause_deal", &err)()

	start, end := domain.DateOf(req.StartDate), domain.DateOf(req.EndDate)
	if end.Before(start) {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidInput, "pause end date must not be before its start date")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidInput, "pause reason is required")
	}

	var before domain.Deal
	result = &dto.PauseResult{}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		deal, fd, err := s.lockDeal(ctx, dealID)
		if err != nil {
			return err
		}
		before = *deal
		if !domain.CanTransition(deal.Status, domain.DealStatusPaused) {
			return apperrors.Newf(apperrors.ErrPreconditionFailed, apperrors.CodeInvalidTransition,
				"cannot pause a %s deal", deal.Status)
		}

		existing, err := s.pauses.ListPausesByDeal(ctx, dealID)
		if err != nil {
			return fmt.Errorf("failed to list pauses: %w", err)
		}
		now := s.now()
		pause := domain.PausePeriod{
			PauseID:     uuid.NewString(),
			DealID:      dealID,
			StartDate:   start,
			EndDate:     end,
			Reason:      strings.TrimSpace(req.Reason),
			AuditFields: domain.NewAuditFields(actorID, now),
		}
		if overlap := accounting.FindOverlap(existing, pause); overlap != nil {
			return apperrors.Newf(apperrors.ErrConflict, apperrors.CodePauseOverlap,
				"pause overlaps pause %s (%s to %s)", overlap.PauseID,
				overlap.StartDate.Format("2006-01-02"), overlap.EndDate.Format("2006-01-02"))
		}
		if err := s.pauses.SavePause(ctx, pause); err != nil {
			return fmt.Errorf("failed to save pause: %w", err)
		}
		if err := s.transition(ctx, deal, domain.DealStatusPaused, actorID); err != nil {
			return err
		}

		return s.fillResult(ctx, result, *deal, *fd, &pause, triggerPause)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to pause deal", slog.String("deal_id", dealID))
		return nil, err
	}

	s.recordAudit(ctx,
		dealAudit("deal.pause", before, result.Deal, dealID, actorID),
		collaborators.AuditRecord{Action: "pause.create", EntityTable: "pause_periods", EntityID: result.Pause.PauseID, After: result.Pause, ActorID: actorID},
	)
	return result, nil
}

// ResumeDeal ends the referenced pause (or the one active today) and moves the deal back to
// Active. A pause that has not started yet is removed; a running one ends yesterday.
func (s *pauseService) ResumeDeal(ctx context.Context, dealID string, req dto.ResumeDealRequest, actorID string) (result *dto.PauseResult, err error) {
	defer s.track("resume_deal", &err)()

	var before domain.Deal
	var pauseBefore *domain.PausePeriod
	result = &dto.PauseResult{}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		deal, fd, err := s.lockDeal(ctx, dealID)
		if err != nil {
			return err
		}
		before = *deal
		if deal.Status != domain.DealStatusPaused {
			return apperrors.Newf(apperrors.ErrPreconditionFailed, apperrors.CodeInvalidTransition,
				"cannot resume a %s deal", deal.Status)
		}

		pauses, err := s.pauses.ListPausesByDeal(ctx, dealID)
		if err != nil {
			return fmt.Errorf("failed to list pauses: %w", err)
		}
		today := s.today()

		var target *domain.PausePeriod
		if req.PauseID != nil && *req.PauseID != "" {
			for i := range pauses {
				if pauses[i].PauseID == *req.PauseID {
					target = &pauses[i]
					break
				}
			}
			if target == nil {
				return apperrors.NewNotFound("pause", *req.PauseID)
			}
		} else {
			target = accounting.ActivePause(pauses, today)
		}

		if target != nil {
			p := *target
			pauseBefore = &p
			if !domain.DateOf(target.StartDate).Before(today) {
				if err := s.pauses.DeletePause(ctx, target.PauseID); err != nil {
					return fmt.Errorf("failed to delete pause: %w", err)
				}
			} else if !domain.DateOf(target.EndDate).Before(today) {
				if err := s.pauses.UpdatePauseEnd(ctx, target.PauseID, today.AddDate(0, 0, -1), actorID, s.now()); err != nil {
					return fmt.Errorf("failed to end pause: %w", err)
				}
			}
		}

		remaining, err := s.pauses.ListPausesByDeal(ctx, dealID)
		if err != nil {
			return fmt.Errorf("failed to list pauses: %w", err)
		}
		if still := accounting.ActivePause(remaining, today); still != nil {
			return apperrors.Newf(apperrors.ErrPreconditionFailed, apperrors.CodePauseStillActive,
				"pause %s is still active", still.PauseID)
		}

		if err := s.transition(ctx, deal, domain.DealStatusActive, actorID); err != nil {
			return err
		}
		return s.fillResult(ctx, result, *deal, *fd, nil, triggerResume)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to resume deal", slog.String("deal_id", dealID))
		return nil, err
	}

	records := []collaborators.AuditRecord{dealAudit("deal.resume", before, result.Deal, dealID, actorID)}
	if pauseBefore != nil {
		records = append(records, collaborators.AuditRecord{Action: "pause.end", EntityTable: "pause_periods", EntityID: pauseBefore.PauseID, Before: pauseBefore, ActorID: actorID})
	}
	s.recordAudit(ctx, records...)
	return result, nil
}

// DeletePause removes a pause and realigns the schedule. A pause that is already over can only
// be removed when the schedule is regenerable. A Paused deal left without a current or
// upcoming pause returns to Active.
func (s *pauseService) DeletePause(ctx context.Context, dealID string, pauseID string, actorID string) (result *dto.PauseResult, err error) {
	defer s.track("delete_pause", &err)()

	var removed domain.PausePeriod
	result = &dto.PauseResult{}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		deal, fd, err := s.lockDeal(ctx, dealID)
		if err != nil {
			return err
		}
		if !deal.AcceptsPayments() {
			return apperrors.Newf(apperrors.ErrPreconditionFailed, apperrors.CodeInvalidTransition,
				"cannot delete pauses of a %s deal", deal.Status)
		}

		pause, err := s.pauses.FindPauseByID(ctx, pauseID)
		if err != nil {
			return err
		}
		if pause.DealID != dealID {
			return apperrors.NewNotFound("pause", pauseID)
		}
		today := s.today()
		if pause.IsPastOn(today) && !fd.ScheduleType.IsRegenerable() {
			return apperrors.NewPrecondition(apperrors.CodePauseNotRemovable,
				"a past pause already shifted a schedule that cannot be regenerated")
		}
		removed = *pause

		if err := s.pauses.DeletePause(ctx, pauseID); err != nil {
			return fmt.Errorf("failed to delete pause: %w", err)
		}

		if deal.Status == domain.DealStatusPaused {
			remaining, err := s.pauses.ListPausesByDeal(ctx, dealID)
			if err != nil {
				return fmt.Errorf("failed to list pauses: %w", err)
			}
			pending := false
			for _, p := range remaining {
				if !p.IsPastOn(today) {
					pending = true
					break
				}
			}
			if !pending {
				if err := s.transition(ctx, deal, domain.DealStatusActive, actorID); err != nil {
					return err
				}
			}
		}

		return s.fillResult(ctx, result, *deal, *fd, nil, triggerDelete)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to delete pause", slog.String("deal_id", dealID), slog.String("pause_id", pauseID))
		return nil, err
	}

	s.recordAudit(ctx, collaborators.AuditRecord{
		Action:      "pause.delete",
		EntityTable: "pause_periods",
		EntityID:    pauseID,
		Before:      removed,
		ActorID:     actorID,
	})
	return result, nil
}

// fillResult refreshes the schedule and reports the deal's pause state.
func (s *pauseService) fillResult(ctx context.Context, result *dto.PauseResult, deal domain.Deal, fd domain.FinanceDeal, pause *domain.PausePeriod, trigger string) error {
	lines, refreshed, err := s.refreshSchedule(ctx, fd, trigger)
	if err != nil {
		return err
	}
	pauses, err := s.pauses.ListPausesByDeal(ctx, fd.DealID)
	if err != nil {
		return fmt.Errorf("failed to list pauses: %w", err)
	}

	result.Deal = deal
	result.Pause = pause
	result.Pauses = pauses
	result.ScheduleRegenerated = refreshed && fd.ScheduleType.IsRegenerable()
	if refreshed {
		result.Schedule = dto.NewScheduleResponse(fd, lines, accounting.TotalPausedDays(pauses), s.now())
	}
	return nil
}
