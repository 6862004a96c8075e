package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/SscSPs/finance_deal_ledger/internal/core/ports/collaborators"
	"github.com/SscSPs/finance_deal_ledger/internal/dto"
	"github.com/SscSPs/finance_deal_ledger/internal/utils/accounting"
)

type scheduleService struct {
	*dealEngine
}

func newScheduleService(engine *dealEngine) *scheduleService {
	return &scheduleService{dealEngine: engine}
}

func (s *scheduleService) GetSchedule(ctx context.Context, dealID string) (*dto.ScheduleResponse, error) {
	fd, err := s.deals.FindFinanceDealByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	return s.scheduleResponse(ctx, *fd, nil)
}

func (s *scheduleService) RegenerateSchedule(ctx context.Context, dealID string, actorID string) (resp *dto.ScheduleResponse, err error) {
	defer s.track("regenerate_schedule", &err)()

	var lines []domain.ScheduleLine
	var fd *domain.FinanceDeal
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var deal *domain.Deal
		deal, fd, err = s.lockDeal(ctx, dealID)
		if err != nil {
			return err
		}
		if deal.Status.IsTerminal() {
			return apperrors.Newf(apperrors.ErrPreconditionFailed, apperrors.CodeInvalidTransition,
				"cannot regenerate the schedule of a %s deal", deal.Status)
		}
		if !fd.ScheduleType.IsRegenerable() {
			return apperrors.Newf(apperrors.ErrUnsupportedOperation, apperrors.CodeUnsupportedScheduleType,
				"schedule type %s cannot be regenerated", fd.ScheduleType)
		}
		lines, err = s.regenerate(ctx, *fd, triggerManual)
		return err
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to regenerate schedule", slog.String("deal_id", dealID))
		return nil, err
	}

	s.recordAudit(ctx, collaborators.AuditRecord{
		Action:      "schedule.regenerate",
		EntityTable: "schedule_lines",
		EntityID:    dealID,
		After:       lines,
		ActorID:     actorID,
	})
	return s.scheduleResponse(ctx, *fd, lines)
}

// SetManualSchedule stores caller-provided lines for manual and tranche deals. It is refused
// once payments were allocated, since their line attribution would be lost.
func (s *scheduleService) SetManualSchedule(ctx context.Context, dealID string, req dto.SetManualScheduleRequest, actorID string) (resp *dto.ScheduleResponse, err error) {
	defer s.track("set_manual_schedule", &err)()

	input := make([]accounting.ManualLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		input = append(input, accounting.ManualLine{DueDate: l.DueDate, PrincipalDue: l.PrincipalDue, InterestDue: l.InterestDue})
	}

	var before, lines []domain.ScheduleLine
	var fd *domain.FinanceDeal
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var deal *domain.Deal
		deal, fd, err = s.lockDeal(ctx, dealID)
		if err != nil {
			return err
		}
		if deal.Status.IsTerminal() {
			return apperrors.Newf(apperrors.ErrPreconditionFailed, apperrors.CodeInvalidTransition,
				"cannot change the schedule of a %s deal", deal.Status)
		}
		if fd.ScheduleType.IsRegenerable() {
			return apperrors.Newf(apperrors.ErrUnsupportedOperation, apperrors.CodeUnsupportedScheduleType,
				"schedule type %s is generated, not set manually", fd.ScheduleType)
		}

		entries, err := s.ledger.ListLedgerEntriesByDeal(ctx, dealID)
		if err != nil {
			return fmt.Errorf("failed to list ledger entries: %w", err)
		}
		if principalPaid, interestPaid := accounting.PaidTotals(entries); principalPaid.IsPositive() || interestPaid.IsPositive() {
			return apperrors.NewPrecondition(apperrors.CodeScheduleHasPayments, "payments were already allocated to the schedule")
		}

		built, err := accounting.BuildManualSchedule(dealID, fd.Principal, input, fd.Precision())
		if err != nil {
			return err
		}
		pauses, err := s.pauses.ListPausesByDeal(ctx, dealID)
		if err != nil {
			return fmt.Errorf("failed to list pauses: %w", err)
		}
		lines = accounting.SortLines(accounting.ApplyPauseShift(built, pauses))

		before, err = s.schedule.ListScheduleLines(ctx, dealID)
		if err != nil {
			return fmt.Errorf("failed to list schedule lines: %w", err)
		}
		if err := s.schedule.ReplaceScheduleLines(ctx, dealID, lines); err != nil {
			return fmt.Errorf("failed to replace schedule lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, collaborators.AuditRecord{
		Action:      "schedule.set_manual",
		EntityTable: "schedule_lines",
		EntityID:    dealID,
		Before:      before,
		After:       lines,
		ActorID:     actorID,
	})
	return s.scheduleResponse(ctx, *fd, lines)
}

// scheduleResponse decorates lines with status and totals; nil lines are loaded.
func (s *scheduleService) scheduleResponse(ctx context.Context, fd domain.FinanceDeal, lines []domain.ScheduleLine) (*dto.ScheduleResponse, error) {
	if lines == nil {
		var err error
		lines, err = s.schedule.ListScheduleLines(ctx, fd.DealID)
		if err != nil {
			return nil, fmt.Errorf("failed to list schedule lines: %w", err)
		}
	}
	pauses, err := s.pauses.ListPausesByDeal(ctx, fd.DealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pauses: %w", err)
	}
	return dto.NewScheduleResponse(fd, lines, accounting.TotalPausedDays(pauses), s.now()), nil
}
