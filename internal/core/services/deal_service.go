package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/SscSPs/finance_deal_ledger/internal/core/ports/collaborators"
	portsrepo "github.com/SscSPs/finance_deal_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/finance_deal_ledger/internal/dto"
	"github.com/SscSPs/finance_deal_ledger/internal/utils/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type dealService struct {
	*dealEngine
	closeRequiresZeroBalance bool
}

func newDealService(engine *dealEngine, closeRequiresZeroBalance bool) *dealService {
	return &dealService{dealEngine: engine, closeRequiresZeroBalance: closeRequiresZeroBalance}
}

func (s *dealService) CreateDeal(ctx context.Context, req dto.CreateDealRequest, actorID string) (resp *dto.DealResponse, err error) {
	defer s.track("create_deal", &err)()

	if strings.TrimSpace(req.Title) == "" {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidInput, "title is required")
	}
	if err := requirePositive(req.Principal); err != nil {
		return nil, err
	}
	if req.TermMonths <= 0 {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidInput, "term must be at least one month")
	}
	if req.InterestRate.IsNegative() {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidInput, "interest rate must not be negative")
	}
	scheduleType, parseErr := domain.ParseScheduleType(string(req.ScheduleType))
	if parseErr != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, apperrors.CodeInvalidInput, "invalid schedule type", parseErr)
	}
	currency := strings.ToUpper(strings.TrimSpace(req.CurrencyCode))
	if len(currency) != 3 {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidInput, "currency code must have three letters")
	}

	now := s.now()
	deal := domain.Deal{
		DealID:             uuid.NewString(),
		Title:              strings.TrimSpace(req.Title),
		ResponsiblePartyID: req.ResponsiblePartyID,
		Status:             domain.DealStatusNew,
		AuditFields:        domain.NewAuditFields(actorID, now),
	}
	fd := domain.FinanceDeal{
		DealID:         deal.DealID,
		ContractNumber: req.ContractNumber,
		Principal:      req.Principal,
		CurrencyCode:   currency,
		TermMonths:     req.TermMonths,
		InterestRate:   req.InterestRate,
		ScheduleType:   scheduleType,
		AuditFields:    domain.NewAuditFields(actorID, now),
	}
	if err := checkPrecision(fd.Principal, fd); err != nil {
		return nil, err
	}

	if err := s.deals.SaveDeal(ctx, deal, fd); err != nil {
		s.LogError(ctx, err, "Failed to save deal", slog.String("deal_id", deal.DealID))
		return nil, fmt.Errorf("failed to save deal: %w", err)
	}

	s.recordAudit(ctx, dealAudit("deal.create", nil, deal, deal.DealID, actorID))
	s.LogInfo(ctx, "Deal created",
		slog.String("deal_id", deal.DealID),
		slog.String("principal", fd.Principal.String()),
		slog.String("schedule_type", string(fd.ScheduleType)))

	return &dto.DealResponse{Deal: deal, Finance: fd, Balances: accounting.ComputeBalances(fd.Principal, nil)}, nil
}

func (s *dealService) GetDeal(ctx context.Context, dealID string) (*dto.DealResponse, error) {
	deal, fd, err := s.loadDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	balances, err := s.balances(ctx, *fd)
	if err != nil {
		return nil, err
	}
	return &dto.DealResponse{Deal: *deal, Finance: *fd, Balances: balances}, nil
}

func (s *dealService) ListDeals(ctx context.Context, params dto.ListDealsParams) (*dto.ListDealsResponse, error) {
	if params.Limit <= 0 {
		params.Limit = 20
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	deals, err := s.deals.ListDeals(ctx, portsrepo.ListDealsFilter{Status: params.Status, Limit: params.Limit, Offset: params.Offset})
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}
	return &dto.ListDealsResponse{Deals: deals, Limit: params.Limit, Offset: params.Offset}, nil
}

func (s *dealService) ActivateDeal(ctx context.Context, dealID string, req dto.ActivateDealRequest, actorID string) (resp *dto.DealResponse, err error) {
	defer s.track("activate_deal", &err)()

	var (
		before    domain.Deal
		principal decimal.Decimal
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		deal, fd, err := s.lockDeal(ctx, dealID)
		if err != nil {
			return err
		}
		before = *deal
		// Paused → Active goes through ResumeDeal; activation only disburses a new deal.
		if deal.Status != domain.DealStatusNew || fd.IsDisbursed() {
			return apperrors.Newf(apperrors.ErrPreconditionFailed, apperrors.CodeInvalidTransition,
				"cannot activate a %s deal", deal.Status)
		}
		if err := s.transition(ctx, deal, domain.DealStatusActive, actorID); err != nil {
			return err
		}

		disbursedOn := s.today()
		if req.DisbursementDate != nil {
			disbursedOn = domain.DateOf(*req.DisbursementDate)
		}

		var cashboxTxID *string
		if req.CashboxID != nil && *req.CashboxID != "" {
			requestID := req.RequestID
			if requestID == "" {
				requestID = "principal"
			}
			res, err := s.moveCash(ctx, collaborators.MoveRequest{
				CashboxID:   *req.CashboxID,
				Amount:      fd.Principal.Neg(),
				Category:    collaborators.CategoryDisbursement,
				Description: fmt.Sprintf("Disbursement of deal %s", dealID),
				RequestID:   cashboxRequestID("activation", dealID, requestID),
			})
			if err != nil {
				return err
			}
			cashboxTxID = strPtr(res.TxID)
		}

		if err := s.deals.UpdateDisbursement(ctx, dealID, disbursedOn, cashboxTxID, actorID, s.now()); err != nil {
			return fmt.Errorf("failed to record disbursement: %w", err)
		}
		fd.DisbursementDate = &disbursedOn
		fd.DisbursementCashboxTxID = cashboxTxID

		if fd.ScheduleType.IsRegenerable() {
			if _, err := s.regenerate(ctx, *fd, triggerActivation); err != nil {
				return err
			}
		}
		principal = fd.Principal
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to activate deal", slog.String("deal_id", dealID))
		return nil, err
	}
	s.metrics.AddDisbursed(principal)

	resp, err = s.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, dealAudit("deal.activate", before, resp.Deal, dealID, actorID))
	s.LogInfo(ctx, "Deal activated", slog.String("deal_id", dealID))
	return resp, nil
}

// CloseDeal moves Active → Closed. With closeRequiresZeroBalance unset, outstanding principal
// only produces a warning.
func (s *dealService) CloseDeal(ctx context.Context, dealID string, actorID string) (closed *domain.Deal, err error) {
	defer s.track("close_deal", &err)()

	var before domain.Deal
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		deal, fd, err := s.lockDeal(ctx, dealID)
		if err != nil {
			return err
		}
		before = *deal
		if !domain.CanTransition(deal.Status, domain.DealStatusClosed) {
			return apperrors.Newf(apperrors.ErrPreconditionFailed, apperrors.CodeInvalidTransition,
				"cannot move deal from %s to %s", deal.Status, domain.DealStatusClosed)
		}

		balances, err := s.balances(ctx, *fd)
		if err != nil {
			return err
		}
		if balances.OutstandingPrincipal.IsPositive() {
			if s.closeRequiresZeroBalance {
				return apperrors.Newf(apperrors.ErrPreconditionFailed, apperrors.CodeOutstandingBalance,
					"deal still has %s %s outstanding", balances.OutstandingPrincipal.String(), fd.CurrencyCode)
			}
			s.LogWarn(ctx, "Closing deal with outstanding principal",
				slog.String("deal_id", dealID),
				slog.String("outstanding", balances.OutstandingPrincipal.String()))
		}

		if err := s.transition(ctx, deal, domain.DealStatusClosed, actorID); err != nil {
			return err
		}
		closed = deal
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, dealAudit("deal.close", before, *closed, dealID, actorID))
	return closed, nil
}

func (s *dealService) CancelDeal(ctx context.Context, dealID string, actorID string) (cancelled *domain.Deal, err error) {
	defer s.track("cancel_deal", &err)()

	var before domain.Deal
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		deal, err := s.deals.LockDealForUpdate(ctx, dealID)
		if err != nil {
			return err
		}
		before = *deal
		if err := s.transition(ctx, deal, domain.DealStatusCancelled, actorID); err != nil {
			return err
		}
		cancelled = deal
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, dealAudit("deal.cancel", before, *cancelled, dealID, actorID))
	return cancelled, nil
}
