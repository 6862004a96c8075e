package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/SscSPs/finance_deal_ledger/internal/core/ports/collaborators"
	portsrepo "github.com/SscSPs/finance_deal_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/finance_deal_ledger/internal/utils/accounting"
	"github.com/shopspring/decimal"
)

// Regeneration triggers, used as metric labels.
const (
	triggerActivation = "activation"
	triggerManual     = "manual"
	triggerPause      = "pause"
	triggerResume     = "resume"
	triggerDelete     = "pause_delete"
)

// dealEngine holds the repositories shared by every deal service and the operations
// they compose: locking, balance computation, transitions and schedule rebuilds.
type dealEngine struct {
	BaseService
	tx       portsrepo.TransactionManager
	deals    portsrepo.DealRepositoryFacade
	ledger   portsrepo.LedgerRepositoryFacade
	schedule portsrepo.ScheduleRepositoryFacade
	pauses   portsrepo.PauseRepositoryFacade
	cashbox  collaborators.Cashbox
}

// lockDeal takes the per-deal row lock and loads the contract terms. Must run inside WithinTx.
func (e *dealEngine) lockDeal(ctx context.Context, dealID string) (*domain.Deal, *domain.FinanceDeal, error) {
	deal, err := e.deals.LockDealForUpdate(ctx, dealID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock deal %s: %w", dealID, err)
	}
	fd, err := e.deals.FindFinanceDealByID(ctx, dealID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load finance terms of deal %s: %w", dealID, err)
	}
	return deal, fd, nil
}

// loadDeal reads a deal and its terms without locking.
func (e *dealEngine) loadDeal(ctx context.Context, dealID string) (*domain.Deal, *domain.FinanceDeal, error) {
	deal, err := e.deals.FindDealByID(ctx, dealID)
	if err != nil {
		return nil, nil, err
	}
	fd, err := e.deals.FindFinanceDealByID(ctx, dealID)
	if err != nil {
		return nil, nil, err
	}
	return deal, fd, nil
}

func (e *dealEngine) balances(ctx context.Context, fd domain.FinanceDeal) (domain.Balances, error) {
	entries, err := e.ledger.ListLedgerEntriesByDeal(ctx, fd.DealID)
	if err != nil {
		return domain.Balances{}, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return accounting.ComputeBalances(fd.Principal, entries), nil
}

// transition persists a status change allowed by the lifecycle table.
func (e *dealEngine) transition(ctx context.Context, deal *domain.Deal, to domain.DealStatus, actorID string) error {
	if !domain.CanTransition(deal.Status, to) {
		return apperrors.Newf(apperrors.ErrPreconditionFailed, apperrors.CodeInvalidTransition,
			"cannot move deal from %s to %s", deal.Status, to)
	}
	now := e.now()
	if err := e.deals.UpdateDealStatus(ctx, deal.DealID, to, actorID, now); err != nil {
		return fmt.Errorf("failed to update deal status: %w", err)
	}
	deal.Status = to
	deal.Touch(actorID, now)
	return nil
}

// regenerate rebuilds a regenerable schedule: fresh lines, pause shift, then paid-to-date
// totals re-applied oldest-first. Payment history that no longer fits is a conflict and
// nothing is written. Must run inside WithinTx.
func (e *dealEngine) regenerate(ctx context.Context, fd domain.FinanceDeal, trigger string) ([]domain.ScheduleLine, error) {
	terms, err := accounting.TermsFromFinanceDeal(fd)
	if err != nil {
		return nil, err
	}
	fresh, err := accounting.GenerateSchedule(terms)
	if err != nil {
		return nil, err
	}
	pauses, err := e.pauses.ListPausesByDeal(ctx, fd.DealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pauses: %w", err)
	}
	entries, err := e.ledger.ListLedgerEntriesByDeal(ctx, fd.DealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	principalPaid, interestPaid := accounting.PaidTotals(entries)
	lines, leftPrincipal, leftInterest := accounting.ReapplyPaidTotals(
		accounting.ApplyPauseShift(fresh, pauses), principalPaid, interestPaid)
	if leftPrincipal.IsPositive() || leftInterest.IsPositive() {
		return nil, apperrors.Newf(apperrors.ErrConflict, apperrors.CodePaymentHistoryOverflow,
			"recorded payments exceed the regenerated schedule (principal %s, interest %s left over)",
			leftPrincipal.String(), leftInterest.String())
	}

	if err := e.schedule.ReplaceScheduleLines(ctx, fd.DealID, lines); err != nil {
		return nil, fmt.Errorf("failed to replace schedule lines: %w", err)
	}
	e.metrics.IncRegeneration(trigger)
	e.LogDebug(ctx, "Schedule regenerated",
		slog.String("deal_id", fd.DealID),
		slog.String("trigger", trigger),
		slog.Int("lines", len(lines)))
	return lines, nil
}

// refreshSchedule brings the schedule in line with the deal's pauses. Regenerable schedules
// are rebuilt; manual and tranche lines keep their amounts and only move their due dates.
// It reports whether anything was rewritten.
func (e *dealEngine) refreshSchedule(ctx context.Context, fd domain.FinanceDeal, trigger string) ([]domain.ScheduleLine, bool, error) {
	if fd.ScheduleType.IsRegenerable() {
		if !fd.IsDisbursed() {
			return nil, false, nil
		}
		lines, err := e.regenerate(ctx, fd, trigger)
		if err != nil {
			return nil, false, err
		}
		return lines, true, nil
	}

	lines, err := e.schedule.ListScheduleLines(ctx, fd.DealID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list schedule lines: %w", err)
	}
	if len(lines) == 0 {
		return lines, false, nil
	}
	pauses, err := e.pauses.ListPausesByDeal(ctx, fd.DealID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list pauses: %w", err)
	}
	shifted := accounting.SortLines(accounting.ApplyPauseShift(lines, pauses))
	if err := e.schedule.ReplaceScheduleLines(ctx, fd.DealID, shifted); err != nil {
		return nil, false, fmt.Errorf("failed to replace schedule lines: %w", err)
	}
	return shifted, true, nil
}

// cashboxRequestID scopes a caller's request id to one operation on one deal. Cashbox
// request ids are unique across all deals.
func cashboxRequestID(operation, dealID, requestID string) string {
	return operation + ":" + dealID + ":" + requestID
}

// moveCash runs a cashbox movement inside the caller's transaction and maps its failures.
// A replayed movement is a conflict: callers check their own ledger for retries first.
func (e *dealEngine) moveCash(ctx context.Context, req collaborators.MoveRequest) (*collaborators.MoveResult, error) {
	if e.cashbox == nil {
		return nil, apperrors.New(apperrors.ErrCollaboratorFailure, apperrors.CodeCashboxUnavailable, "no cashbox is configured")
	}
	res, err := e.cashbox.Move(ctx, req)
	if err == nil {
		if res.Replayed {
			return nil, apperrors.Newf(apperrors.ErrConflict, apperrors.CodeCashboxMovementReplayed,
				"cashbox movement %s was already recorded without a matching ledger entry", req.RequestID)
		}
		return res, nil
	}
	switch {
	case errors.Is(err, collaborators.ErrRequestMismatch):
		return nil, apperrors.Wrap(apperrors.ErrConflict, apperrors.CodeRequestIDReused,
			fmt.Sprintf("request id %s was already used for a different cashbox movement", req.RequestID), err)
	case errors.Is(err, collaborators.ErrInsufficientFunds):
		return nil, apperrors.Wrap(apperrors.ErrCollaboratorFailure, apperrors.CodeCashboxInsufficientFunds,
			fmt.Sprintf("cashbox %s has insufficient funds", req.CashboxID), err)
	case errors.Is(err, apperrors.ErrNotFound):
		return nil, err
	default:
		return nil, apperrors.Wrap(apperrors.ErrCollaboratorFailure, apperrors.CodeCashboxUnavailable, "cashbox movement failed", err)
	}
}

// checkPrecision rejects amounts with more decimals than the currency allows.
func checkPrecision(amount decimal.Decimal, fd domain.FinanceDeal) error {
	if !amount.Equal(amount.Round(fd.Precision())) {
		return apperrors.Newf(apperrors.ErrValidation, apperrors.CodeInvalidInput,
			"amount %s exceeds %s precision of %d decimals", amount.String(), fd.CurrencyCode, fd.Precision())
	}
	return nil
}

func requirePositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.NewValidation(apperrors.CodeZeroOrNegativeAmount, "amount must be greater than zero")
	}
	return nil
}

func dealAudit(action string, before, after any, dealID, actorID string) collaborators.AuditRecord {
	return collaborators.AuditRecord{
		Action:      action,
		EntityTable: "deals",
		EntityID:    dealID,
		Before:      before,
		After:       after,
		ActorID:     actorID,
	}
}

func strPtr(s string) *string {
	return &s
}

// priorRequest returns the entries an earlier request with requestID wrote on the deal.
// Entries of any type outside allowed mean the id belongs to another kind of operation.
func (e *dealEngine) priorRequest(ctx context.Context, dealID, requestID string, allowed ...domain.EntryType) ([]domain.LedgerEntry, error) {
	entries, err := e.ledger.FindLedgerEntriesByPaymentID(ctx, dealID, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up request %s: %w", requestID, err)
	}
	for _, entry := range entries {
		if !slices.Contains(allowed, entry.EntryType) {
			return nil, apperrors.Newf(apperrors.ErrConflict, apperrors.CodeRequestIDReused,
				"request id %s was already used for a %s entry", requestID, entry.EntryType)
		}
	}
	return entries, nil
}
