package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/SscSPs/finance_deal_ledger/internal/core/ports/collaborators"
	"github.com/SscSPs/finance_deal_ledger/internal/dto"
	"github.com/google/uuid"
)

type ledgerService struct {
	*dealEngine
}

func newLedgerService(engine *dealEngine) *ledgerService {
	return &ledgerService{dealEngine: engine}
}

func (s *ledgerService) GetBalances(ctx context.Context, dealID string) (*domain.Balances, error) {
	fd, err := s.deals.FindFinanceDealByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	balances, err := s.balances(ctx, *fd)
	if err != nil {
		return nil, err
	}
	return &balances, nil
}

func (s *ledgerService) ListLedgerEntries(ctx context.Context, dealID string, params dto.ListLedgerEntriesParams) (*dto.ListLedgerEntriesResponse, error) {
	if _, err := s.deals.FindDealByID(ctx, dealID); err != nil {
		return nil, err
	}
	if params.Limit <= 0 {
		params.Limit = 50
	}
	entries, next, err := s.ledger.ListLedgerEntriesPage(ctx, dealID, params.Limit, params.NextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	return &dto.ListLedgerEntriesResponse{Entries: entries, NextToken: next}, nil
}

// RecordLedgerEntry appends a manual charge or correction. Only adjustments may be negative.
func (s *ledgerService) RecordLedgerEntry(ctx context.Context, dealID string, req dto.RecordLedgerEntryRequest, actorID string) (entry *domain.LedgerEntry, err error) {
	defer s.track("record_ledger_entry", &err)()

	entryType, parseErr := domain.ParseEntryType(string(req.EntryType))
	if parseErr != nil || !entryType.IsManual() {
		return nil, apperrors.Newf(apperrors.ErrValidation, apperrors.CodeInvalidInput,
			"entry type %q cannot be recorded manually", req.EntryType)
	}
	if req.Amount.IsZero() || (req.Amount.IsNegative() && !entryType.AllowsNegative()) {
		return nil, apperrors.NewValidation(apperrors.CodeZeroOrNegativeAmount, "amount must be greater than zero")
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		deal, fd, err := s.lockDeal(ctx, dealID)
		if err != nil {
			return err
		}
		if deal.Status == domain.DealStatusNew || deal.Status == domain.DealStatusCancelled {
			return apperrors.Newf(apperrors.ErrPreconditionFailed, apperrors.CodeInvalidTransition,
				"cannot record ledger entries on a %s deal", deal.Status)
		}
		if err := checkPrecision(req.Amount, *fd); err != nil {
			return err
		}

		now := s.now()
		occurredAt := now
		if req.OccurredAt != nil {
			occurredAt = req.OccurredAt.UTC()
		}
		entry = &domain.LedgerEntry{
			EntryID:      uuid.NewString(),
			DealID:       dealID,
			EntryType:    entryType,
			Amount:       req.Amount,
			CurrencyCode: fd.CurrencyCode,
			OccurredAt:   occurredAt,
			Note:         req.Note,
			CreatedAt:    now,
			CreatedBy:    actorID,
		}
		if err := s.ledger.AppendLedgerEntries(ctx, []domain.LedgerEntry{*entry}); err != nil {
			return fmt.Errorf("failed to append ledger entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, collaborators.AuditRecord{
		Action:      "ledger.record",
		EntityTable: "ledger_entries",
		EntityID:    entry.EntryID,
		After:       entry,
		ActorID:     actorID,
	})
	s.LogInfo(ctx, "Ledger entry recorded",
		slog.String("deal_id", dealID),
		slog.String("entry_type", string(entry.EntryType)),
		slog.String("amount", entry.Amount.String()))
	return entry, nil
}

// Disburse books an additional draw on an active deal, optionally paying it out of a cashbox
// in the same transaction.
func (s *ledgerService) Disburse(ctx context.Context, dealID string, req dto.DisburseRequest, actorID string) (resp *dto.DisbursementResponse, err error) {
	defer s.track("disburse", &err)()

	if err := requirePositive(req.Amount); err != nil {
		return nil, err
	}

	resp = &dto.DisbursementResponse{}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		deal, fd, err := s.lockDeal(ctx, dealID)
		if err != nil {
			return err
		}
		if req.RequestID != "" {
			previous, err := s.priorRequest(ctx, dealID, req.RequestID, domain.EntryDisbursement)
			if err != nil {
				return err
			}
			if len(previous) > 0 {
				return s.replayDisbursement(ctx, *fd, req, previous[0], resp)
			}
		}
		if !deal.AcceptsPayments() {
			return apperrors.Newf(apperrors.ErrPreconditionFailed, apperrors.CodeInvalidTransition,
				"cannot disburse on a %s deal", deal.Status)
		}
		if !fd.IsDisbursed() {
			return apperrors.NewPrecondition(apperrors.CodeNotDisbursed, "deal has no disbursement date")
		}
		if err := checkPrecision(req.Amount, *fd); err != nil {
			return err
		}

		now := s.now()
		entry := domain.LedgerEntry{
			EntryID:      uuid.NewString(),
			DealID:       dealID,
			EntryType:    domain.EntryDisbursement,
			Amount:       req.Amount,
			CurrencyCode: fd.CurrencyCode,
			OccurredAt:   now,
			Note:         req.Note,
			CreatedAt:    now,
			CreatedBy:    actorID,
		}
		if req.OccurredAt != nil {
			entry.OccurredAt = req.OccurredAt.UTC()
		}
		requestID := entry.EntryID
		if req.RequestID != "" {
			requestID = req.RequestID
			entry.PaymentID = strPtr(req.RequestID)
		}

		if req.CashboxID != nil && *req.CashboxID != "" {
			res, err := s.moveCash(ctx, collaborators.MoveRequest{
				CashboxID:   *req.CashboxID,
				Amount:      req.Amount.Neg(),
				Category:    collaborators.CategoryDisbursement,
				Description: fmt.Sprintf("Additional disbursement of deal %s", dealID),
				RequestID:   cashboxRequestID("disbursement", dealID, requestID),
			})
			if err != nil {
				return err
			}
			entry.CashboxTxID = strPtr(res.TxID)
			resp.CashboxTxID = entry.CashboxTxID
		}

		if err := s.ledger.AppendLedgerEntries(ctx, []domain.LedgerEntry{entry}); err != nil {
			return fmt.Errorf("failed to append disbursement: %w", err)
		}
		resp.Entry = entry

		balances, err := s.balances(ctx, *fd)
		if err != nil {
			return err
		}
		resp.Balances = balances
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to disburse", slog.String("deal_id", dealID))
		return nil, err
	}

	if resp.Replayed {
		s.LogInfo(ctx, "Disbursement retry answered from ledger",
			slog.String("deal_id", dealID),
			slog.String("request_id", req.RequestID))
		return resp, nil
	}

	s.metrics.AddDisbursed(req.Amount)
	s.recordAudit(ctx, collaborators.AuditRecord{
		Action:      "ledger.disburse",
		EntityTable: "ledger_entries",
		EntityID:    resp.Entry.EntryID,
		After:       resp.Entry,
		ActorID:     actorID,
	})
	return resp, nil
}

// replayDisbursement answers a retried draw from its stored entry. A retry must repeat the
// original amount.
func (s *ledgerService) replayDisbursement(ctx context.Context, fd domain.FinanceDeal, req dto.DisburseRequest, entry domain.LedgerEntry, resp *dto.DisbursementResponse) error {
	if !entry.Amount.Equal(req.Amount) {
		return apperrors.Newf(apperrors.ErrConflict, apperrors.CodeRequestIDReused,
			"request id %s was already used for a draw of %s", req.RequestID, entry.Amount.String())
	}
	balances, err := s.balances(ctx, fd)
	if err != nil {
		return err
	}
	resp.Entry = entry
	resp.CashboxTxID = entry.CashboxTxID
	resp.Balances = balances
	resp.Replayed = true
	return nil
}
