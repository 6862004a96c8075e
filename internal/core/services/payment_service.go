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
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type paymentService struct {
	*dealEngine
}

func newPaymentService(engine *dealEngine) *paymentService {
	return &paymentService{dealEngine: engine}
}

// RecordPayment allocates a payment oldest-due-first, interest before principal on each line.
// Every allocation step becomes its own ledger entry; money left after the last line is an
// early repayment. A retried RequestID returns the stored result without writing.
func (s *paymentService) RecordPayment(ctx context.Context, dealID string, req dto.RecordPaymentRequest, actorID string) (result *dto.PaymentResult, err error) {
	defer s.track("record_payment", &err)()

	if err := requirePositive(req.Amount); err != nil {
		return nil, err
	}
	paymentID := req.RequestID
	if paymentID == "" {
		paymentID = uuid.NewString()
	}

	var alloc accounting.Allocation
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		deal, fd, err := s.lockDeal(ctx, dealID)
		if err != nil {
			return err
		}

		if req.RequestID != "" {
			previous, err := s.priorRequest(ctx, dealID, paymentID,
				domain.EntryInterestPayment, domain.EntryPrincipalRepayment, domain.EntryEarlyRepayment)
			if err != nil {
				return err
			}
			if len(previous) > 0 {
				result, err = s.replayResult(ctx, *fd, paymentID, previous)
				return err
			}
		}

		if !deal.AcceptsPayments() {
			return apperrors.Newf(apperrors.ErrPreconditionFailed, apperrors.CodeDealNotAcceptingPayments,
				"deal is %s and does not accept payments", deal.Status)
		}
		if err := checkPrecision(req.Amount, *fd); err != nil {
			return err
		}

		lines, err := s.schedule.ListScheduleLines(ctx, dealID)
		if err != nil {
			return fmt.Errorf("failed to list schedule lines: %w", err)
		}
		if len(lines) == 0 {
			return apperrors.NewPrecondition(apperrors.CodeNoSchedule, "deal has no schedule to allocate against")
		}

		alloc = accounting.AllocatePayment(lines, req.Amount)

		result = &dto.PaymentResult{
			PaymentID:      paymentID,
			PrincipalPaid:  alloc.PrincipalPaid.Add(alloc.Remainder),
			InterestPaid:   alloc.InterestPaid,
			EarlyRepayment: alloc.Remainder,
		}

		if req.CashboxID != nil && *req.CashboxID != "" {
			res, err := s.moveCash(ctx, collaborators.MoveRequest{
				CashboxID:   *req.CashboxID,
				Amount:      req.Amount,
				Category:    collaborators.CategoryRepayment,
				Description: fmt.Sprintf("Repayment of deal %s", dealID),
				RequestID:   cashboxRequestID("payment", dealID, paymentID),
			})
			if err != nil {
				return err
			}
			result.CashboxTxID = strPtr(res.TxID)
		}

		now := s.now()
		occurredAt := now
		if req.OccurredAt != nil {
			occurredAt = req.OccurredAt.UTC()
		}
		newEntry := func(entryType domain.EntryType, amount decimal.Decimal, lineID *string) domain.LedgerEntry {
			return domain.LedgerEntry{
				EntryID:        uuid.NewString(),
				DealID:         dealID,
				EntryType:      entryType,
				Amount:         amount,
				CurrencyCode:   fd.CurrencyCode,
				OccurredAt:     occurredAt,
				Note:           req.Note,
				CashboxTxID:    result.CashboxTxID,
				ScheduleLineID: lineID,
				PaymentID:      strPtr(paymentID),
				CreatedAt:      now,
				CreatedBy:      actorID,
			}
		}

		entries := make([]domain.LedgerEntry, 0, len(alloc.Steps)+1)
		for _, step := range alloc.Steps {
			entries = append(entries, newEntry(step.Component.EntryType(), step.Amount, strPtr(step.LineID)))
		}
		if alloc.Remainder.IsPositive() {
			entries = append(entries, newEntry(domain.EntryEarlyRepayment, alloc.Remainder, nil))
		}

		if err := s.ledger.AppendLedgerEntries(ctx, entries); err != nil {
			return fmt.Errorf("failed to append payment entries: %w", err)
		}
		if len(alloc.Touched) > 0 {
			if err := s.schedule.UpdateScheduleLinePayments(ctx, alloc.Touched); err != nil {
				return fmt.Errorf("failed to update schedule lines: %w", err)
			}
		}

		result.LedgerEntryIDs = make([]string, 0, len(entries))
		for _, e := range entries {
			result.LedgerEntryIDs = append(result.LedgerEntryIDs, e.EntryID)
		}
		result.Balances, err = s.balances(ctx, *fd)
		return err
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to record payment",
			slog.String("deal_id", dealID),
			slog.String("amount", req.Amount.String()))
		return nil, err
	}
	if result.Replayed {
		s.LogInfo(ctx, "Payment retry answered from ledger", slog.String("deal_id", dealID), slog.String("payment_id", paymentID))
		return result, nil
	}

	s.metrics.AddPayment(alloc.InterestPaid, alloc.PrincipalPaid, alloc.Remainder)
	s.recordAudit(ctx, collaborators.AuditRecord{
		Action:      "payment.record",
		EntityTable: "ledger_entries",
		EntityID:    paymentID,
		After:       result,
		ActorID:     actorID,
	})
	s.LogInfo(ctx, "Payment recorded",
		slog.String("deal_id", dealID),
		slog.String("payment_id", paymentID),
		slog.String("interest", result.InterestPaid.String()),
		slog.String("principal", result.PrincipalPaid.String()),
		slog.String("early", result.EarlyRepayment.String()))
	return result, nil
}

// replayResult rebuilds the result of an already recorded payment from its ledger entries.
func (s *paymentService) replayResult(ctx context.Context, fd domain.FinanceDeal, paymentID string, entries []domain.LedgerEntry) (*dto.PaymentResult, error) {
	result := &dto.PaymentResult{
		PaymentID:      paymentID,
		PrincipalPaid:  decimal.Zero,
		InterestPaid:   decimal.Zero,
		EarlyRepayment: decimal.Zero,
		LedgerEntryIDs: make([]string, 0, len(entries)),
		Replayed:       true,
	}
	for _, e := range entries {
		result.LedgerEntryIDs = append(result.LedgerEntryIDs, e.EntryID)
		if result.CashboxTxID == nil && e.CashboxTxID != nil {
			result.CashboxTxID = e.CashboxTxID
		}
		switch e.EntryType {
		case domain.EntryInterestPayment:
			result.InterestPaid = result.InterestPaid.Add(e.Amount)
		case domain.EntryPrincipalRepayment:
			result.PrincipalPaid = result.PrincipalPaid.Add(e.Amount)
		case domain.EntryEarlyRepayment:
			result.PrincipalPaid = result.PrincipalPaid.Add(e.Amount)
			result.EarlyRepayment = result.EarlyRepayment.Add(e.Amount)
		case domain.EntryDisbursement, domain.EntryFee, domain.EntryPenalty, domain.EntryAdjustment,
			domain.EntryOffset, domain.EntryCollateralSaleProceeds:
		}
	}
	balances, err := s.balances(ctx, fd)
	if err != nil {
		return nil, err
	}
	result.Balances = balances
	return result, nil
}
