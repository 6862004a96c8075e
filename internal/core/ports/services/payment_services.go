package services

import (
	"context"

	"github.com/SscSPs/finance_deal_ledger/internal/dto"
)

// PaymentSvcFacade allocates incoming cash over the schedule.
type PaymentSvcFacade interface {
	// RecordPayment allocates amount oldest-due-first, interest before principal per line,
	// and books any remainder as an early repayment.
	RecordPayment(ctx context.Context, dealID string, req dto.RecordPaymentRequest, actorID string) (*dto.PaymentResult, error)
}
