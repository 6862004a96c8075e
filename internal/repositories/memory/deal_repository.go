package memory

import (
	"context"
	"sort"
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finance_deal_ledger/internal/core/ports/repositories"
)

var _ portsrepo.DealRepositoryFacade = (*Store)(nil)

func (s *Store) FindDealByID(ctx context.Context, dealID string) (*domain.Deal, error) {
	defer s.lock(ctx)()
	deal, ok := s.deals[dealID]
	if !ok {
		return nil, apperrors.NewNotFound("deal", dealID)
	}
	return &deal, nil
}

func (s *Store) FindFinanceDealByID(ctx context.Context, dealID string) (*domain.FinanceDeal, error) {
	defer s.lock(ctx)()
	fd, ok := s.finance[dealID]
	if !ok {
		return nil, apperrors.NewNotFound("finance deal", dealID)
	}
	return &fd, nil
}

func (s *Store) ListDeals(ctx context.Context, filter portsrepo.ListDealsFilter) ([]domain.Deal, error) {
	defer s.lock(ctx)()
	deals := make([]domain.Deal, 0, len(s.deals))
	for _, d := range s.deals {
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		deals = append(deals, d)
	}
	sort.Slice(deals, func(i, j int) bool {
		if !deals[i].CreatedAt.Equal(deals[j].CreatedAt) {
			return deals[i].CreatedAt.After(deals[j].CreatedAt)
		}
		return deals[i].DealID < deals[j].DealID
	})

	if filter.Offset >= len(deals) {
		return []domain.Deal{}, nil
	}
	deals = deals[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(deals) {
		deals = deals[:filter.Limit]
	}
	return deals, nil
}

func (s *Store) SaveDeal(ctx context.Context, deal domain.Deal, finance domain.FinanceDeal) error {
	defer s.lock(ctx)()
	if _, exists := s.deals[deal.DealID]; exists {
		return apperrors.Newf(apperrors.ErrDuplicate, apperrors.CodeInvalidInput, "deal %s already exists", deal.DealID)
	}
	s.deals[deal.DealID] = deal
	s.finance[deal.DealID] = finance
	return nil
}

func (s *Store) UpdateDealStatus(ctx context.Context, dealID string, status domain.DealStatus, actorID string, now time.Time) error {
	defer s.lock(ctx)()
	deal, ok := s.deals[dealID]
	if !ok {
		return apperrors.NewNotFound("deal", dealID)
	}
	deal.Status = status
	deal.Touch(actorID, now)
	s.deals[dealID] = deal
	return nil
}

func (s *Store) UpdateDisbursement(ctx context.Context, dealID string, disbursedOn time.Time, cashboxTxID *string, actorID string, now time.Time) error {
	defer s.lock(ctx)()
	fd, ok := s.finance[dealID]
	if !ok {
		return apperrors.NewNotFound("finance deal", dealID)
	}
	day := domain.DateOf(disbursedOn)
	fd.DisbursementDate = &day
	fd.DisbursementCashboxTxID = cashboxTxID
	fd.Touch(actorID, now)
	s.finance[dealID] = fd
	return nil
}

// LockDealForUpdate reads the deal. Inside a transaction the store lock already serializes writers.
func (s *Store) LockDealForUpdate(ctx context.Context, dealID string) (*domain.Deal, error) {
	return s.FindDealByID(ctx, dealID)
}
