package memory

import (
	"context"
	"sort"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finance_deal_ledger/internal/core/ports/repositories"
)

var _ portsrepo.ScheduleRepositoryFacade = (*Store)(nil)

func (s *Store) ListScheduleLines(ctx context.Context, dealID string) ([]domain.ScheduleLine, error) {
	defer s.lock(ctx)()
	lines := append([]domain.ScheduleLine(nil), s.lines[dealID]...)
	sort.SliceStable(lines, func(i, j int) bool {
		if !lines[i].DueDate.Equal(lines[j].DueDate) {
			return lines[i].DueDate.Before(lines[j].DueDate)
		}
		return lines[i].Seq < lines[j].Seq
	})
	return lines, nil
}

func (s *Store) ReplaceScheduleLines(ctx context.Context, dealID string, lines []domain.ScheduleLine) error {
	defer s.lock(ctx)()
	seen := make(map[int]bool, len(lines))
	for _, l := range lines {
		if seen[l.Seq] {
			return apperrors.Newf(apperrors.ErrDuplicate, apperrors.CodeInvalidInput, "duplicate schedule sequence %d", l.Seq)
		}
		seen[l.Seq] = true
	}
	s.lines[dealID] = append([]domain.ScheduleLine(nil), lines...)
	return nil
}

func (s *Store) UpdateScheduleLinePayments(ctx context.Context, lines []domain.ScheduleLine) error {
	defer s.lock(ctx)()
	for _, updated := range lines {
		stored := s.lines[updated.DealID]
		found := false
		for i := range stored {
			if stored[i].LineID == updated.LineID {
				stored[i].PrincipalPaid = updated.PrincipalPaid
				stored[i].InterestPaid = updated.InterestPaid
				found = true
				break
			}
		}
		if !found {
			return apperrors.NewNotFound("schedule line", updated.LineID)
		}
	}
	return nil
}
