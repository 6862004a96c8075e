package memory

import (
	"context"
	"sort"
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finance_deal_ledger/internal/core/ports/repositories"
)

var _ portsrepo.PauseRepositoryFacade = (*Store)(nil)

func (s *Store) ListPausesByDeal(ctx context.Context, dealID string) ([]domain.PausePeriod, error) {
	defer s.lock(ctx)()
	out := make([]domain.PausePeriod, 0)
	for _, p := range s.pauses {
		if p.DealID == dealID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (s *Store) FindPauseByID(ctx context.Context, pauseID string) (*domain.PausePeriod, error) {
	defer s.lock(ctx)()
	p, ok := s.pauses[pauseID]
	if !ok {
		return nil, apperrors.NewNotFound("pause", pauseID)
	}
	return &p, nil
}

// SavePause rejects periods overlapping another pause of the same deal, like the
// exclusion constraint of the postgres schema.
func (s *Store) SavePause(ctx context.Context, pause domain.PausePeriod) error {
	defer s.lock(ctx)()
	if err := s.checkPauseOverlap(pause); err != nil {
		return err
	}
	s.pauses[pause.PauseID] = pause
	return nil
}

func (s *Store) UpdatePauseEnd(ctx context.Context, pauseID string, endDate time.Time, actorID string, now time.Time) error {
	defer s.lock(ctx)()
	p, ok := s.pauses[pauseID]
	if !ok {
		return apperrors.NewNotFound("pause", pauseID)
	}
	p.EndDate = domain.DateOf(endDate)
	if err := s.checkPauseOverlap(p); err != nil {
		return err
	}
	p.Touch(actorID, now)
	s.pauses[pauseID] = p
	return nil
}

func (s *Store) DeletePause(ctx context.Context, pauseID string) error {
	defer s.lock(ctx)()
	if _, ok := s.pauses[pauseID]; !ok {
		return apperrors.NewNotFound("pause", pauseID)
	}
	delete(s.pauses, pauseID)
	return nil
}

func (s *Store) checkPauseOverlap(candidate domain.PausePeriod) error {
	for _, p := range s.pauses {
		if p.DealID != candidate.DealID || p.PauseID == candidate.PauseID {
			continue
		}
		if !domain.DateOf(p.StartDate).After(domain.DateOf(candidate.EndDate)) &&
			!domain.DateOf(candidate.StartDate).After(domain.DateOf(p.EndDate)) {
			return apperrors.NewConflict(apperrors.CodePauseOverlap, "pause overlaps an existing pause")
		}
	}
	return nil
}
