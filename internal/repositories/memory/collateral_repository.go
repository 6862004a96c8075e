package memory

import (
	"context"
	"sort"
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finance_deal_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

var _ portsrepo.CollateralRepositoryFacade = (*Store)(nil)

func (s *Store) FindCollateralLinkByID(ctx context.Context, linkID string) (*domain.CollateralLink, error) {
	defer s.lock(ctx)()
	link, ok := s.links[linkID]
	if !ok {
		return nil, apperrors.NewNotFound("collateral link", linkID)
	}
	return &link, nil
}

func (s *Store) ListCollateralLinksByDeal(ctx context.Context, dealID string) ([]domain.CollateralLink, error) {
	defer s.lock(ctx)()
	return s.filterLinks(func(l domain.CollateralLink) bool { return l.DealID == dealID }), nil
}

func (s *Store) ListActiveCollateralLinks(ctx context.Context) ([]domain.CollateralLink, error) {
	defer s.lock(ctx)()
	return s.filterLinks(func(l domain.CollateralLink) bool { return l.Status == domain.CollateralActive }), nil
}

func (s *Store) FindActiveLinkByAsset(ctx context.Context, assetID string) (*domain.CollateralLink, error) {
	defer s.lock(ctx)()
	for _, l := range s.links {
		if l.AssetID == assetID && l.Status == domain.CollateralActive {
			link := l
			return &link, nil
		}
	}
	return nil, apperrors.NewNotFound("active collateral link for asset", assetID)
}

func (s *Store) ListCollateralChain(ctx context.Context, dealID string) ([]domain.CollateralChainEvent, error) {
	defer s.lock(ctx)()
	out := make([]domain.CollateralChainEvent, 0)
	for _, e := range s.chain {
		if e.DealID == dealID {
			out = append(out, e)
		}
	}
	return out, nil
}

// SaveCollateralLink enforces one Active link per asset, like the partial unique index in postgres.
func (s *Store) SaveCollateralLink(ctx context.Context, link domain.CollateralLink) error {
	defer s.lock(ctx)()
	if _, exists := s.links[link.LinkID]; exists {
		return apperrors.Newf(apperrors.ErrDuplicate, apperrors.CodeInvalidInput, "collateral link %s already exists", link.LinkID)
	}
	if link.Status == domain.CollateralActive {
		for _, l := range s.links {
			if l.AssetID == link.AssetID && l.Status == domain.CollateralActive {
				return apperrors.NewConflict(apperrors.CodeAssetAlreadyPledged, "asset is already pledged by an active collateral link")
			}
		}
	}
	s.links[link.LinkID] = link
	return nil
}

func (s *Store) UpdateCollateralLinkStatus(ctx context.Context, linkID string, status domain.CollateralStatus, endDate *time.Time, expectedVersion int64, actorID string, now time.Time) error {
	defer s.lock(ctx)()
	link, ok := s.links[linkID]
	if !ok {
		return apperrors.NewNotFound("collateral link", linkID)
	}
	if link.Version != expectedVersion {
		return apperrors.NewConflict(apperrors.CodeStaleCollateralLink, "collateral link was modified concurrently")
	}
	link.Status = status
	link.EndDate = endDate
	link.Version++
	link.Touch(actorID, now)
	s.links[linkID] = link
	return nil
}

func (s *Store) ForecloseActiveLinks(ctx context.Context, dealID string, actorID string, now time.Time) ([]string, error) {
	defer s.lock(ctx)()
	ids := make([]string, 0)
	for id, l := range s.links {
		if l.DealID != dealID || l.Status != domain.CollateralActive {
			continue
		}
		end := now
		l.Status = domain.CollateralForeclosed
		l.EndDate = &end
		l.Version++
		l.Touch(actorID, now)
		s.links[id] = l
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// UpdateCollateralEvaluation stores the latest LTV. It does not bump the version: evaluation
// never changes status, so it must not invalidate a concurrent replacement.
func (s *Store) UpdateCollateralEvaluation(ctx context.Context, linkID string, ltv decimal.Decimal, evaluatedAt time.Time) error {
	defer s.lock(ctx)()
	link, ok := s.links[linkID]
	if !ok {
		return apperrors.NewNotFound("collateral link", linkID)
	}
	link.LastLTV = &ltv
	link.LastEvaluatedAt = &evaluatedAt
	s.links[linkID] = link
	return nil
}

func (s *Store) AppendChainEvent(ctx context.Context, event domain.CollateralChainEvent) error {
	defer s.lock(ctx)()
	s.chain = append(s.chain, event)
	return nil
}

func (s *Store) filterLinks(keep func(domain.CollateralLink) bool) []domain.CollateralLink {
	out := make([]domain.CollateralLink, 0)
	for _, l := range s.links {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].LinkID < out[j].LinkID
	})
	return out
}
