package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/SscSPs/finance_deal_ledger/internal/core/ports/collaborators"
	portsrepo "github.com/SscSPs/finance_deal_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func listFilter(status *domain.DealStatus, limit, offset int) portsrepo.ListDealsFilter {
	return portsrepo.ListDealsFilter{Status: status, Limit: limit, Offset: offset}
}

func seedDeal(t *testing.T, s *Store, id string) {
	t.Helper()
	require.NoError(t, s.SaveDeal(context.Background(),
		domain.Deal{DealID: id, Title: "deal " + id, Status: domain.DealStatusNew, AuditFields: domain.NewAuditFields("u1", now)},
		domain.FinanceDeal{DealID: id, Principal: decimal.NewFromInt(1000), CurrencyCode: "USD", TermMonths: 12, ScheduleType: domain.ScheduleTypeAnnuity},
	))
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	s := NewStore()
	seedDeal(t, s, "d1")
	s.SeedCashbox("cb", decimal.NewFromInt(100))

	boom := errors.New("boom")
	err := s.WithinTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, s.UpdateDealStatus(ctx, "d1", domain.DealStatusActive, "u1", now))
		_, err := s.Move(ctx, collaborators.MoveRequest{CashboxID: "cb", Amount: decimal.NewFromInt(-40)})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	deal, err := s.FindDealByID(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, domain.DealStatusNew, deal.Status)
	bal, _ := s.CashboxBalance("cb")
	assert.True(t, bal.Equal(decimal.NewFromInt(100)))
}

func TestWithinTx_NestedJoinsOuter(t *testing.T) {
	s := NewStore()
	seedDeal(t, s, "d1")

	err := s.WithinTx(context.Background(), func(ctx context.Context) error {
		if err := s.WithinTx(ctx, func(inner context.Context) error {
			return s.UpdateDealStatus(inner, "d1", domain.DealStatusActive, "u1", now)
		}); err != nil {
			return err
		}
		return errors.New("outer fails")
	})
	require.Error(t, err)

	deal, _ := s.FindDealByID(context.Background(), "d1")
	assert.Equal(t, domain.DealStatusNew, deal.Status, "inner work must roll back with the outer transaction")
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	s := NewStore()
	seedDeal(t, s, "d1")

	require.NoError(t, s.WithinTx(context.Background(), func(ctx context.Context) error {
		return s.UpdateDealStatus(ctx, "d1", domain.DealStatusActive, "u1", now)
	}))
	deal, _ := s.FindDealByID(context.Background(), "d1")
	assert.Equal(t, domain.DealStatusActive, deal.Status)
}

func TestSaveDeal_Duplicate(t *testing.T) {
	s := NewStore()
	seedDeal(t, s, "d1")
	err := s.SaveDeal(context.Background(), domain.Deal{DealID: "d1"}, domain.FinanceDeal{DealID: "d1"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)
}

func TestListDeals_FilterAndPaging(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("d%d", i)
		require.NoError(t, s.SaveDeal(ctx,
			domain.Deal{DealID: id, Status: domain.DealStatusNew, AuditFields: domain.NewAuditFields("u1", now.Add(time.Duration(i)*time.Minute))},
			domain.FinanceDeal{DealID: id}))
	}
	require.NoError(t, s.UpdateDealStatus(ctx, "d2", domain.DealStatusActive, "u1", now))

	active := domain.DealStatusActive
	deals, err := s.ListDeals(ctx, listFilter(&active, 10, 0))
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, "d2", deals[0].DealID)

	deals, err = s.ListDeals(ctx, listFilter(nil, 2, 1))
	require.NoError(t, err)
	require.Len(t, deals, 2)
	assert.Equal(t, "d3", deals[0].DealID, "newest first")
	assert.Equal(t, "d2", deals[1].DealID)

	deals, err = s.ListDeals(ctx, listFilter(nil, 2, 10))
	require.NoError(t, err)
	assert.Empty(t, deals)
}

func TestLedgerPagination(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	var entries []domain.LedgerEntry
	for i := 0; i < 5; i++ {
		entries = append(entries, domain.LedgerEntry{
			EntryID:    fmt.Sprintf("e%d", i),
			DealID:     "d1",
			EntryType:  domain.EntryFee,
			Amount:     decimal.NewFromInt(1),
			OccurredAt: now.Add(time.Duration(i/2) * time.Hour),
		})
	}
	require.NoError(t, s.AppendLedgerEntries(ctx, entries))

	var seen []string
	var token *string
	for page := 0; page < 5; page++ {
		got, next, err := s.ListLedgerEntriesPage(ctx, "d1", 2, token)
		require.NoError(t, err)
		for _, e := range got {
			seen = append(seen, e.EntryID)
		}
		if next == nil {
			break
		}
		token = next
	}
	assert.Equal(t, []string{"e0", "e1", "e2", "e3", "e4"}, seen)

	bad := "%%%"
	_, _, err := s.ListLedgerEntriesPage(ctx, "d1", 2, &bad)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAppendLedgerEntries_DuplicateID(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	e := domain.LedgerEntry{EntryID: "e1", DealID: "d1", EntryType: domain.EntryFee, Amount: decimal.NewFromInt(1), OccurredAt: now}
	require.NoError(t, s.AppendLedgerEntries(ctx, []domain.LedgerEntry{e}))
	assert.ErrorIs(t, s.AppendLedgerEntries(ctx, []domain.LedgerEntry{e}), apperrors.ErrDuplicate)
}

func TestSavePause_RejectsOverlap(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	p1 := domain.PausePeriod{PauseID: "p1", DealID: "d1", StartDate: now, EndDate: now.AddDate(0, 0, 10)}
	require.NoError(t, s.SavePause(ctx, p1))

	p2 := domain.PausePeriod{PauseID: "p2", DealID: "d1", StartDate: now.AddDate(0, 0, 10), EndDate: now.AddDate(0, 0, 20)}
	err := s.SavePause(ctx, p2)
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, apperrors.CodePauseOverlap, apperrors.CodeOf(err))

	otherDeal := p2
	otherDeal.PauseID, otherDeal.DealID = "p3", "d2"
	assert.NoError(t, s.SavePause(ctx, otherDeal))
}

func TestCollateral_ActiveAssetUniqueAndVersioned(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	link := domain.CollateralLink{LinkID: "l1", DealID: "d1", AssetID: "a1", Status: domain.CollateralActive, ValuationAtPledge: decimal.NewFromInt(100), StartDate: now}
	require.NoError(t, s.SaveCollateralLink(ctx, link))

	dup := link
	dup.LinkID, dup.DealID = "l2", "d2"
	err := s.SaveCollateralLink(ctx, dup)
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, apperrors.CodeAssetAlreadyPledged, apperrors.CodeOf(err))

	require.NoError(t, s.UpdateCollateralLinkStatus(ctx, "l1", domain.CollateralReleased, &now, 0, "u1", now))
	err = s.UpdateCollateralLinkStatus(ctx, "l1", domain.CollateralReplaced, &now, 0, "u1", now)
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, apperrors.CodeStaleCollateralLink, apperrors.CodeOf(err))

	require.NoError(t, s.SaveCollateralLink(ctx, dup), "released asset can be pledged again")
}

func TestForecloseActiveLinks(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.SaveCollateralLink(ctx, domain.CollateralLink{LinkID: "l1", DealID: "d1", AssetID: "a1", Status: domain.CollateralActive, StartDate: now}))
	require.NoError(t, s.SaveCollateralLink(ctx, domain.CollateralLink{LinkID: "l2", DealID: "d1", AssetID: "a2", Status: domain.CollateralReleased, StartDate: now}))
	require.NoError(t, s.SaveCollateralLink(ctx, domain.CollateralLink{LinkID: "l3", DealID: "d2", AssetID: "a3", Status: domain.CollateralActive, StartDate: now}))

	ids, err := s.ForecloseActiveLinks(ctx, "d1", "u1", now)
	require.NoError(t, err)
	assert.Equal(t, []string{"l1"}, ids)

	l1, _ := s.FindCollateralLinkByID(ctx, "l1")
	assert.Equal(t, domain.CollateralForeclosed, l1.Status)
	assert.Equal(t, int64(1), l1.Version)
	l3, _ := s.FindCollateralLinkByID(ctx, "l3")
	assert.Equal(t, domain.CollateralActive, l3.Status)
}

func TestCashboxMove(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.SeedCashbox("cb", decimal.NewFromInt(50))

	res, err := s.Move(ctx, collaborators.MoveRequest{CashboxID: "cb", Amount: decimal.NewFromInt(-30), RequestID: "r1"})
	require.NoError(t, err)
	assert.True(t, res.NewBalance.Equal(decimal.NewFromInt(20)))
	assert.False(t, res.Replayed)

	replay, err := s.Move(ctx, collaborators.MoveRequest{CashboxID: "cb", Amount: decimal.NewFromInt(-30), RequestID: "r1"})
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, res.TxID, replay.TxID)

	_, err = s.Move(ctx, collaborators.MoveRequest{CashboxID: "cb", Amount: decimal.NewFromInt(-21), RequestID: "r2"})
	assert.ErrorIs(t, err, collaborators.ErrInsufficientFunds)

	_, err = s.Move(ctx, collaborators.MoveRequest{CashboxID: "missing", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	bal, _ := s.CashboxBalance("cb")
	assert.True(t, bal.Equal(decimal.NewFromInt(20)))
}

func TestCashboxMove_RequestIDReusedForDifferentMovement(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.SeedCashbox("cb", decimal.NewFromInt(100))
	s.SeedCashbox("other", decimal.NewFromInt(100))

	_, err := s.Move(ctx, collaborators.MoveRequest{CashboxID: "cb", Amount: decimal.NewFromInt(-30), RequestID: "r1"})
	require.NoError(t, err)

	_, err = s.Move(ctx, collaborators.MoveRequest{CashboxID: "cb", Amount: decimal.NewFromInt(-40), RequestID: "r1"})
	assert.ErrorIs(t, err, collaborators.ErrRequestMismatch)
	_, err = s.Move(ctx, collaborators.MoveRequest{CashboxID: "other", Amount: decimal.NewFromInt(-30), RequestID: "r1"})
	assert.ErrorIs(t, err, collaborators.ErrRequestMismatch)

	cb, _ := s.CashboxBalance("cb")
	assert.True(t, cb.Equal(decimal.NewFromInt(70)))
	other, _ := s.CashboxBalance("other")
	assert.True(t, other.Equal(decimal.NewFromInt(100)))
}
