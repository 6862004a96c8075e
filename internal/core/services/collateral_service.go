package services

import (
	"context"
	"errors"
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

type collateralService struct {
	*dealEngine
	collateral        portsrepo.CollateralRepositoryFacade
	valuations        collaborators.AssetValuationStore
	ltvAlertThreshold decimal.Decimal
}

func newCollateralService(engine *dealEngine, collateral portsrepo.CollateralRepositoryFacade, valuations collaborators.AssetValuationStore, ltvAlertThreshold decimal.Decimal) *collateralService {
	return &collateralService{
		dealEngine:        engine,
		collateral:        collateral,
		valuations:        valuations,
		ltvAlertThreshold: ltvAlertThreshold,
	}
}

func (s *collateralService) ListCollateral(ctx context.Context, dealID string) ([]domain.CollateralLink, error) {
	if _, err := s.deals.FindDealByID(ctx, dealID); err != nil {
		return nil, err
	}
	links, err := s.collateral.ListCollateralLinksByDeal(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collateral links: %w", err)
	}
	return links, nil
}

func (s *collateralService) GetCollateralChain(ctx context.Context, dealID string) ([]domain.CollateralChainEvent, error) {
	if _, err := s.deals.FindDealByID(ctx, dealID); err != nil {
		return nil, err
	}
	events, err := s.collateral.ListCollateralChain(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collateral chain: %w", err)
	}
	return events, nil
}

// PledgeCollateral links an asset that is not pledged anywhere else to a live deal,
// snapshotting its current valuation and LTV.
func (s *collateralService) PledgeCollateral(ctx context.Context, dealID string, req dto.PledgeCollateralRequest, actorID string) (link *domain.CollateralLink, err error) {
	defer s.track("pledge_collateral", &err)()

	assetID := strings.TrimSpace(req.AssetID)
	if assetID == "" {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidInput, "asset id is required")
	}
	if req.PledgedUnits.IsNegative() {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidInput, "pledged units must not be negative")
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		deal, fd, err := s.lockDeal(ctx, dealID)
		if err != nil {
			return err
		}
		if deal.Status.IsTerminal() {
			return apperrors.Newf(apperrors.ErrPreconditionFailed, apperrors.CodeInvalidTransition,
				"cannot pledge collateral to a %s deal", deal.Status)
		}
		if err := s.ensureAssetFree(ctx, assetID); err != nil {
			return err
		}
		created, err := s.newLink(ctx, *fd, assetID, req.PledgedUnits, actorID)
		if err != nil {
			return err
		}
		if err := s.collateral.SaveCollateralLink(ctx, *created); err != nil {
			return fmt.Errorf("failed to save collateral link: %w", err)
		}
		link = created
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to pledge collateral", slog.String("deal_id", dealID), slog.String("asset_id", assetID))
		return nil, err
	}

	s.recordAudit(ctx, collaborators.AuditRecord{Action: "collateral.pledge", EntityTable: "collateral_links", EntityID: link.LinkID, After: link, ActorID: actorID})
	return link, nil
}

// EvaluateCollateral computes LTV = outstanding / valuation-at-pledge × 100 and stores it on
// the link. The link status never changes.
func (s *collateralService) EvaluateCollateral(ctx context.Context, linkID string, outstanding *decimal.Decimal) (result *dto.EvaluationResult, err error) {
	defer s.track("evaluate_collateral", &err)()

	link, err := s.collateral.FindCollateralLinkByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	exposure, err := s.exposure(ctx, link.DealID, outstanding, nil)
	if err != nil {
		return nil, err
	}
	return s.evaluate(ctx, *link, exposure)
}

// EvaluateActiveCollateral re-evaluates every Active link. Links above the alert threshold are
// logged and audited; individual failures are counted and do not stop the batch.
func (s *collateralService) EvaluateActiveCollateral(ctx context.Context) (batch *dto.BatchEvaluationResult, err error) {
	defer s.track("evaluate_active_collateral", &err)()

	links, err := s.collateral.ListActiveCollateralLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active collateral links: %w", err)
	}

	batch = &dto.BatchEvaluationResult{AboveThreshold: []dto.EvaluationResult{}}
	exposures := make(map[string]decimal.Decimal)
	for _, link := range links {
		exposure, err := s.exposure(ctx, link.DealID, nil, exposures)
		if err != nil {
			batch.Failed++
			s.LogError(ctx, err, "Failed to compute exposure", slog.String("link_id", link.LinkID), slog.String("deal_id", link.DealID))
			continue
		}
		res, err := s.evaluate(ctx, link, exposure)
		if err != nil {
			batch.Failed++
			s.LogError(ctx, err, "Failed to evaluate collateral link", slog.String("link_id", link.LinkID))
			continue
		}
		batch.Evaluated++
		if res.AboveThreshold {
			batch.AboveThreshold = append(batch.AboveThreshold, *res)
			s.LogWarn(ctx, "Collateral LTV above alert threshold",
				slog.String("link_id", link.LinkID),
				slog.String("deal_id", link.DealID),
				slog.String("ltv", res.LTV.String()),
				slog.String("threshold", s.ltvAlertThreshold.String()))
			s.recordAudit(ctx, collaborators.AuditRecord{Action: "collateral.ltv_alert", EntityTable: "collateral_links", EntityID: link.LinkID, After: res})
		}
	}

	s.LogInfo(ctx, "Collateral evaluation finished",
		slog.Int("evaluated", batch.Evaluated),
		slog.Int("failed", batch.Failed),
		slog.Int("above_threshold", len(batch.AboveThreshold)))
	return batch, nil
}

// ReplaceCollateral substitutes the asset of an Active link in one transaction: the old link
// becomes Replaced, a new Active link is created and the substitution is appended to the chain.
func (s *collateralService) ReplaceCollateral(ctx context.Context, dealID string, linkID string, req dto.ReplaceCollateralRequest, actorID string) (result *dto.ReplaceCollateralResult, err error) {
	defer s.track("replace_collateral", &err)()

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidInput, "replacement reason is required")
	}
	newAssetID := strings.TrimSpace(req.NewAssetID)
	if newAssetID == "" {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidInput, "new asset id is required")
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		deal, fd, err := s.lockDeal(ctx, dealID)
		if err != nil {
			return err
		}
		if deal.Status.IsTerminal() {
			return apperrors.Newf(apperrors.ErrPreconditionFailed, apperrors.CodeInvalidTransition,
				"cannot replace collateral of a %s deal", deal.Status)
		}

		old, err := s.collateral.FindCollateralLinkByID(ctx, linkID)
		if err != nil {
			return err
		}
		if old.DealID != dealID {
			return apperrors.NewNotFound("collateral link", linkID)
		}
		if old.Status != domain.CollateralActive {
			return apperrors.Newf(apperrors.ErrPreconditionFailed, apperrors.CodeLinkNotActive,
				"collateral link is %s", old.Status)
		}
		if req.ExpectedVersion != nil && *req.ExpectedVersion != old.Version {
			return apperrors.NewConflict(apperrors.CodeStaleCollateralLink, "collateral link was modified since it was read")
		}
		if newAssetID == old.AssetID {
			return apperrors.NewValidation(apperrors.CodeInvalidInput, "new asset must differ from the replaced asset")
		}
		if err := s.ensureAssetFree(ctx, newAssetID); err != nil {
			return err
		}

		units := old.PledgedUnits
		if req.PledgedUnits != nil {
			units = *req.PledgedUnits
		}
		created, err := s.newLink(ctx, *fd, newAssetID, units, actorID)
		if err != nil {
			return err
		}

		now := s.now()
		if err := s.collateral.UpdateCollateralLinkStatus(ctx, old.LinkID, domain.CollateralReplaced, &now, old.Version, actorID, now); err != nil {
			return err
		}
		if err := s.collateral.SaveCollateralLink(ctx, *created); err != nil {
			return fmt.Errorf("failed to save replacement link: %w", err)
		}
		event := domain.CollateralChainEvent{
			EventID:    uuid.NewString(),
			DealID:     dealID,
			OldLinkID:  old.LinkID,
			NewLinkID:  created.LinkID,
			OldAssetID: old.AssetID,
			NewAssetID: created.AssetID,
			Reason:     reason,
			OccurredAt: now,
			ActorID:    actorID,
		}
		if err := s.collateral.AppendChainEvent(ctx, event); err != nil {
			return fmt.Errorf("failed to append chain event: %w", err)
		}

		replaced := *old
		replaced.Status = domain.CollateralReplaced
		replaced.EndDate = &now
		replaced.Version++
		replaced.Touch(actorID, now)
		result = &dto.ReplaceCollateralResult{OldLink: replaced, NewLink: *created, Event: event}
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to replace collateral", slog.String("deal_id", dealID), slog.String("link_id", linkID))
		return nil, err
	}

	s.recordAudit(ctx,
		collaborators.AuditRecord{Action: "collateral.replace", EntityTable: "collateral_links", EntityID: linkID, After: result.OldLink, ActorID: actorID},
		collaborators.AuditRecord{Action: "collateral.pledge", EntityTable: "collateral_links", EntityID: result.NewLink.LinkID, After: result.NewLink, ActorID: actorID},
		collaborators.AuditRecord{Action: "collateral.chain", EntityTable: "collateral_chain_events", EntityID: result.Event.EventID, After: result.Event, ActorID: actorID},
	)
	return result, nil
}

func (s *collateralService) ReleaseCollateral(ctx context.Context, linkID string, actorID string) (link *domain.CollateralLink, err error) {
	defer s.track("release_collateral", &err)()

	var before domain.CollateralLink
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.collateral.FindCollateralLinkByID(ctx, linkID)
		if err != nil {
			return err
		}
		if _, err := s.deals.LockDealForUpdate(ctx, current.DealID); err != nil {
			return err
		}
		// re-read under the deal lock
		current, err = s.collateral.FindCollateralLinkByID(ctx, linkID)
		if err != nil {
			return err
		}
		if current.Status != domain.CollateralActive {
			return apperrors.Newf(apperrors.ErrPreconditionFailed, apperrors.CodeLinkNotActive,
				"collateral link is %s", current.Status)
		}
		before = *current

		now := s.now()
		if err := s.collateral.UpdateCollateralLinkStatus(ctx, linkID, domain.CollateralReleased, &now, current.Version, actorID, now); err != nil {
			return err
		}
		link, err = s.collateral.FindCollateralLinkByID(ctx, linkID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, collaborators.AuditRecord{Action: "collateral.release", EntityTable: "collateral_links", EntityID: linkID, Before: before, After: link, ActorID: actorID})
	return link, nil
}

// DefaultWithSideEffects moves an Active or Paused deal to Defaulted and forecloses all of its
// Active links in the same transaction.
func (s *collateralService) DefaultWithSideEffects(ctx context.Context, dealID string, actorID string) (result *dto.DefaultResult, err error) {
	defer s.track("default_deal", &err)()

	var before domain.Deal
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		deal, err := s.deals.LockDealForUpdate(ctx, dealID)
		if err != nil {
			return err
		}
		before = *deal
		if err := s.transition(ctx, deal, domain.DealStatusDefaulted, actorID); err != nil {
			return err
		}
		ids, err := s.collateral.ForecloseActiveLinks(ctx, dealID, actorID, s.now())
		if err != nil {
			return fmt.Errorf("failed to foreclose collateral: %w", err)
		}
		result = &dto.DefaultResult{Deal: *deal, ForeclosedLinkIDs: ids}
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to default deal", slog.String("deal_id", dealID))
		return nil, err
	}

	records := []collaborators.AuditRecord{dealAudit("deal.default", before, result.Deal, dealID, actorID)}
	for _, id := range result.ForeclosedLinkIDs {
		records = append(records, collaborators.AuditRecord{Action: "collateral.foreclose", EntityTable: "collateral_links", EntityID: id, ActorID: actorID})
	}
	s.recordAudit(ctx, records...)
	s.LogWarn(ctx, "Deal defaulted", slog.String("deal_id", dealID), slog.Int("foreclosed_links", len(result.ForeclosedLinkIDs)))
	return result, nil
}

// RecordCollateralSale books the proceeds of selling a foreclosed asset against the deal.
func (s *collateralService) RecordCollateralSale(ctx context.Context, linkID string, req dto.RecordCollateralSaleRequest, actorID string) (result *dto.CollateralSaleResult, err error) {
	defer s.track("record_collateral_sale", &err)()

	if err := requirePositive(req.Amount); err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		link, err := s.collateral.FindCollateralLinkByID(ctx, linkID)
		if err != nil {
			return err
		}
		_, fd, err := s.lockDeal(ctx, link.DealID)
		if err != nil {
			return err
		}
		if req.RequestID != "" {
			previous, err := s.priorRequest(ctx, link.DealID, req.RequestID, domain.EntryCollateralSaleProceeds)
			if err != nil {
				return err
			}
			if len(previous) > 0 {
				result, err = s.replaySale(ctx, *fd, linkID, req, previous[0])
				return err
			}
		}
		if link.Status != domain.CollateralForeclosed {
			return apperrors.Newf(apperrors.ErrPreconditionFailed, apperrors.CodeLinkNotForeclosed,
				"collateral link is %s, sale proceeds need a foreclosed link", link.Status)
		}
		if err := checkPrecision(req.Amount, *fd); err != nil {
			return err
		}

		now := s.now()
		entry := domain.LedgerEntry{
			EntryID:          uuid.NewString(),
			DealID:           link.DealID,
			EntryType:        domain.EntryCollateralSaleProceeds,
			Amount:           req.Amount,
			CurrencyCode:     fd.CurrencyCode,
			OccurredAt:       now,
			Note:             req.Note,
			CollateralLinkID: strPtr(link.LinkID),
			CreatedAt:        now,
			CreatedBy:        actorID,
		}
		if req.OccurredAt != nil {
			entry.OccurredAt = req.OccurredAt.UTC()
		}
		requestID := entry.EntryID
		if req.RequestID != "" {
			requestID = req.RequestID
			entry.PaymentID = strPtr(req.RequestID)
		}
		result = &dto.CollateralSaleResult{}

		if req.CashboxID != nil && *req.CashboxID != "" {
			res, err := s.moveCash(ctx, collaborators.MoveRequest{
				CashboxID:   *req.CashboxID,
				Amount:      req.Amount,
				Category:    collaborators.CategoryCollateralSale,
				Description: fmt.Sprintf("Sale of collateral %s for deal %s", link.AssetID, link.DealID),
				RequestID:   cashboxRequestID("collateral_sale", link.DealID, requestID),
			})
			if err != nil {
				return err
			}
			entry.CashboxTxID = strPtr(res.TxID)
			result.CashboxTxID = entry.CashboxTxID
		}

		if err := s.ledger.AppendLedgerEntries(ctx, []domain.LedgerEntry{entry}); err != nil {
			return fmt.Errorf("failed to append sale proceeds: %w", err)
		}
		result.Entry = entry
		result.Balances, err = s.balances(ctx, *fd)
		return err
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to record collateral sale", slog.String("link_id", linkID))
		return nil, err
	}

	if result.Replayed {
		s.LogInfo(ctx, "Collateral sale retry answered from ledger",
			slog.String("link_id", linkID),
			slog.String("request_id", req.RequestID))
		return result, nil
	}

	s.recordAudit(ctx, collaborators.AuditRecord{Action: "collateral.sale", EntityTable: "ledger_entries", EntityID: result.Entry.EntryID, After: result.Entry, ActorID: actorID})
	return result, nil
}

// replaySale answers a retried sale from its stored entry. The retry must name the same link
// and amount.
func (s *collateralService) replaySale(ctx context.Context, fd domain.FinanceDeal, linkID string, req dto.RecordCollateralSaleRequest, entry domain.LedgerEntry) (*dto.CollateralSaleResult, error) {
	if entry.CollateralLinkID == nil || *entry.CollateralLinkID != linkID || !entry.Amount.Equal(req.Amount) {
		return nil, apperrors.Newf(apperrors.ErrConflict, apperrors.CodeRequestIDReused,
			"request id %s was already used for another collateral sale", req.RequestID)
	}
	balances, err := s.balances(ctx, fd)
	if err != nil {
		return nil, err
	}
	return &dto.CollateralSaleResult{
		Entry:       entry,
		CashboxTxID: entry.CashboxTxID,
		Balances:    balances,
		Replayed:    true,
	}, nil
}

func (s *collateralService) UpsertAssetValuation(ctx context.Context, assetID string, req dto.UpsertAssetValuationRequest, actorID string) (valuation *domain.AssetValuation, err error) {
	defer s.track("upsert_asset_valuation", &err)()

	assetID = strings.TrimSpace(assetID)
	if assetID == "" {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidInput, "asset id is required")
	}
	if req.Valuation.IsNegative() {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidInput, "valuation must not be negative")
	}
	currency := strings.ToUpper(strings.TrimSpace(req.CurrencyCode))
	if len(currency) != 3 {
		return nil, apperrors.NewValidation(apperrors.CodeInvalidInput, "currency code must have three letters")
	}

	valuedAt := s.now()
	if req.ValuedAt != nil {
		valuedAt = req.ValuedAt.UTC()
	}
	v := domain.AssetValuation{
		AssetID:      assetID,
		Name:         req.Name,
		Valuation:    req.Valuation,
		CurrencyCode: currency,
		ValuedAt:     valuedAt,
	}
	if err := s.valuations.UpsertAssetValuation(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to store asset valuation: %w", err)
	}

	s.recordAudit(ctx, collaborators.AuditRecord{Action: "asset.valuation", EntityTable: "asset_valuations", EntityID: assetID, After: v, ActorID: actorID})
	return &v, nil
}

// ensureAssetFree fails with a conflict when the asset backs an Active link anywhere.
func (s *collateralService) ensureAssetFree(ctx context.Context, assetID string) error {
	existing, err := s.collateral.FindActiveLinkByAsset(ctx, assetID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check asset %s: %w", assetID, err)
	default:
		return apperrors.Newf(apperrors.ErrConflict, apperrors.CodeAssetAlreadyPledged,
			"asset %s is already pledged by link %s", assetID, existing.LinkID)
	}
}

// newLink builds an Active link valued at the asset's current valuation.
func (s *collateralService) newLink(ctx context.Context, fd domain.FinanceDeal, assetID string, units decimal.Decimal, actorID string) (*domain.CollateralLink, error) {
	valuation, err := s.valuations.GetAssetValuation(ctx, assetID)
	if err != nil {
		return nil, err
	}
	balances, err := s.balances(ctx, fd)
	if err != nil {
		return nil, err
	}
	ltv, err := accounting.LoanToValue(balances.OutstandingPrincipal, valuation.Valuation)
	if err != nil {
		return nil, err
	}

	now := s.now()
	return &domain.CollateralLink{
		LinkID:            uuid.NewString(),
		DealID:            fd.DealID,
		AssetID:           assetID,
		Status:            domain.CollateralActive,
		ValuationAtPledge: valuation.Valuation,
		LTVAtPledge:       ltv,
		PledgedUnits:      units,
		StartDate:         now,
		AuditFields:       domain.NewAuditFields(actorID, now),
	}, nil
}

// exposure returns the supplied outstanding principal or computes it from the ledger,
// caching per deal when cache is not nil.
func (s *collateralService) exposure(ctx context.Context, dealID string, supplied *decimal.Decimal, cache map[string]decimal.Decimal) (decimal.Decimal, error) {
	if supplied != nil {
		return *supplied, nil
	}
	if v, ok := cache[dealID]; ok {
		return v, nil
	}
	fd, err := s.deals.FindFinanceDealByID(ctx, dealID)
	if err != nil {
		return decimal.Zero, err
	}
	balances, err := s.balances(ctx, *fd)
	if err != nil {
		return decimal.Zero, err
	}
	if cache != nil {
		cache[dealID] = balances.OutstandingPrincipal
	}
	return balances.OutstandingPrincipal, nil
}

func (s *collateralService) evaluate(ctx context.Context, link domain.CollateralLink, outstanding decimal.Decimal) (*dto.EvaluationResult, error) {
	ltv, err := accounting.LoanToValue(outstanding, link.ValuationAtPledge)
	if err != nil {
		return nil, err
	}
	evaluatedAt := s.now()
	if err := s.collateral.UpdateCollateralEvaluation(ctx, link.LinkID, ltv, evaluatedAt); err != nil {
		return nil, fmt.Errorf("failed to store evaluation: %w", err)
	}
	above := accounting.ExceedsThreshold(ltv, s.ltvAlertThreshold)
	s.metrics.ObserveLTV(ltv, above)
	return &dto.EvaluationResult{
		LinkID:               link.LinkID,
		LTV:                  ltv,
		OutstandingPrincipal: outstanding,
		ValuationAtPledge:    link.ValuationAtPledge,
		EvaluatedAt:          evaluatedAt,
		AboveThreshold:       above,
	}, nil
}
