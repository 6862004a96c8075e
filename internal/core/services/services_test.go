package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/SscSPs/finance_deal_ledger/internal/core/ports/collaborators"
	portssvc "github.com/SscSPs/finance_deal_ledger/internal/core/ports/services"
	"github.com/SscSPs/finance_deal_ledger/internal/core/services"
	"github.com/SscSPs/finance_deal_ledger/internal/dto"
	"github.com/SscSPs/finance_deal_ledger/internal/observability"
	"github.com/SscSPs/finance_deal_ledger/internal/repositories/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

var (
	fixedNow    = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	disbursedOn = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
)

const actor = "user-1"

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// --- Mock AuditSink ---
type MockAuditSink struct {
	mock.Mock
}

func (m *MockAuditSink) Record(ctx context.Context, record collaborators.AuditRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

var _ collaborators.AuditSink = (*MockAuditSink)(nil)

// disbursementFailingStore fails the disbursement write after the cashbox has already moved.
type disbursementFailingStore struct {
	*memory.Store
}

func (f disbursementFailingStore) UpdateDisbursement(ctx context.Context, dealID string, disbursedOn time.Time, cashboxTxID *string, actorID string, now time.Time) error {
	return errors.New("disk full")
}

// --- Test Suite ---
type DealEngineTestSuite struct {
	suite.Suite
	ctx   context.Context
	store *memory.Store
	svc   *portssvc.ServiceContainer
}

func (s *DealEngineTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	s.svc = s.newContainer()
}

func (s *DealEngineTestSuite) newContainer(options ...services.ServiceOption) *portssvc.ServiceContainer {
	opts := append([]services.ServiceOption{
		services.WithClock(func() time.Time { return fixedNow }),
	}, options...)
	return services.NewServiceContainer(nil, memory.NewRepositoryProvider(s.store), opts...)
}

func (s *DealEngineTestSuite) createDeal(principal string, term int, rate string, scheduleType domain.ScheduleType) string {
	resp, err := s.svc.Deal.CreateDeal(s.ctx, dto.CreateDealRequest{
		Title:              "Equipment loan",
		ResponsiblePartyID: "party-1",
		ContractNumber:     "C-001",
		Principal:          dec(principal),
		CurrencyCode:       "usd",
		TermMonths:         term,
		InterestRate:       dec(rate),
		ScheduleType:       scheduleType,
	}, actor)
	s.Require().NoError(err)
	s.Require().Equal(domain.DealStatusNew, resp.Deal.Status)
	return resp.Deal.DealID
}

func (s *DealEngineTestSuite) activate(dealID string) {
	d := disbursedOn
	_, err := s.svc.Deal.ActivateDeal(s.ctx, dealID, dto.ActivateDealRequest{DisbursementDate: &d}, actor)
	s.Require().NoError(err)
}

// scenarioADeal is 12,000 over 12 months at 0% with equal principal.
func (s *DealEngineTestSuite) scenarioADeal() string {
	dealID := s.createDeal("12000", 12, "0", domain.ScheduleTypeEqualPrincipal)
	s.activate(dealID)
	return dealID
}

func (s *DealEngineTestSuite) pledge(dealID, assetID, valuation string) *domain.CollateralLink {
	_, err := s.svc.Collateral.UpsertAssetValuation(s.ctx, assetID, dto.UpsertAssetValuationRequest{
		Name:         assetID,
		Valuation:    dec(valuation),
		CurrencyCode: "USD",
	}, actor)
	s.Require().NoError(err)
	link, err := s.svc.Collateral.PledgeCollateral(s.ctx, dealID, dto.PledgeCollateralRequest{AssetID: assetID, PledgedUnits: dec("1")}, actor)
	s.Require().NoError(err)
	return link
}

func (s *DealEngineTestSuite) assertDecimal(expected string, actual decimal.Decimal, msgAndArgs ...any) {
	s.True(dec(expected).Equal(actual), append([]any{"expected %s, got %s", expected, actual.String()}, msgAndArgs...)...)
}

func (s *DealEngineTestSuite) assertCode(err error, kind error, code string) {
	s.Require().Error(err)
	s.ErrorIs(err, kind)
	s.Equal(code, apperrors.CodeOf(err))
}

func TestDealEngineTestSuite(t *testing.T) {
	suite.Run(t, new(DealEngineTestSuite))
}

// --- Deals ---

func (s *DealEngineTestSuite) TestCreateDeal_NewDealOutstandingIsPrincipal() {
	dealID := s.createDeal("5000", 6, "12", domain.ScheduleTypeAnnuity)

	resp, err := s.svc.Deal.GetDeal(s.ctx, dealID)
	s.Require().NoError(err)
	s.Equal("USD", resp.Finance.CurrencyCode)
	s.Nil(resp.Finance.DisbursementDate)
	s.assertDecimal("5000", resp.Balances.OutstandingPrincipal)

	sched, err := s.svc.Schedule.GetSchedule(s.ctx, dealID)
	s.Require().NoError(err)
	s.Empty(sched.Lines)
}

func (s *DealEngineTestSuite) TestCreateDeal_Validation() {
	_, err := s.svc.Deal.CreateDeal(s.ctx, dto.CreateDealRequest{
		Title: "x", Principal: dec("0"), CurrencyCode: "USD", TermMonths: 12, ScheduleType: domain.ScheduleTypeAnnuity,
	}, actor)
	s.assertCode(err, apperrors.ErrValidation, apperrors.CodeZeroOrNegativeAmount)

	_, err = s.svc.Deal.CreateDeal(s.ctx, dto.CreateDealRequest{
		Title: "x", Principal: dec("100.001"), CurrencyCode: "USD", TermMonths: 12, ScheduleType: domain.ScheduleTypeAnnuity,
	}, actor)
	s.assertCode(err, apperrors.ErrValidation, apperrors.CodeInvalidInput)

	_, err = s.svc.Deal.CreateDeal(s.ctx, dto.CreateDealRequest{
		Title: "x", Principal: dec("100"), CurrencyCode: "USD", TermMonths: 12, ScheduleType: "BALLOON",
	}, actor)
	s.assertCode(err, apperrors.ErrValidation, apperrors.CodeInvalidInput)
}

func (s *DealEngineTestSuite) TestListDeals_FiltersByStatus() {
	active := s.scenarioADeal()
	s.createDeal("100", 1, "0", domain.ScheduleTypeAnnuity)

	status := domain.DealStatusActive
	resp, err := s.svc.Deal.ListDeals(s.ctx, dto.ListDealsParams{Status: &status, Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(resp.Deals, 1)
	s.Equal(active, resp.Deals[0].DealID)

	all, err := s.svc.Deal.ListDeals(s.ctx, dto.ListDealsParams{})
	s.Require().NoError(err)
	s.Len(all.Deals, 2)
	s.Equal(20, all.Limit)
}

func (s *DealEngineTestSuite) TestActivateDeal_TwiceIsInvalidTransition() {
	dealID := s.scenarioADeal()
	_, err := s.svc.Deal.ActivateDeal(s.ctx, dealID, dto.ActivateDealRequest{}, actor)
	s.assertCode(err, apperrors.ErrPreconditionFailed, apperrors.CodeInvalidTransition)
}

func (s *DealEngineTestSuite) TestActivateDeal_InsufficientCashboxWritesNothing() {
	dealID := s.createDeal("12000", 12, "0", domain.ScheduleTypeEqualPrincipal)
	s.store.SeedCashbox("drawer", dec("100"))

	cashbox := "drawer"
	_, err := s.svc.Deal.ActivateDeal(s.ctx, dealID, dto.ActivateDealRequest{CashboxID: &cashbox}, actor)
	s.assertCode(err, apperrors.ErrCollaboratorFailure, apperrors.CodeCashboxInsufficientFunds)

	resp, err := s.svc.Deal.GetDeal(s.ctx, dealID)
	s.Require().NoError(err)
	s.Equal(domain.DealStatusNew, resp.Deal.Status)
	s.Nil(resp.Finance.DisbursementDate)
	sched, err := s.svc.Schedule.GetSchedule(s.ctx, dealID)
	s.Require().NoError(err)
	s.Empty(sched.Lines)
	bal, _ := s.store.CashboxBalance("drawer")
	s.assertDecimal("100", bal)
}

func (s *DealEngineTestSuite) TestActivateDeal_DebitsCashbox() {
	dealID := s.createDeal("1000", 2, "0", domain.ScheduleTypeEqualPrincipal)
	s.store.SeedCashbox("drawer", dec("5000"))

	cashbox := "drawer"
	resp, err := s.svc.Deal.ActivateDeal(s.ctx, dealID, dto.ActivateDealRequest{CashboxID: &cashbox}, actor)
	s.Require().NoError(err)
	s.Require().NotNil(resp.Finance.DisbursementCashboxTxID)
	s.Require().NotNil(resp.Finance.DisbursementDate)
	s.Equal(date(2025, 1, 15), *resp.Finance.DisbursementDate)

	bal, _ := s.store.CashboxBalance("drawer")
	s.assertDecimal("4000", bal)
}

func (s *DealEngineTestSuite) TestCloseDeal_WarnsByDefault() {
	dealID := s.scenarioADeal()
	closed, err := s.svc.Deal.CloseDeal(s.ctx, dealID, actor)
	s.Require().NoError(err)
	s.Equal(domain.DealStatusClosed, closed.Status)
}

func (s *DealEngineTestSuite) TestCloseDeal_RequiresZeroBalanceWhenConfigured() {
	strict := s.newContainer(services.WithCloseRequiresZeroBalance(true))
	s.svc = strict
	dealID := s.scenarioADeal()

	_, err := strict.Deal.CloseDeal(s.ctx, dealID, actor)
	s.assertCode(err, apperrors.ErrPreconditionFailed, apperrors.CodeOutstandingBalance)

	_, err = strict.Payment.RecordPayment(s.ctx, dealID, dto.RecordPaymentRequest{Amount: dec("12000")}, actor)
	s.Require().NoError(err)
	closed, err := strict.Deal.CloseDeal(s.ctx, dealID, actor)
	s.Require().NoError(err)
	s.Equal(domain.DealStatusClosed, closed.Status)
}

func (s *DealEngineTestSuite) TestCancelDeal_OnlyFromNewOrActive() {
	dealID := s.createDeal("100", 1, "0", domain.ScheduleTypeAnnuity)
	cancelled, err := s.svc.Deal.CancelDeal(s.ctx, dealID, actor)
	s.Require().NoError(err)
	s.Equal(domain.DealStatusCancelled, cancelled.Status)

	_, err = s.svc.Deal.CancelDeal(s.ctx, dealID, actor)
	s.assertCode(err, apperrors.ErrPreconditionFailed, apperrors.CodeInvalidTransition)

	_, err = s.svc.Deal.CancelDeal(s.ctx, "missing", actor)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *DealEngineTestSuite) TestActivateDeal_PausedDealIsInvalidTransition() {
	dealID := s.scenarioADeal()
	_, err := s.svc.Pause.PauseDeal(s.ctx, dealID, dto.PauseDealRequest{StartDate: date(2025, 1, 10), EndDate: date(2025, 2, 28), Reason: "flood"}, actor)
	s.Require().NoError(err)
	before, err := s.svc.Schedule.GetSchedule(s.ctx, dealID)
	s.Require().NoError(err)

	later := date(2025, 6, 1)
	_, err = s.svc.Deal.ActivateDeal(s.ctx, dealID, dto.ActivateDealRequest{DisbursementDate: &later}, actor)
	s.assertCode(err, apperrors.ErrPreconditionFailed, apperrors.CodeInvalidTransition)

	resp, err := s.svc.Deal.GetDeal(s.ctx, dealID)
	s.Require().NoError(err)
	s.Equal(domain.DealStatusPaused, resp.Deal.Status)
	s.Require().NotNil(resp.Finance.DisbursementDate)
	s.Equal(disbursedOn, *resp.Finance.DisbursementDate)
	s.assertDecimal("12000", resp.Balances.TotalDisbursed)

	after, err := s.svc.Schedule.GetSchedule(s.ctx, dealID)
	s.Require().NoError(err)
	s.Require().Len(after.Lines, len(before.Lines))
	for i := range before.Lines {
		s.Equal(before.Lines[i].DueDate, after.Lines[i].DueDate, "line %d", before.Lines[i].Seq)
	}
}

func (s *DealEngineTestSuite) TestActivateDeal_RolledBackActivationIsNotCounted() {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	dealID := s.createDeal("1000", 2, "0", domain.ScheduleTypeEqualPrincipal)
	s.store.SeedCashbox("drawer", dec("5000"))
	cashbox := "drawer"

	provider := memory.NewRepositoryProvider(s.store)
	provider.DealRepo = disbursementFailingStore{Store: s.store}
	failing := services.NewServiceContainer(nil, provider,
		services.WithClock(func() time.Time { return fixedNow }),
		services.WithMetrics(metrics))

	_, err := failing.Deal.ActivateDeal(s.ctx, dealID, dto.ActivateDealRequest{CashboxID: &cashbox}, actor)
	s.Require().Error(err)
	s.Equal(0.0, testutil.ToFloat64(metrics.Disbursed))
	bal, _ := s.store.CashboxBalance("drawer")
	s.assertDecimal("5000", bal)

	s.svc = s.newContainer(services.WithMetrics(metrics))
	_, err = s.svc.Deal.ActivateDeal(s.ctx, dealID, dto.ActivateDealRequest{CashboxID: &cashbox}, actor)
	s.Require().NoError(err)
	s.Equal(1000.0, testutil.ToFloat64(metrics.Disbursed))
	bal, _ = s.store.CashboxBalance("drawer")
	s.assertDecimal("4000", bal)
}

// --- Schedule ---

func (s *DealEngineTestSuite) TestScenarioA_EqualPrincipalSchedule() {
	dealID := s.scenarioADeal()

	sched, err := s.svc.Schedule.GetSchedule(s.ctx, dealID)
	s.Require().NoError(err)
	s.Require().Len(sched.Lines, 12)
	for i, line := range sched.Lines {
		s.Equal(i+1, line.Seq)
		s.assertDecimal("1000", line.PrincipalDue)
		s.assertDecimal("0", line.InterestDue)
		s.Equal(domain.LineStatusPlanned, line.Status)
	}
	s.Equal(date(2025, 2, 15), sched.Lines[0].DueDate)
	s.Equal(date(2026, 1, 15), sched.Lines[11].DueDate)
	s.assertDecimal("12000", sched.TotalPrincipalDue)
}

func (s *DealEngineTestSuite) TestAnnuitySchedule_PrincipalSumsToContract() {
	dealID := s.createDeal("10000", 12, "12", domain.ScheduleTypeAnnuity)
	s.activate(dealID)

	sched, err := s.svc.Schedule.GetSchedule(s.ctx, dealID)
	s.Require().NoError(err)
	s.Require().Len(sched.Lines, 12)
	s.assertDecimal("10000", sched.TotalPrincipalDue)
	s.assertDecimal("100", sched.Lines[0].InterestDue)
}

func (s *DealEngineTestSuite) TestRegenerateSchedule_IsIdempotent() {
	dealID := s.scenarioADeal()
	_, err := s.svc.Payment.RecordPayment(s.ctx, dealID, dto.RecordPaymentRequest{Amount: dec("1500")}, actor)
	s.Require().NoError(err)

	first, err := s.svc.Schedule.RegenerateSchedule(s.ctx, dealID, actor)
	s.Require().NoError(err)
	second, err := s.svc.Schedule.RegenerateSchedule(s.ctx, dealID, actor)
	s.Require().NoError(err)

	s.Require().Len(second.Lines, len(first.Lines))
	for i := range first.Lines {
		s.Equal(first.Lines[i].LineID, second.Lines[i].LineID)
		s.Equal(first.Lines[i].DueDate, second.Lines[i].DueDate)
		s.True(first.Lines[i].PrincipalPaid.Equal(second.Lines[i].PrincipalPaid))
	}
	s.assertDecimal("1000", second.Lines[0].PrincipalPaid)
	s.assertDecimal("500", second.Lines[1].PrincipalPaid)
	s.assertDecimal("1500", second.TotalPaid)
}

func (s *DealEngineTestSuite) TestRegenerateSchedule_UnsupportedForManual() {
	dealID := s.createDeal("1000", 2, "0", domain.ScheduleTypeManual)
	s.activate(dealID)

	_, err := s.svc.Schedule.RegenerateSchedule(s.ctx, dealID, actor)
	s.assertCode(err, apperrors.ErrUnsupportedOperation, apperrors.CodeUnsupportedScheduleType)
}

func (s *DealEngineTestSuite) TestSetManualSchedule() {
	dealID := s.createDeal("1000", 2, "0", domain.ScheduleTypeTranches)
	s.activate(dealID)

	_, err := s.svc.Schedule.SetManualSchedule(s.ctx, dealID, dto.SetManualScheduleRequest{Lines: []dto.ManualScheduleLineRequest{
		{DueDate: date(2025, 3, 1), PrincipalDue: dec("400"), InterestDue: dec("10")},
		{DueDate: date(2025, 6, 1), PrincipalDue: dec("500"), InterestDue: dec("10")},
	}}, actor)
	s.assertCode(err, apperrors.ErrValidation, apperrors.CodeInvalidInput)

	sched, err := s.svc.Schedule.SetManualSchedule(s.ctx, dealID, dto.SetManualScheduleRequest{Lines: []dto.ManualScheduleLineRequest{
		{DueDate: date(2025, 3, 1), PrincipalDue: dec("400"), InterestDue: dec("10")},
		{DueDate: date(2025, 6, 1), PrincipalDue: dec("600"), InterestDue: dec("10")},
	}}, actor)
	s.Require().NoError(err)
	s.Require().Len(sched.Lines, 2)
	s.assertDecimal("1000", sched.TotalPrincipalDue)

	_, err = s.svc.Payment.RecordPayment(s.ctx, dealID, dto.RecordPaymentRequest{Amount: dec("50")}, actor)
	s.Require().NoError(err)
	_, err = s.svc.Schedule.SetManualSchedule(s.ctx, dealID, dto.SetManualScheduleRequest{Lines: []dto.ManualScheduleLineRequest{
		{DueDate: date(2025, 3, 1), PrincipalDue: dec("1000")},
	}}, actor)
	s.assertCode(err, apperrors.ErrPreconditionFailed, apperrors.CodeScheduleHasPayments)
}

// --- Payments ---

func (s *DealEngineTestSuite) TestScenarioC_PaymentAllocation() {
	dealID := s.scenarioADeal()

	result, err := s.svc.Payment.RecordPayment(s.ctx, dealID, dto.RecordPaymentRequest{Amount: dec("1500"), RequestID: "pay-1"}, actor)
	s.Require().NoError(err)
	s.False(result.Replayed)
	s.Equal("pay-1", result.PaymentID)
	s.assertDecimal("1500", result.PrincipalPaid)
	s.assertDecimal("0", result.InterestPaid)
	s.assertDecimal("0", result.EarlyRepayment)
	s.Len(result.LedgerEntryIDs, 2)
	s.assertDecimal("10500", result.Balances.OutstandingPrincipal)

	sched, err := s.svc.Schedule.GetSchedule(s.ctx, dealID)
	s.Require().NoError(err)
	s.Equal(domain.LineStatusPaid, sched.Lines[0].Status)
	s.assertDecimal("1000", sched.Lines[0].PrincipalPaid)
	s.Equal(domain.LineStatusPartial, sched.Lines[1].Status)
	s.assertDecimal("500", sched.Lines[1].PrincipalPaid)
	s.Equal(domain.LineStatusPlanned, sched.Lines[2].Status)
}

func (s *DealEngineTestSuite) TestRecordPayment_InterestBeforePrincipal() {
	dealID := s.createDeal("10000", 12, "12", domain.ScheduleTypeAnnuity)
	s.activate(dealID)

	result, err := s.svc.Payment.RecordPayment(s.ctx, dealID, dto.RecordPaymentRequest{Amount: dec("150")}, actor)
	s.Require().NoError(err)
	s.assertDecimal("100", result.InterestPaid)
	s.assertDecimal("50", result.PrincipalPaid)
	s.assertDecimal("100", result.Balances.InterestRepaid)
	s.assertDecimal("9950", result.Balances.OutstandingPrincipal)
}

func (s *DealEngineTestSuite) TestRecordPayment_ReplayReturnsStoredResult() {
	dealID := s.scenarioADeal()
	s.store.SeedCashbox("drawer", dec("0"))
	cashbox := "drawer"
	req := dto.RecordPaymentRequest{Amount: dec("1500"), RequestID: "pay-1", CashboxID: &cashbox}

	first, err := s.svc.Payment.RecordPayment(s.ctx, dealID, req, actor)
	s.Require().NoError(err)
	second, err := s.svc.Payment.RecordPayment(s.ctx, dealID, req, actor)
	s.Require().NoError(err)

	s.True(second.Replayed)
	s.ElementsMatch(first.LedgerEntryIDs, second.LedgerEntryIDs)
	s.Equal(first.CashboxTxID, second.CashboxTxID)
	s.assertDecimal("1500", second.PrincipalPaid)

	page, err := s.svc.Ledger.ListLedgerEntries(s.ctx, dealID, dto.ListLedgerEntriesParams{Limit: 50})
	s.Require().NoError(err)
	s.Len(page.Entries, 2)
	bal, _ := s.store.CashboxBalance("drawer")
	s.assertDecimal("1500", bal)
}

func (s *DealEngineTestSuite) TestRecordPayment_OverpaymentIsEarlyRepayment() {
	dealID := s.scenarioADeal()

	result, err := s.svc.Payment.RecordPayment(s.ctx, dealID, dto.RecordPaymentRequest{Amount: dec("13000")}, actor)
	s.Require().NoError(err)
	s.assertDecimal("1000", result.EarlyRepayment)
	s.assertDecimal("13000", result.PrincipalPaid)
	s.assertDecimal("-1000", result.Balances.OutstandingPrincipal)
	s.assertDecimal("0", result.Balances.DisplayOutstanding)
	s.True(result.Balances.Overpaid)
}

func (s *DealEngineTestSuite) TestRecordPayment_Refusals() {
	newDeal := s.createDeal("1000", 2, "0", domain.ScheduleTypeAnnuity)
	_, err := s.svc.Payment.RecordPayment(s.ctx, newDeal, dto.RecordPaymentRequest{Amount: dec("10")}, actor)
	s.assertCode(err, apperrors.ErrPreconditionFailed, apperrors.CodeDealNotAcceptingPayments)

	dealID := s.scenarioADeal()
	_, err = s.svc.Payment.RecordPayment(s.ctx, dealID, dto.RecordPaymentRequest{Amount: dec("-5")}, actor)
	s.assertCode(err, apperrors.ErrValidation, apperrors.CodeZeroOrNegativeAmount)

	manual := s.createDeal("1000", 2, "0", domain.ScheduleTypeManual)
	s.activate(manual)
	_, err = s.svc.Payment.RecordPayment(s.ctx, manual, dto.RecordPaymentRequest{Amount: dec("10")}, actor)
	s.assertCode(err, apperrors.ErrPreconditionFailed, apperrors.CodeNoSchedule)
}

func (s *DealEngineTestSuite) TestRecordPayment_SameRequestIDOnTwoDeals() {
	first := s.scenarioADeal()
	second := s.scenarioADeal()
	s.store.SeedCashbox("drawer", dec("0"))
	cashbox := "drawer"
	req := dto.RecordPaymentRequest{Amount: dec("1500"), RequestID: "pay-1", CashboxID: &cashbox}

	x, err := s.svc.Payment.RecordPayment(s.ctx, first, req, actor)
	s.Require().NoError(err)
	y, err := s.svc.Payment.RecordPayment(s.ctx, second, req, actor)
	s.Require().NoError(err)

	s.False(x.Replayed)
	s.False(y.Replayed)
	s.NotEqual(x.CashboxTxID, y.CashboxTxID)
	s.assertDecimal("10500", x.Balances.OutstandingPrincipal)
	s.assertDecimal("10500", y.Balances.OutstandingPrincipal)
	bal, _ := s.store.CashboxBalance("drawer")
	s.assertDecimal("3000", bal)
}

func (s *DealEngineTestSuite) TestRecordPayment_ConcurrentPaymentsMatchLedger() {
	dealID := s.scenarioADeal()

	const payments = 8
	errs := make(chan error, payments)
	var wg sync.WaitGroup
	for i := 0; i < payments; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.Payment.RecordPayment(s.ctx, dealID, dto.RecordPaymentRequest{Amount: dec("250")}, actor)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	page, err := s.svc.Ledger.ListLedgerEntries(s.ctx, dealID, dto.ListLedgerEntriesParams{Limit: 100})
	s.Require().NoError(err)
	ledgerPaid := decimal.Zero
	for _, entry := range page.Entries {
		switch entry.EntryType {
		case domain.EntryInterestPayment, domain.EntryPrincipalRepayment, domain.EntryEarlyRepayment:
			ledgerPaid = ledgerPaid.Add(entry.Amount)
		}
	}
	s.assertDecimal("2000", ledgerPaid)

	sched, err := s.svc.Schedule.GetSchedule(s.ctx, dealID)
	s.Require().NoError(err)
	s.assertDecimal(ledgerPaid.String(), sched.TotalPaid)
	s.assertDecimal("1000", sched.Lines[0].PrincipalPaid)
	s.assertDecimal("1000", sched.Lines[1].PrincipalPaid)
	s.assertDecimal("0", sched.Lines[2].PrincipalPaid)
}

// --- Ledger ---

func (s *DealEngineTestSuite) TestRecordLedgerEntry_ReportedOnly() {
	dealID := s.scenarioADeal()

	_, err := s.svc.Ledger.RecordLedgerEntry(s.ctx, dealID, dto.RecordLedgerEntryRequest{EntryType: domain.EntryFee, Amount: dec("25")}, actor)
	s.Require().NoError(err)
	_, err = s.svc.Ledger.RecordLedgerEntry(s.ctx, dealID, dto.RecordLedgerEntryRequest{EntryType: domain.EntryAdjustment, Amount: dec("-3.5")}, actor)
	s.Require().NoError(err)
	_, err = s.svc.Ledger.RecordLedgerEntry(s.ctx, dealID, dto.RecordLedgerEntryRequest{EntryType: domain.EntryPenalty, Amount: dec("-1")}, actor)
	s.assertCode(err, apperrors.ErrValidation, apperrors.CodeZeroOrNegativeAmount)
	_, err = s.svc.Ledger.RecordLedgerEntry(s.ctx, dealID, dto.RecordLedgerEntryRequest{EntryType: domain.EntryPrincipalRepayment, Amount: dec("1")}, actor)
	s.assertCode(err, apperrors.ErrValidation, apperrors.CodeInvalidInput)

	balances, err := s.svc.Ledger.GetBalances(s.ctx, dealID)
	s.Require().NoError(err)
	s.assertDecimal("25", balances.FeesCharged)
	s.assertDecimal("-3.5", balances.AdjustmentsNet)
	s.assertDecimal("12000", balances.OutstandingPrincipal)
}

func (s *DealEngineTestSuite) TestDisburse_IncreasesOutstanding() {
	dealID := s.scenarioADeal()
	s.store.SeedCashbox("drawer", dec("2000"))
	cashbox := "drawer"

	resp, err := s.svc.Ledger.Disburse(s.ctx, dealID, dto.DisburseRequest{Amount: dec("500"), CashboxID: &cashbox}, actor)
	s.Require().NoError(err)
	s.NotNil(resp.CashboxTxID)
	s.assertDecimal("12500", resp.Balances.TotalDisbursed)
	s.assertDecimal("12500", resp.Balances.OutstandingPrincipal)
	bal, _ := s.store.CashboxBalance("drawer")
	s.assertDecimal("1500", bal)

	_, err = s.svc.Ledger.Disburse(s.ctx, dealID, dto.DisburseRequest{Amount: dec("5000"), CashboxID: &cashbox}, actor)
	s.assertCode(err, apperrors.ErrCollaboratorFailure, apperrors.CodeCashboxInsufficientFunds)
	balances, err := s.svc.Ledger.GetBalances(s.ctx, dealID)
	s.Require().NoError(err)
	s.assertDecimal("12500", balances.OutstandingPrincipal)
}

func (s *DealEngineTestSuite) TestListLedgerEntries_Pages() {
	dealID := s.scenarioADeal()
	_, err := s.svc.Payment.RecordPayment(s.ctx, dealID, dto.RecordPaymentRequest{Amount: dec("3000")}, actor)
	s.Require().NoError(err)

	first, err := s.svc.Ledger.ListLedgerEntries(s.ctx, dealID, dto.ListLedgerEntriesParams{Limit: 2})
	s.Require().NoError(err)
	s.Len(first.Entries, 2)
	s.Require().NotNil(first.NextToken)

	second, err := s.svc.Ledger.ListLedgerEntries(s.ctx, dealID, dto.ListLedgerEntriesParams{Limit: 2, NextToken: first.NextToken})
	s.Require().NoError(err)
	s.Len(second.Entries, 1)
	s.Nil(second.NextToken)
}

func (s *DealEngineTestSuite) TestDisburse_RetryIsAnsweredFromLedger() {
	dealID := s.scenarioADeal()
	s.store.SeedCashbox("drawer", dec("2000"))
	cashbox := "drawer"
	req := dto.DisburseRequest{Amount: dec("500"), CashboxID: &cashbox, RequestID: "draw-1"}

	first, err := s.svc.Ledger.Disburse(s.ctx, dealID, req, actor)
	s.Require().NoError(err)
	s.False(first.Replayed)
	second, err := s.svc.Ledger.Disburse(s.ctx, dealID, req, actor)
	s.Require().NoError(err)
	s.True(second.Replayed)
	s.Equal(first.Entry.EntryID, second.Entry.EntryID)
	s.Equal(first.CashboxTxID, second.CashboxTxID)
	s.assertDecimal("12500", second.Balances.OutstandingPrincipal)

	bal, _ := s.store.CashboxBalance("drawer")
	s.assertDecimal("1500", bal)
	page, err := s.svc.Ledger.ListLedgerEntries(s.ctx, dealID, dto.ListLedgerEntriesParams{Limit: 50})
	s.Require().NoError(err)
	draws := 0
	for _, entry := range page.Entries {
		if entry.EntryType == domain.EntryDisbursement {
			draws++
		}
	}
	s.Equal(1, draws)

	req.Amount = dec("700")
	_, err = s.svc.Ledger.Disburse(s.ctx, dealID, req, actor)
	s.assertCode(err, apperrors.ErrConflict, apperrors.CodeRequestIDReused)

	_, err = s.svc.Payment.RecordPayment(s.ctx, dealID, dto.RecordPaymentRequest{Amount: dec("100"), RequestID: "draw-1"}, actor)
	s.assertCode(err, apperrors.ErrConflict, apperrors.CodeRequestIDReused)

	balances, err := s.svc.Ledger.GetBalances(s.ctx, dealID)
	s.Require().NoError(err)
	s.assertDecimal("12500", balances.OutstandingPrincipal)
}

// --- Pauses ---

func (s *DealEngineTestSuite) TestScenarioB_PauseShiftsLaterLines() {
	dealID := s.scenarioADeal()

	result, err := s.svc.Pause.PauseDeal(s.ctx, dealID, dto.PauseDealRequest{
		StartDate: date(2025, 4, 15),
		EndDate:   date(2025, 4, 24),
		Reason:    "harvest delay",
	}, actor)
	s.Require().NoError(err)
	s.Equal(domain.DealStatusPaused, result.Deal.Status)
	s.True(result.ScheduleRegenerated)
	s.Require().NotNil(result.Schedule)
	s.Equal(10, result.Schedule.TotalPausedDays)

	lines := result.Schedule.Lines
	s.Require().Len(lines, 12)
	s.Equal(date(2025, 2, 15), lines[0].DueDate)
	s.Equal(date(2025, 3, 15), lines[1].DueDate)
	for _, line := range lines[2:] {
		s.Equal(line.OriginalDueDate.AddDate(0, 0, 10), line.DueDate, "line %d", line.Seq)
	}
	s.Equal(date(2025, 4, 25), lines[2].DueDate)
}

func (s *DealEngineTestSuite) TestPauseDeal_OverlapConflict() {
	dealID := s.scenarioADeal()
	_, err := s.svc.Pause.PauseDeal(s.ctx, dealID, dto.PauseDealRequest{StartDate: date(2025, 4, 15), EndDate: date(2025, 4, 24), Reason: "a"}, actor)
	s.Require().NoError(err)

	_, err = s.svc.Pause.ResumeDeal(s.ctx, dealID, dto.ResumeDealRequest{}, actor)
	s.Require().NoError(err)

	_, err = s.svc.Pause.PauseDeal(s.ctx, dealID, dto.PauseDealRequest{StartDate: date(2025, 4, 20), EndDate: date(2025, 5, 1), Reason: "b"}, actor)
	s.assertCode(err, apperrors.ErrConflict, apperrors.CodePauseOverlap)
}

func (s *DealEngineTestSuite) TestResumeDeal_RemovesUpcomingPause() {
	dealID := s.scenarioADeal()
	paused, err := s.svc.Pause.PauseDeal(s.ctx, dealID, dto.PauseDealRequest{StartDate: date(2025, 4, 15), EndDate: date(2025, 4, 24), Reason: "a"}, actor)
	s.Require().NoError(err)

	pauseID := paused.Pause.PauseID
	resumed, err := s.svc.Pause.ResumeDeal(s.ctx, dealID, dto.ResumeDealRequest{PauseID: &pauseID}, actor)
	s.Require().NoError(err)
	s.Equal(domain.DealStatusActive, resumed.Deal.Status)
	s.Empty(resumed.Pauses)
	s.Require().NotNil(resumed.Schedule)
	s.Equal(date(2025, 4, 15), resumed.Schedule.Lines[2].DueDate)
}

func (s *DealEngineTestSuite) TestResumeDeal_EndsRunningPauseYesterday() {
	dealID := s.scenarioADeal()
	_, err := s.svc.Pause.PauseDeal(s.ctx, dealID, dto.PauseDealRequest{StartDate: date(2025, 1, 10), EndDate: date(2025, 1, 31), Reason: "a"}, actor)
	s.Require().NoError(err)

	resumed, err := s.svc.Pause.ResumeDeal(s.ctx, dealID, dto.ResumeDealRequest{}, actor)
	s.Require().NoError(err)
	s.Equal(domain.DealStatusActive, resumed.Deal.Status)
	s.Require().Len(resumed.Pauses, 1)
	s.Equal(date(2025, 1, 14), resumed.Pauses[0].EndDate)
	s.Equal(5, resumed.Schedule.TotalPausedDays)
}

func (s *DealEngineTestSuite) TestDeletePause_ReturnsDealToActive() {
	dealID := s.scenarioADeal()
	paused, err := s.svc.Pause.PauseDeal(s.ctx, dealID, dto.PauseDealRequest{StartDate: date(2025, 4, 15), EndDate: date(2025, 4, 24), Reason: "a"}, actor)
	s.Require().NoError(err)

	result, err := s.svc.Pause.DeletePause(s.ctx, dealID, paused.Pause.PauseID, actor)
	s.Require().NoError(err)
	s.Equal(domain.DealStatusActive, result.Deal.Status)
	s.Equal(0, result.Schedule.TotalPausedDays)

	_, err = s.svc.Pause.DeletePause(s.ctx, dealID, paused.Pause.PauseID, actor)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *DealEngineTestSuite) TestPausedDeal_StillAcceptsPayments() {
	dealID := s.scenarioADeal()
	_, err := s.svc.Pause.PauseDeal(s.ctx, dealID, dto.PauseDealRequest{StartDate: date(2025, 1, 10), EndDate: date(2025, 1, 31), Reason: "a"}, actor)
	s.Require().NoError(err)

	_, err = s.svc.Payment.RecordPayment(s.ctx, dealID, dto.RecordPaymentRequest{Amount: dec("100")}, actor)
	s.NoError(err)
}

func (s *DealEngineTestSuite) TestDeletePause_PastPauseOnManualScheduleIsKept() {
	dealID := s.createDeal("1000", 2, "0", domain.ScheduleTypeTranches)
	s.activate(dealID)
	_, err := s.svc.Schedule.SetManualSchedule(s.ctx, dealID, dto.SetManualScheduleRequest{Lines: []dto.ManualScheduleLineRequest{
		{DueDate: date(2025, 3, 1), PrincipalDue: dec("400")},
		{DueDate: date(2025, 6, 1), PrincipalDue: dec("600")},
	}}, actor)
	s.Require().NoError(err)

	paused, err := s.svc.Pause.PauseDeal(s.ctx, dealID, dto.PauseDealRequest{StartDate: date(2025, 1, 1), EndDate: date(2025, 1, 5), Reason: "holiday"}, actor)
	s.Require().NoError(err)

	_, err = s.svc.Pause.DeletePause(s.ctx, dealID, paused.Pause.PauseID, actor)
	s.assertCode(err, apperrors.ErrPreconditionFailed, apperrors.CodePauseNotRemovable)

	pauses, err := s.svc.Pause.ListPauses(s.ctx, dealID)
	s.Require().NoError(err)
	s.Require().Len(pauses, 1)
	s.Equal(paused.Pause.PauseID, pauses[0].PauseID)
}

func (s *DealEngineTestSuite) TestResumeDeal_OtherPauseStillActive() {
	dealID := s.scenarioADeal()
	// a pause booked ahead of the one that is running today
	s.Require().NoError(s.store.SavePause(s.ctx, domain.PausePeriod{
		PauseID:   "later",
		DealID:    dealID,
		StartDate: date(2025, 3, 1),
		EndDate:   date(2025, 3, 10),
		Reason:    "inventory",
	}))
	_, err := s.svc.Pause.PauseDeal(s.ctx, dealID, dto.PauseDealRequest{StartDate: date(2025, 1, 10), EndDate: date(2025, 1, 31), Reason: "flood"}, actor)
	s.Require().NoError(err)

	later := "later"
	_, err = s.svc.Pause.ResumeDeal(s.ctx, dealID, dto.ResumeDealRequest{PauseID: &later}, actor)
	s.assertCode(err, apperrors.ErrPreconditionFailed, apperrors.CodePauseStillActive)

	pauses, err := s.svc.Pause.ListPauses(s.ctx, dealID)
	s.Require().NoError(err)
	s.Len(pauses, 2)
	resp, err := s.svc.Deal.GetDeal(s.ctx, dealID)
	s.Require().NoError(err)
	s.Equal(domain.DealStatusPaused, resp.Deal.Status)
}

func (s *DealEngineTestSuite) TestPauseDeal_KeepsPaymentsOnShiftedLines() {
	dealID := s.scenarioADeal()
	_, err := s.svc.Payment.RecordPayment(s.ctx, dealID, dto.RecordPaymentRequest{Amount: dec("1500")}, actor)
	s.Require().NoError(err)
	before, err := s.svc.Schedule.GetSchedule(s.ctx, dealID)
	s.Require().NoError(err)

	result, err := s.svc.Pause.PauseDeal(s.ctx, dealID, dto.PauseDealRequest{StartDate: date(2025, 1, 20), EndDate: date(2025, 1, 29), Reason: "audit"}, actor)
	s.Require().NoError(err)
	s.Require().NotNil(result.Schedule)

	lines := result.Schedule.Lines
	s.Require().Len(lines, 12)
	for i, line := range lines {
		s.Equal(before.Lines[i].LineID, line.LineID)
		s.Equal(before.Lines[i].DueDate.AddDate(0, 0, 10), line.DueDate, "line %d", line.Seq)
	}
	s.Equal(domain.LineStatusPaid, lines[0].Status)
	s.assertDecimal("1000", lines[0].PrincipalPaid)
	s.Equal(domain.LineStatusPartial, lines[1].Status)
	s.assertDecimal("500", lines[1].PrincipalPaid)
	s.Equal(domain.LineStatusPlanned, lines[2].Status)
	s.assertDecimal("1500", result.Schedule.TotalPaid)
}

// --- Collateral ---

func (s *DealEngineTestSuite) TestScenarioD_DefaultForecloses() {
	dealID := s.scenarioADeal()
	link := s.pledge(dealID, "truck-1", "20000")

	result, err := s.svc.Collateral.DefaultWithSideEffects(s.ctx, dealID, actor)
	s.Require().NoError(err)
	s.Equal(domain.DealStatusDefaulted, result.Deal.Status)
	s.Equal([]string{link.LinkID}, result.ForeclosedLinkIDs)

	links, err := s.svc.Collateral.ListCollateral(s.ctx, dealID)
	s.Require().NoError(err)
	s.Require().Len(links, 1)
	s.Equal(domain.CollateralForeclosed, links[0].Status)

	_, err = s.svc.Collateral.DefaultWithSideEffects(s.ctx, dealID, actor)
	s.assertCode(err, apperrors.ErrPreconditionFailed, apperrors.CodeInvalidTransition)
}

func (s *DealEngineTestSuite) TestScenarioE_EvaluateCollateral() {
	dealID := s.createDeal("6000", 12, "0", domain.ScheduleTypeEqualPrincipal)
	s.activate(dealID)
	link := s.pledge(dealID, "house-1", "10000")
	s.assertDecimal("60", link.LTVAtPledge)

	result, err := s.svc.Collateral.EvaluateCollateral(s.ctx, link.LinkID, nil)
	s.Require().NoError(err)
	s.assertDecimal("60", result.LTV)
	s.assertDecimal("6000", result.OutstandingPrincipal)

	supplied := dec("3000")
	result, err = s.svc.Collateral.EvaluateCollateral(s.ctx, link.LinkID, &supplied)
	s.Require().NoError(err)
	s.assertDecimal("30", result.LTV)

	links, err := s.svc.Collateral.ListCollateral(s.ctx, dealID)
	s.Require().NoError(err)
	s.Equal(domain.CollateralActive, links[0].Status)
	s.Equal(link.Version, links[0].Version)
	s.Require().NotNil(links[0].LastLTV)
	s.assertDecimal("30", *links[0].LastLTV)
}

func (s *DealEngineTestSuite) TestEvaluateActiveCollateral_FlagsAboveThreshold() {
	svc := s.newContainer(services.WithLTVAlertThreshold(dec("50")))
	s.svc = svc
	high := s.createDeal("6000", 12, "0", domain.ScheduleTypeEqualPrincipal)
	s.activate(high)
	low := s.createDeal("1000", 12, "0", domain.ScheduleTypeEqualPrincipal)
	s.activate(low)
	highLink := s.pledge(high, "house-1", "10000")
	s.pledge(low, "car-1", "10000")

	batch, err := svc.Collateral.EvaluateActiveCollateral(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, batch.Evaluated)
	s.Equal(0, batch.Failed)
	s.Require().Len(batch.AboveThreshold, 1)
	s.Equal(highLink.LinkID, batch.AboveThreshold[0].LinkID)

	var alerts int
	for _, rec := range s.store.AuditRecords() {
		if rec.Action == "collateral.ltv_alert" {
			alerts++
		}
	}
	s.Equal(1, alerts)
}

func (s *DealEngineTestSuite) TestPledgeCollateral_AssetPledgedOnce() {
	first := s.scenarioADeal()
	second := s.scenarioADeal()
	s.pledge(first, "truck-1", "20000")

	_, err := s.svc.Collateral.PledgeCollateral(s.ctx, second, dto.PledgeCollateralRequest{AssetID: "truck-1"}, actor)
	s.assertCode(err, apperrors.ErrConflict, apperrors.CodeAssetAlreadyPledged)

	_, err = s.svc.Collateral.PledgeCollateral(s.ctx, second, dto.PledgeCollateralRequest{AssetID: "unknown"}, actor)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *DealEngineTestSuite) TestPledgeCollateral_ZeroValuation() {
	dealID := s.scenarioADeal()
	_, err := s.svc.Collateral.UpsertAssetValuation(s.ctx, "scrap", dto.UpsertAssetValuationRequest{Valuation: dec("0"), CurrencyCode: "USD"}, actor)
	s.Require().NoError(err)

	_, err = s.svc.Collateral.PledgeCollateral(s.ctx, dealID, dto.PledgeCollateralRequest{AssetID: "scrap"}, actor)
	s.assertCode(err, apperrors.ErrValidation, apperrors.CodeZeroValuation)
}

func (s *DealEngineTestSuite) TestReplaceCollateral_SwapsAndRecordsChain() {
	dealID := s.scenarioADeal()
	old := s.pledge(dealID, "truck-1", "20000")
	_, err := s.svc.Collateral.UpsertAssetValuation(s.ctx, "truck-2", dto.UpsertAssetValuationRequest{Valuation: dec("24000"), CurrencyCode: "USD"}, actor)
	s.Require().NoError(err)

	version := old.Version
	result, err := s.svc.Collateral.ReplaceCollateral(s.ctx, dealID, old.LinkID, dto.ReplaceCollateralRequest{
		NewAssetID:      "truck-2",
		Reason:          "upgrade",
		ExpectedVersion: &version,
	}, actor)
	s.Require().NoError(err)
	s.Equal(domain.CollateralReplaced, result.OldLink.Status)
	s.Equal(domain.CollateralActive, result.NewLink.Status)
	s.assertDecimal("24000", result.NewLink.ValuationAtPledge)
	s.assertDecimal("50", result.NewLink.LTVAtPledge)
	s.Equal("truck-1", result.Event.OldAssetID)
	s.Equal("truck-2", result.Event.NewAssetID)

	chain, err := s.svc.Collateral.GetCollateralChain(s.ctx, dealID)
	s.Require().NoError(err)
	s.Len(chain, 1)

	_, err = s.svc.Collateral.ReplaceCollateral(s.ctx, dealID, old.LinkID, dto.ReplaceCollateralRequest{NewAssetID: "truck-3", Reason: "again"}, actor)
	s.assertCode(err, apperrors.ErrPreconditionFailed, apperrors.CodeLinkNotActive)
}

func (s *DealEngineTestSuite) TestReplaceCollateral_FailureLeavesNothingBehind() {
	dealID := s.scenarioADeal()
	other := s.scenarioADeal()
	old := s.pledge(dealID, "truck-1", "20000")
	s.pledge(other, "truck-2", "20000")

	_, err := s.svc.Collateral.ReplaceCollateral(s.ctx, dealID, old.LinkID, dto.ReplaceCollateralRequest{NewAssetID: "truck-2", Reason: "swap"}, actor)
	s.assertCode(err, apperrors.ErrConflict, apperrors.CodeAssetAlreadyPledged)

	stale := old.Version + 1
	_, err = s.svc.Collateral.ReplaceCollateral(s.ctx, dealID, old.LinkID, dto.ReplaceCollateralRequest{NewAssetID: "truck-9", Reason: "swap", ExpectedVersion: &stale}, actor)
	s.assertCode(err, apperrors.ErrConflict, apperrors.CodeStaleCollateralLink)

	links, err := s.svc.Collateral.ListCollateral(s.ctx, dealID)
	s.Require().NoError(err)
	s.Require().Len(links, 1)
	s.Equal(domain.CollateralActive, links[0].Status)
	s.Equal(old.Version, links[0].Version)
	chain, err := s.svc.Collateral.GetCollateralChain(s.ctx, dealID)
	s.Require().NoError(err)
	s.Empty(chain)
}

func (s *DealEngineTestSuite) TestReleaseCollateral() {
	dealID := s.scenarioADeal()
	link := s.pledge(dealID, "truck-1", "20000")

	released, err := s.svc.Collateral.ReleaseCollateral(s.ctx, link.LinkID, actor)
	s.Require().NoError(err)
	s.Equal(domain.CollateralReleased, released.Status)
	s.NotNil(released.EndDate)

	_, err = s.svc.Collateral.ReleaseCollateral(s.ctx, link.LinkID, actor)
	s.assertCode(err, apperrors.ErrPreconditionFailed, apperrors.CodeLinkNotActive)

	// the asset is free again
	s.pledge(dealID, "truck-1", "20000")
}

func (s *DealEngineTestSuite) TestRecordCollateralSale_ReducesOutstanding() {
	dealID := s.scenarioADeal()
	link := s.pledge(dealID, "truck-1", "20000")

	_, err := s.svc.Collateral.RecordCollateralSale(s.ctx, link.LinkID, dto.RecordCollateralSaleRequest{Amount: dec("5000")}, actor)
	s.assertCode(err, apperrors.ErrPreconditionFailed, apperrors.CodeLinkNotForeclosed)

	_, err = s.svc.Collateral.DefaultWithSideEffects(s.ctx, dealID, actor)
	s.Require().NoError(err)

	s.store.SeedCashbox("drawer", dec("0"))
	cashbox := "drawer"
	result, err := s.svc.Collateral.RecordCollateralSale(s.ctx, link.LinkID, dto.RecordCollateralSaleRequest{Amount: dec("5000"), CashboxID: &cashbox}, actor)
	s.Require().NoError(err)
	s.Equal(domain.EntryCollateralSaleProceeds, result.Entry.EntryType)
	s.Require().NotNil(result.Entry.CollateralLinkID)
	s.Equal(link.LinkID, *result.Entry.CollateralLinkID)
	s.assertDecimal("7000", result.Balances.OutstandingPrincipal)
	bal, _ := s.store.CashboxBalance("drawer")
	s.assertDecimal("5000", bal)
}

func (s *DealEngineTestSuite) TestRecordCollateralSale_RetryIsAnsweredFromLedger() {
	dealID := s.scenarioADeal()
	link := s.pledge(dealID, "truck-1", "20000")
	_, err := s.svc.Collateral.DefaultWithSideEffects(s.ctx, dealID, actor)
	s.Require().NoError(err)
	s.store.SeedCashbox("drawer", dec("0"))
	cashbox := "drawer"
	req := dto.RecordCollateralSaleRequest{Amount: dec("5000"), CashboxID: &cashbox, RequestID: "sale-1"}

	first, err := s.svc.Collateral.RecordCollateralSale(s.ctx, link.LinkID, req, actor)
	s.Require().NoError(err)
	s.False(first.Replayed)
	second, err := s.svc.Collateral.RecordCollateralSale(s.ctx, link.LinkID, req, actor)
	s.Require().NoError(err)
	s.True(second.Replayed)
	s.Equal(first.Entry.EntryID, second.Entry.EntryID)
	s.assertDecimal("7000", second.Balances.OutstandingPrincipal)
	bal, _ := s.store.CashboxBalance("drawer")
	s.assertDecimal("5000", bal)

	req.Amount = dec("4000")
	_, err = s.svc.Collateral.RecordCollateralSale(s.ctx, link.LinkID, req, actor)
	s.assertCode(err, apperrors.ErrConflict, apperrors.CodeRequestIDReused)
}

func (s *DealEngineTestSuite) TestReplaceCollateral_ConcurrentReplacementsOneWins() {
	dealID := s.scenarioADeal()
	old := s.pledge(dealID, "truck-1", "20000")
	assets := []string{"truck-2", "truck-3"}
	for _, asset := range assets {
		_, err := s.svc.Collateral.UpsertAssetValuation(s.ctx, asset, dto.UpsertAssetValuationRequest{Valuation: dec("24000"), CurrencyCode: "USD"}, actor)
		s.Require().NoError(err)
	}

	version := old.Version
	errs := make([]error, len(assets))
	var wg sync.WaitGroup
	for i, asset := range assets {
		wg.Add(1)
		go func(i int, asset string) {
			defer wg.Done()
			_, errs[i] = s.svc.Collateral.ReplaceCollateral(s.ctx, dealID, old.LinkID, dto.ReplaceCollateralRequest{
				NewAssetID:      asset,
				Reason:          "swap",
				ExpectedVersion: &version,
			}, actor)
		}(i, asset)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		s.True(errors.Is(err, apperrors.ErrConflict) || errors.Is(err, apperrors.ErrPreconditionFailed), "unexpected error: %v", err)
	}
	s.Equal(1, wins)

	links, err := s.svc.Collateral.ListCollateral(s.ctx, dealID)
	s.Require().NoError(err)
	active := 0
	for _, l := range links {
		if l.Status == domain.CollateralActive {
			active++
		}
	}
	s.Equal(1, active)
	chain, err := s.svc.Collateral.GetCollateralChain(s.ctx, dealID)
	s.Require().NoError(err)
	s.Len(chain, 1)
}

// --- Audit ---

func (s *DealEngineTestSuite) TestAudit_RecordedAfterCommit() {
	dealID := s.scenarioADeal()

	var actions []string
	for _, rec := range s.store.AuditRecords() {
		if rec.EntityID == dealID {
			actions = append(actions, rec.Action)
			s.Equal(fixedNow, rec.OccurredAt)
		}
	}
	s.Equal([]string{"deal.create", "deal.activate"}, actions)
}

func (s *DealEngineTestSuite) TestAudit_SinkFailureIsSwallowed() {
	sink := new(MockAuditSink)
	sink.On("Record", mock.Anything, mock.AnythingOfType("collaborators.AuditRecord")).Return(errors.New("sink down"))
	s.svc = s.newContainer(services.WithAuditSink(sink))

	dealID := s.createDeal("1000", 2, "0", domain.ScheduleTypeAnnuity)
	s.NotEmpty(dealID)
	sink.AssertCalled(s.T(), "Record", mock.Anything, mock.MatchedBy(func(rec collaborators.AuditRecord) bool {
		return rec.Action == "deal.create" && rec.EntityID == dealID
	}))
}
