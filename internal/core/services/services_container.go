package services

import (
	portsrepo "github.com/SscSPs/finance_deal_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/finance_deal_ledger/internal/core/ports/services"
	"github.com/SscSPs/finance_deal_ledger/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies.
// Policy settings come from cfg (which may be nil) and can be overridden by options.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, options ...ServiceOption) *portssvc.ServiceContainer {
	opts := &serviceOptions{auditSink: repos.AuditLog}
	if cfg != nil {
		opts.closeRequiresZeroBalance = cfg.CloseRequiresZeroBalance
		opts.ltvAlertThreshold = cfg.LTVAlertThreshold
	}
	for _, option := range options {
		option(opts)
	}

	engine := &dealEngine{
		BaseService: BaseService{
			auditSink: opts.auditSink,
			metrics:   opts.metrics,
			clock:     opts.clock,
		},
		tx:       repos.Tx,
		deals:    repos.DealRepo,
		ledger:   repos.LedgerRepo,
		schedule: repos.ScheduleRepo,
		pauses:   repos.PauseRepo,
		cashbox:  repos.Cashbox,
	}

	return &portssvc.ServiceContainer{
		Deal:     newDealService(engine, opts.closeRequiresZeroBalance),
		Ledger:   newLedgerService(engine),
		Payment:  newPaymentService(engine),
		Schedule: newScheduleService(engine),
		Pause:    newPauseService(engine),
		Collateral: newCollateralService(engine, repos.CollateralRepo, repos.Valuations,
			opts.ltvAlertThreshold),
	}
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.DealSvcFacade       = (*dealService)(nil)
	_ portssvc.LedgerSvcFacade     = (*ledgerService)(nil)
	_ portssvc.PaymentSvcFacade    = (*paymentService)(nil)
	_ portssvc.ScheduleSvcFacade   = (*scheduleService)(nil)
	_ portssvc.PauseSvcFacade      = (*pauseService)(nil)
	_ portssvc.CollateralSvcFacade = (*collateralService)(nil)
)
