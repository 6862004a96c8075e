package services

// ServiceContainer holds instances of all the application services.
// Handlers and the worker binaries reach the engine only through it.
type ServiceContainer struct {
	Deal       DealSvcFacade
	Ledger     LedgerSvcFacade
	Payment    PaymentSvcFacade
	Schedule   ScheduleSvcFacade
	Pause      PauseSvcFacade
	Collateral CollateralSvcFacade
}
