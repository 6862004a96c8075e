package repositories

import "github.com/SscSPs/finance_deal_ledger/internal/core/ports/collaborators"

// RepositoryProvider holds all repositories and storage-backed collaborators needed by services.
type RepositoryProvider struct {
	Tx             TransactionManager
	DealRepo       DealRepositoryFacade
	LedgerRepo     LedgerRepositoryFacade
	ScheduleRepo   ScheduleRepositoryFacade
	PauseRepo      PauseRepositoryFacade
	CollateralRepo CollateralRepositoryFacade
	Cashbox        collaborators.Cashbox
	Valuations     collaborators.AssetValuationStore
	AuditLog       collaborators.AuditSink
}
