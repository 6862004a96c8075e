package pgsql

import (
	portsrepo "github.com/SscSPs/finance_deal_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires every postgres-backed port. The audit log table is only used
// when auditEnabled is set.
func NewRepositoryProvider(dbPool *pgxpool.Pool, auditEnabled bool) portsrepo.RepositoryProvider {
	base := BaseRepository{Pool: dbPool}

	provider := portsrepo.RepositoryProvider{
		Tx:             &base,
		DealRepo:       newPgxDealRepository(base),
		LedgerRepo:     newPgxLedgerRepository(base),
		ScheduleRepo:   newPgxScheduleRepository(base),
		PauseRepo:      newPgxPauseRepository(base),
		CollateralRepo: newPgxCollateralRepository(base),
		Cashbox:        newPgxCashbox(base),
		Valuations:     newPgxValuationStore(base),
	}
	if auditEnabled {
		provider.AuditLog = newPgxAuditLog(base)
	}
	return provider
}
