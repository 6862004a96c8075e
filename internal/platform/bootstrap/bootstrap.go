// Package bootstrap wires storage and audit sinks from configuration for the service binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/finance_deal_ledger/internal/adapters/audit"
	"github.com/SscSPs/finance_deal_ledger/internal/core/ports/collaborators"
	portsrepo "github.com/SscSPs/finance_deal_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/finance_deal_ledger/internal/platform/config"
	"github.com/SscSPs/finance_deal_ledger/internal/repositories/database/pgsql"
	"github.com/SscSPs/finance_deal_ledger/internal/repositories/memory"
	"github.com/SscSPs/finance_deal_ledger/internal/utils"
	"github.com/SscSPs/finance_deal_ledger/pkg/database"
)

// Runtime holds the storage-backed ports and the audit fan-out of a running binary.
type Runtime struct {
	Repos     portsrepo.RepositoryProvider
	AuditSink collaborators.AuditSink
	closers   []func()
}

// Close releases connections in reverse order of acquisition.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// Open connects the configured storage driver and audit sinks. When runMigrations is set
// the postgres schema is migrated before the pool is handed out.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, posthogClient *utils.PosthogClientWrapper, runMigrations bool) (*Runtime, error) {
	rt := &Runtime{}

	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		rt.Repos = memory.NewRepositoryProvider(memory.NewStore())
		logger.Warn("Using in-memory storage, data is not persisted.")
	default:
		if runMigrations {
			if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
				return nil, err
			}
		}
		dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, database.PoolOptions{
			MaxConns:       cfg.DBMaxConns,
			ConnectTimeout: cfg.DBConnTimeout,
			Ping:           cfg.EnableDBCheck,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database pool: %w", err)
		}
		rt.closers = append(rt.closers, func() { database.ClosePgxPool(dbPool) })
		rt.Repos = pgsql.NewRepositoryProvider(dbPool, cfg.AuditDBEnabled)
		logger.Info("Database connection pool established.")
	}

	sinks := []collaborators.AuditSink{audit.LogSink{}}
	if cfg.AuditDBEnabled && rt.Repos.AuditLog != nil {
		sinks = append(sinks, rt.Repos.AuditLog)
	}
	if posthogClient.IsInitialized() {
		sinks = append(sinks, audit.NewPosthogSink(posthogClient))
	}
	if cfg.NATSURL != "" {
		nc, js, err := audit.ConnectNATS(cfg.NATSURL, logger)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, func() {
			if err := nc.Drain(); err != nil {
				logger.Warn("Failed to drain NATS connection", slog.String("error", err.Error()))
			}
		})
		if err := audit.EnsureAuditStream(ctx, js, cfg.NATSSubjectPrefix); err != nil {
			rt.Close()
			return nil, err
		}
		sinks = append(sinks, audit.NewNATSSink(js, cfg.NATSSubjectPrefix))
		logger.Info("NATS audit publishing enabled", slog.String("stream", audit.StreamName(cfg.NATSSubjectPrefix)))
	}

	multi := audit.NewMultiSink(sinks...)
	rt.AuditSink = multi
	logger.Info("Audit sinks configured", slog.Int("count", multi.Len()))
	return rt, nil
}
