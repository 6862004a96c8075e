package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/core/services"
	"github.com/SscSPs/finance_deal_ledger/internal/platform/bootstrap"
	"github.com/SscSPs/finance_deal_ledger/internal/platform/config"
	"github.com/SscSPs/finance_deal_ledger/internal/utils"
	"github.com/SscSPs/finance_deal_ledger/internal/worker"
)

// ltv_worker periodically re-evaluates loan-to-value of every active collateral link.
// Pass -once to run a single evaluation and exit.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(slog.String("component", "ltv_worker"))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	posthogClient := utils.InitializePosthogClient(cfg.PosthogAPIKey, cfg.PosthogEndpoint, logger)
	defer posthogClient.Close()

	// The API binary owns migrations.
	rt, err := bootstrap.Open(ctx, cfg, logger, posthogClient, false)
	if err != nil {
		logger.Error("Failed to initialize storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer rt.Close()

	serviceContainer := services.NewServiceContainer(cfg, rt.Repos, services.WithAuditSink(rt.AuditSink))
	scheduler := worker.NewLTVScheduler(serviceContainer.Collateral, cfg.LTVCronSpec, 10*time.Minute, logger)

	if len(os.Args) > 1 && os.Args[1] == "-once" {
		scheduler.RunOnce(ctx)
		return
	}

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start scheduler", slog.String("error", err.Error()))
		os.Exit(1)
	}
	<-ctx.Done()
	scheduler.Stop()
}
