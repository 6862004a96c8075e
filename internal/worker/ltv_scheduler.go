// Package worker runs periodic engine jobs outside the request path.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	portssvc "github.com/SscSPs/finance_deal_ledger/internal/core/ports/services"
	"github.com/robfig/cron/v3"
)

// LTVScheduler re-evaluates every active collateral link on a cron spec.
type LTVScheduler struct {
	cron    *cron.Cron
	risk    portssvc.CollateralRiskSvc
	logger  *slog.Logger
	spec    string
	timeout time.Duration

	mu      sync.Mutex
	running bool
	entryID cron.EntryID
}

// NewLTVScheduler builds a scheduler for spec (standard five-field cron or a descriptor
// such as "@every 1h"). A run that is still going when the next one is due is skipped.
func NewLTVScheduler(risk portssvc.CollateralRiskSvc, spec string, timeout time.Duration, logger *slog.Logger) *LTVScheduler {
	return &LTVScheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		risk:    risk,
		logger:  logger,
		spec:    spec,
		timeout: timeout,
	}
}

// Start registers the job and starts the cron loop.
func (s *LTVScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("ltv scheduler already running")
	}

	id, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) })
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", s.spec, err)
	}
	s.entryID = id
	s.cron.Start()
	s.running = true
	s.logger.Info("LTV scheduler started", slog.String("spec", s.spec), slog.Time("next_run", s.cron.Entry(id).Next))
	return nil
}

// Stop waits for a running evaluation to finish.
func (s *LTVScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("LTV scheduler stopped")
}

// RunOnce evaluates all active links and logs links above the alert threshold.
func (s *LTVScheduler) RunOnce(ctx context.Context) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	result, err := s.risk.EvaluateActiveCollateral(ctx)
	if err != nil {
		s.logger.Error("LTV evaluation failed", slog.String("error", err.Error()))
		return
	}

	for _, alert := range result.AboveThreshold {
		s.logger.Warn("Collateral above LTV threshold",
			slog.String("link_id", alert.LinkID),
			slog.String("ltv", alert.LTV.String()),
			slog.String("outstanding", alert.OutstandingPrincipal.String()))
	}
	s.logger.Info("LTV evaluation finished",
		slog.Int("evaluated", result.Evaluated),
		slog.Int("failed", result.Failed),
		slog.Int("above_threshold", len(result.AboveThreshold)),
		slog.Duration("took", time.Since(started)))
}
