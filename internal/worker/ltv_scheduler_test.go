package worker_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/dto"
	"github.com/SscSPs/finance_deal_ledger/internal/worker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRiskService struct {
	mock.Mock
}

func (m *MockRiskService) EvaluateCollateral(ctx context.Context, linkID string, outstanding *decimal.Decimal) (*dto.EvaluationResult, error) {
	args := m.Called(ctx, linkID, outstanding)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.EvaluationResult), args.Error(1)
}

func (m *MockRiskService) EvaluateActiveCollateral(ctx context.Context) (*dto.BatchEvaluationResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.BatchEvaluationResult), args.Error(1)
}

func newLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestRunOnce_LogsAlerts(t *testing.T) {
	var buf bytes.Buffer
	risk := new(MockRiskService)
	risk.On("EvaluateActiveCollateral", mock.Anything).Return(&dto.BatchEvaluationResult{
		Evaluated: 2,
		AboveThreshold: []dto.EvaluationResult{
			{LinkID: "link-1", LTV: decimal.NewFromInt(95), OutstandingPrincipal: decimal.NewFromInt(9500)},
		},
	}, nil).Once()

	worker.NewLTVScheduler(risk, "@every 1h", time.Minute, newLogger(&buf)).RunOnce(context.Background())

	risk.AssertExpectations(t)
	out := buf.String()
	assert.Contains(t, out, "Collateral above LTV threshold")
	assert.Contains(t, out, "link_id=link-1")
	assert.Contains(t, out, "evaluated=2")
}

func TestRunOnce_LogsFailure(t *testing.T) {
	var buf bytes.Buffer
	risk := new(MockRiskService)
	risk.On("EvaluateActiveCollateral", mock.Anything).Return(nil, errors.New("database down")).Once()

	worker.NewLTVScheduler(risk, "@every 1h", 0, newLogger(&buf)).RunOnce(context.Background())

	assert.Contains(t, buf.String(), "LTV evaluation failed")
	assert.NotContains(t, buf.String(), "LTV evaluation finished")
}

func TestRunOnce_AppliesTimeout(t *testing.T) {
	var buf bytes.Buffer
	risk := new(MockRiskService)
	risk.On("EvaluateActiveCollateral", mock.MatchedBy(func(ctx context.Context) bool {
		_, hasDeadline := ctx.Deadline()
		return hasDeadline
	})).Return(&dto.BatchEvaluationResult{}, nil).Once()

	worker.NewLTVScheduler(risk, "@every 1h", time.Second, newLogger(&buf)).RunOnce(context.Background())

	risk.AssertExpectations(t)
}

func TestStart_RejectsInvalidSpec(t *testing.T) {
	var buf bytes.Buffer
	s := worker.NewLTVScheduler(new(MockRiskService), "not a cron spec", 0, newLogger(&buf))

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron spec")
}

func TestStartStop(t *testing.T) {
	var buf bytes.Buffer
	s := worker.NewLTVScheduler(new(MockRiskService), "@every 1h", 0, newLogger(&buf))

	require.NoError(t, s.Start(context.Background()))
	assert.Error(t, s.Start(context.Background()))
	s.Stop()
	s.Stop()
	assert.Contains(t, buf.String(), "LTV scheduler started")
	assert.Contains(t, buf.String(), "LTV scheduler stopped")
}
