package accounting

import (
	"errors"
	"testing"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoanToValue_ScenarioE(t *testing.T) {
	ltv, err := LoanToValue(d("6000"), d("10000"))
	require.NoError(t, err)
	assert.True(t, ltv.Equal(d("60")), ltv.String())
}

func TestLoanToValue_RoundsAndFloors(t *testing.T) {
	ltv, err := LoanToValue(d("1000"), d("3000"))
	require.NoError(t, err)
	assert.True(t, ltv.Equal(d("33.33")), ltv.String())

	ltv, err = LoanToValue(d("-50"), d("3000"))
	require.NoError(t, err)
	assert.True(t, ltv.IsZero())
}

func TestLoanToValue_ZeroValuation(t *testing.T) {
	_, err := LoanToValue(d("1000"), d("0"))
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.Equal(t, apperrors.CodeZeroValuation, apperrors.CodeOf(err))
}

func TestExceedsThreshold(t *testing.T) {
	assert.True(t, ExceedsThreshold(d("80.01"), d("80")))
	assert.False(t, ExceedsThreshold(d("80"), d("80")))
	assert.False(t, ExceedsThreshold(d("500"), d("0")))
}
