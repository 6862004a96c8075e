package accounting

import (
	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// ltvPrecision is the number of decimal places LTV percentages are stored with.
const ltvPrecision = 2

var hundred = decimal.NewFromInt(100)

// LoanToValue returns outstanding / valuation * 100. An overpaid (negative) outstanding
// counts as zero exposure.
func LoanToValue(outstanding, valuation decimal.Decimal) (decimal.Decimal, error) {
	if !valuation.IsPositive() {
		return decimal.Zero, apperrors.NewValidation(apperrors.CodeZeroValuation, "collateral valuation must be positive")
	}
	exposure := decimal.Max(outstanding, decimal.Zero)
	return exposure.Div(valuation).Mul(hundred).Round(ltvPrecision), nil
}

// ExceedsThreshold reports whether ltv is strictly above a positive threshold.
func ExceedsThreshold(ltv, threshold decimal.Decimal) bool {
	return threshold.IsPositive() && ltv.GreaterThan(threshold)
}
