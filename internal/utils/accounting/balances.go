package accounting

import (
	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ComputeBalances derives a deal's balances from its contract principal and the complete
// set of its ledger entries. Entries are summed per type, so order does not matter.
//
// Outstanding principal keeps its sign; DisplayOutstanding floors it at zero and Overpaid
// flags the negative case.
func ComputeBalances(principal decimal.Decimal, entries []domain.LedgerEntry) domain.Balances {
	sums := make(map[domain.EntryType]decimal.Decimal)
	for _, e := range entries {
		sums[e.EntryType] = sumOf(sums, e.EntryType).Add(e.Amount)
	}

	disbursed := principal.Add(sumOf(sums, domain.EntryDisbursement))
	principalRepaid := sumOf(sums, domain.EntryPrincipalRepayment).
		Add(sumOf(sums, domain.EntryEarlyRepayment)).
		Add(sumOf(sums, domain.EntryCollateralSaleProceeds))
	outstanding := disbursed.Sub(principalRepaid)

	return domain.Balances{
		TotalDisbursed:       disbursed,
		PrincipalRepaid:      principalRepaid,
		InterestRepaid:       sumOf(sums, domain.EntryInterestPayment),
		OutstandingPrincipal: outstanding,
		DisplayOutstanding:   decimal.Max(outstanding, decimal.Zero),
		Overpaid:             outstanding.IsNegative(),
		FeesCharged:          sumOf(sums, domain.EntryFee),
		PenaltiesCharged:     sumOf(sums, domain.EntryPenalty),
		AdjustmentsNet:       sumOf(sums, domain.EntryAdjustment),
		OffsetsTotal:         sumOf(sums, domain.EntryOffset),
	}
}

func sumOf(sums map[domain.EntryType]decimal.Decimal, t domain.EntryType) decimal.Decimal {
	if v, ok := sums[t]; ok {
		return v
	}
	return decimal.Zero
}

// PaidTotals returns the scheduled principal and interest paid according to the ledger.
// Early repayments are excluded because they are never attributed to schedule lines.
func PaidTotals(entries []domain.LedgerEntry) (principal, interest decimal.Decimal) {
	principal, interest = decimal.Zero, decimal.Zero
	for _, e := range entries {
		switch e.EntryType {
		case domain.EntryPrincipalRepayment:
			principal = principal.Add(e.Amount)
		case domain.EntryInterestPayment:
			interest = interest.Add(e.Amount)
		case domain.EntryDisbursement, domain.EntryEarlyRepayment, domain.EntryFee, domain.EntryPenalty,
			domain.EntryAdjustment, domain.EntryOffset, domain.EntryCollateralSaleProceeds:
		}
	}
	return principal, interest
}
