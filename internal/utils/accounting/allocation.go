package accounting

import (
	"github.com/SscSPs/finance_deal_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Component is the part of a schedule line a payment step settles.
type Component string

const (
	ComponentInterest  Component = "INTEREST"
	ComponentPrincipal Component = "PRINCIPAL"
)

// EntryType maps the component to the ledger entry type it produces.
func (c Component) EntryType() domain.EntryType {
	if c == ComponentInterest {
		return domain.EntryInterestPayment
	}
	return domain.EntryPrincipalRepayment
}

// AllocationStep is one slice of a payment applied to a line component.
type AllocationStep struct {
	LineID    string
	Seq       int
	Component Component
	Amount    decimal.Decimal
}

// Allocation is the outcome of distributing a payment over a schedule.
type Allocation struct {
	Steps         []AllocationStep
	Lines         []domain.ScheduleLine // every line, with paid amounts updated
	Touched       []domain.ScheduleLine // only the lines that received money
	InterestPaid  decimal.Decimal
	PrincipalPaid decimal.Decimal
	Remainder     decimal.Decimal // left over after every line is settled
}

// AllocatePayment distributes amount over the lines oldest due date first, settling
// remaining interest before remaining principal on each line. The input is not modified.
func AllocatePayment(lines []domain.ScheduleLine, amount decimal.Decimal) Allocation {
	result := Allocation{
		Lines:         SortLines(lines),
		InterestPaid:  decimal.Zero,
		PrincipalPaid: decimal.Zero,
	}
	remaining := amount
	for i := range result.Lines {
		if !remaining.IsPositive() {
			break
		}
		line := &result.Lines[i]
		if line.IsFullyPaid() {
			continue
		}
		touched := false

		if due := line.InterestRemaining(); due.IsPositive() {
			take := decimal.Min(due, remaining)
			line.InterestPaid = line.InterestPaid.Add(take)
			remaining = remaining.Sub(take)
			result.InterestPaid = result.InterestPaid.Add(take)
			result.Steps = append(result.Steps, AllocationStep{LineID: line.LineID, Seq: line.Seq, Component: ComponentInterest, Amount: take})
			touched = true
		}
		if due := line.PrincipalRemaining(); due.IsPositive() && remaining.IsPositive() {
			take := decimal.Min(due, remaining)
			line.PrincipalPaid = line.PrincipalPaid.Add(take)
			remaining = remaining.Sub(take)
			result.PrincipalPaid = result.PrincipalPaid.Add(take)
			result.Steps = append(result.Steps, AllocationStep{LineID: line.LineID, Seq: line.Seq, Component: ComponentPrincipal, Amount: take})
			touched = true
		}
		if touched {
			result.Touched = append(result.Touched, *line)
		}
	}
	result.Remainder = decimal.Max(remaining, decimal.Zero)
	return result
}
