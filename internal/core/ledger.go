package core

import "github.com/shopspring/decimal"

// AddTransaction appends t to the account and applies it to the current
// balance: income adds the amount, expense subtracts it. t is expected to be
// valid; callers validate before reaching the ledger.
func (a *Account) AddTransaction(t Transaction) Transaction {
	t.AccountID = a.ID
	a.CurrentBalance = ApplyToBalance(a.CurrentBalance, t)
	a.Transactions = append(a.Transactions, t)
	return t
}

// ApplyToBalance returns balance adjusted by the signed amount of t.
func ApplyToBalance(balance Money, t Transaction) Money {
	if t.Type == Income {
		return balance.Add(t.Amount)
	}
	return balance.Sub(t.Amount)
}

// UsagePercentage returns spent/budget*100 with the ratio rounded half-up to
// four fractional digits. A zero budget amount yields zero.
func (b Budget) UsagePercentage(spent Money) decimal.Decimal {
	if b.Amount.IsZero() {
		return decimal.Zero
	}
	ratio := spent.Decimal().DivRound(b.Amount.Decimal(), 4)
	return ratio.Mul(hundred)
}

// IsExceeded reports whether spent is strictly greater than the budget amount.
func (b Budget) IsExceeded(spent Money) bool {
	return spent.Cmp(b.Amount) > 0
}

// Remaining returns the budget amount minus spent; negative means overspent.
func (b Budget) Remaining(spent Money) Money {
	return b.Amount.Sub(spent)
}

// Status derives the budget metrics for an externally aggregated spend figure.
func (b Budget) Status(spent Money) BudgetStatus {
	return BudgetStatus{
		Budget:          b,
		Spent:           spent,
		Remaining:       b.Remaining(spent),
		UsagePercentage: b.UsagePercentage(spent),
		Exceeded:        b.IsExceeded(spent),
	}
}
