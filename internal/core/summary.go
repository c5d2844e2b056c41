package core

import "github.com/shopspring/decimal"

// BudgetStatus is a budget with its metrics derived from the month's spend.
type BudgetStatus struct {
	Budget          Budget
	Spent           Money
	Remaining       Money
	UsagePercentage decimal.Decimal
	Exceeded        bool
}

// PeriodSummary holds income and expense totals over an inclusive date range.
type PeriodSummary struct {
	UserID  int64
	From    Date
	To      Date
	Income  Money
	Expense Money
}

// Net returns income minus expense.
func (p PeriodSummary) Net() Money {
	return p.Income.Sub(p.Expense)
}

// UserOverview is a compact summary of a user's accounts.
type UserOverview struct {
	User         User
	Accounts     []Account
	TotalBalance Money
}
