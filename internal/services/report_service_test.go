package services

import (
	"context"
	"errors"
	"testing"

	"ledger/internal/core"
	"ledger/internal/store/memory"
)

func TestReportService(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	ledger := NewLedgerService(st, nil)
	reports := NewReportService(st)

	u := mustRegister(t, ledger, "ada@example.com")
	checking := mustOpen(t, ledger, u.ID, "Checking", core.Checking, core.NewMoney(1000, 0))
	card := mustOpen(t, ledger, u.ID, "Card", core.CreditCard, core.NewMoney(100, 0))
	march := core.NewYearMonth(2024, 3)

	for _, b := range []core.Budget{
		{UserID: u.ID, Category: core.Groceries, Amount: core.NewMoney(200, 0), Month: march},
		{UserID: u.ID, Category: core.DiningOut, Amount: core.NewMoney(150, 0), Month: march},
		{UserID: u.ID, Category: core.Travel, Amount: core.NewMoney(300, 0), Month: march},
	} {
		if _, err := ledger.CreateBudget(ctx, b); err != nil {
			t.Fatalf("CreateBudget: %v", err)
		}
	}

	record := func(accountID int64, tx core.Transaction) {
		t.Helper()
		if _, _, err := ledger.RecordTransaction(ctx, accountID, tx); err != nil {
			t.Fatalf("RecordTransaction: %v", err)
		}
	}
	record(checking.ID, expense(core.NewMoney(30, 0), core.Groceries, core.NewDate(2024, 3, 2)))
	record(card.ID, expense(core.NewMoney(20, 0), core.Groceries, core.NewDate(2024, 3, 20)))
	record(checking.ID, expense(core.NewMoney(150, 1), core.DiningOut, core.NewDate(2024, 3, 9)))
	record(checking.ID, expense(core.NewMoney(99, 0), core.Groceries, core.NewDate(2024, 4, 1)))
	record(checking.ID, core.Transaction{Description: "pay", Amount: core.NewMoney(2500, 0), Type: core.Income, Category: core.Salary, Date: core.NewDate(2024, 3, 1)})

	t.Run("budget statuses", func(t *testing.T) {
		statuses, err := reports.BudgetStatuses(ctx, u.ID, march)
		if err != nil {
			t.Fatalf("BudgetStatuses: %v", err)
		}
		if len(statuses) != 3 {
			t.Fatalf("expected 3 statuses, got %d", len(statuses))
		}
		// Ordered by category: DINING_OUT, GROCERIES, TRAVEL.
		dining, groceries, travel := statuses[0], statuses[1], statuses[2]

		if !dining.Exceeded || dining.Spent != core.NewMoney(150, 1) || dining.Remaining != (core.Money{Cents: -1}) {
			t.Errorf("dining: %+v", dining)
		}
		if groceries.Exceeded || groceries.Spent != core.NewMoney(50, 0) || groceries.UsagePercentage.StringFixed(4) != "25.0000" {
			t.Errorf("groceries: spent %s usage %s", groceries.Spent, groceries.UsagePercentage)
		}
		if !travel.Spent.IsZero() || !travel.UsagePercentage.IsZero() || travel.Remaining != core.NewMoney(300, 0) {
			t.Errorf("travel: %+v", travel)
		}
	})

	t.Run("single budget status", func(t *testing.T) {
		got, err := reports.BudgetStatus(ctx, u.ID, core.Groceries, march)
		if err != nil || got.Remaining != core.NewMoney(150, 0) {
			t.Errorf("BudgetStatus: %+v %v", got, err)
		}
		if _, err := reports.BudgetStatus(ctx, u.ID, core.Shopping, march); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("missing budget: %v", err)
		}
	})

	t.Run("period summary", func(t *testing.T) {
		sum, err := reports.PeriodSummary(ctx, u.ID, core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 31))
		if err != nil {
			t.Fatalf("PeriodSummary: %v", err)
		}
		if sum.Income != core.NewMoney(2500, 0) || sum.Expense != core.NewMoney(200, 1) || sum.Net() != core.NewMoney(2299, 99) {
			t.Errorf("unexpected summary income=%s expense=%s net=%s", sum.Income, sum.Expense, sum.Net())
		}

		empty, err := reports.PeriodSummary(ctx, u.ID, core.NewDate(2020, 1, 1), core.NewDate(2020, 1, 31))
		if err != nil || !empty.Income.IsZero() || !empty.Expense.IsZero() {
			t.Errorf("empty period should be zero: %+v %v", empty, err)
		}

		if _, err := reports.PeriodSummary(ctx, u.ID, core.NewDate(2024, 3, 31), core.NewDate(2024, 3, 1)); !errors.Is(err, core.ErrInvalidDateRange) {
			t.Errorf("inverted range: %v", err)
		}
	})

	t.Run("overview", func(t *testing.T) {
		ov, err := reports.Overview(ctx, u.ID)
		if err != nil {
			t.Fatalf("Overview: %v", err)
		}
		// 1000 - 30 - 150.01 - 99 + 2500 on checking, 100 - 20 on the card.
		if len(ov.Accounts) != 2 || ov.TotalBalance != core.NewMoney(3300, 99) {
			t.Errorf("unexpected overview accounts=%d total=%s", len(ov.Accounts), ov.TotalBalance)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		if _, err := reports.BudgetStatuses(ctx, 999, march); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("BudgetStatuses: %v", err)
		}
		if _, err := reports.PeriodSummary(ctx, 999, core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 2)); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("PeriodSummary: %v", err)
		}
		if _, err := reports.Overview(ctx, 999); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Overview: %v", err)
		}
	})
}
