package memory

import (
	"context"
	"testing"

	"ledger/internal/core"
	ports "ledger/internal/sheets"
)

func TestSheetAppendTransaction(t *testing.T) {
	s := New()
	row := ports.TransactionRow{
		User:    core.User{ID: 1, Email: "ada@example.com"},
		Account: core.Account{ID: 2, Name: "Checking", Type: core.Checking},
		Transaction: core.Transaction{
			Description: "t",
			Amount:      core.Money{Cents: 123},
			Type:        core.Expense,
			Category:    core.Groceries,
			Date:        core.NewDate(2024, 1, 1),
		},
	}

	ref, err := s.AppendTransaction(context.Background(), row)
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	if rows := s.Rows(); len(rows) != 1 || rows[0].Account.Name != "Checking" {
		t.Fatalf("unexpected rows: %+v", rows)
	}

	row.Transaction.Amount = core.Money{}
	if _, err := s.AppendTransaction(context.Background(), row); err == nil {
		t.Fatal("expected validation error for zero amount")
	}
	if len(s.Rows()) != 1 {
		t.Fatal("invalid row must not be stored")
	}
}

func TestSheetWriteBudgetReport(t *testing.T) {
	s := New()
	b := core.Budget{Category: core.Travel, Amount: core.NewMoney(100, 0), Month: core.NewYearMonth(2024, 5)}
	statuses := []core.BudgetStatus{b.Status(core.NewMoney(40, 0))}

	ref, err := s.WriteBudgetReport(context.Background(), core.User{ID: 1}, b.Month, statuses)
	if err != nil || ref != "mem:budgets:1" {
		t.Fatalf("unexpected write: ref=%q err=%v", ref, err)
	}

	statuses[0].Exceeded = true
	reports := s.Reports()
	if len(reports) != 1 || reports[0].Statuses[0].Exceeded {
		t.Fatalf("report should hold its own copy: %+v", reports)
	}
	if reports[0].Statuses[0].Remaining != core.NewMoney(60, 0) {
		t.Fatalf("unexpected remaining %s", reports[0].Statuses[0].Remaining)
	}
}
