package memory

import (
	"context"
	"sync"
	"testing"

	"ledger/internal/core"
	"ledger/internal/store"
	"ledger/internal/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func TestRecordTransactionConcurrent(t *testing.T) {
	s := New()
	ctx := context.Background()
	u, err := s.CreateUser(ctx, core.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	a, err := s.CreateAccount(ctx, core.NewAccount(u.ID, "Checking", core.Checking, core.NewMoney(1000, 0)))
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			typ, cat := core.Expense, core.Groceries
			if i%2 == 0 {
				typ, cat = core.Income, core.Salary
			}
			_, _, err := s.RecordTransaction(ctx, a.ID, core.Transaction{
				Description: "t", Amount: core.Money{Cents: 100}, Type: typ, Category: cat, Date: core.NewDate(2024, 1, 1),
			})
			if err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	got, err := s.GetAccount(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrentBalance != core.NewMoney(1000, 0) {
		t.Fatalf("expected 1000.00 after balanced inserts, got %s", got.CurrentBalance)
	}
	if len(got.Transactions) != 100 {
		t.Fatalf("expected 100 transactions, got %d", len(got.Transactions))
	}
}

func TestGetAccountReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	u, _ := s.CreateUser(ctx, core.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"})
	a, _ := s.CreateAccount(ctx, core.NewAccount(u.ID, "Checking", core.Checking, core.NewMoney(10, 0)))

	got, _ := s.GetAccount(ctx, a.ID)
	got.AddTransaction(core.Transaction{Amount: core.NewMoney(5, 0), Type: core.Expense})

	again, _ := s.GetAccount(ctx, a.ID)
	if again.CurrentBalance != core.NewMoney(10, 0) || len(again.Transactions) != 0 {
		t.Fatalf("stored account mutated through a returned copy: %+v", again)
	}
}
