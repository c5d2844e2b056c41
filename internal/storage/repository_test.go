package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/lib/pq"

	"ledger/internal/core"
	"ledger/internal/store"
	"ledger/internal/store/storetest"
)

func newTestRepository(t *testing.T) *SQLRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return newTestRepository(t) })
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		repo.Close()
	}
}

func TestRecordTransactionPersistsBalance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	u, err := repo.CreateUser(ctx, core.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	a, err := repo.CreateAccount(ctx, core.NewAccount(u.ID, "Checking", core.Checking, core.NewMoney(1000, 0)))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := repo.RecordTransaction(ctx, a.ID, core.Transaction{
		Description: "rent", Amount: core.NewMoney(200, 0), Type: core.Expense, Category: core.RentMortgage, Date: core.NewDate(2024, 3, 1),
	}); err != nil {
		t.Fatal(err)
	}
	repo.Close()

	reopened, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	got, err := reopened.GetAccount(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrentBalance != core.NewMoney(800, 0) {
		t.Errorf("expected 800.00 after reopen, got %s", got.CurrentBalance)
	}
}

func TestRecordTransactionConcurrent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	u, _ := repo.CreateUser(ctx, core.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"})
	a, err := repo.CreateAccount(ctx, core.NewAccount(u.ID, "Checking", core.Checking, core.NewMoney(100, 0)))
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := repo.RecordTransaction(ctx, a.ID, core.Transaction{
				Description: "coffee", Amount: core.NewMoney(1, 0), Type: core.Expense, Category: core.DiningOut, Date: core.NewDate(2024, 3, 1),
			}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	got, err := repo.GetAccount(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrentBalance != core.NewMoney(80, 0) {
		t.Errorf("expected 80.00, got %s", got.CurrentBalance)
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		dialect Dialect
		in      string
		want    string
	}{
		{SQLite, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = ? AND b = ?"},
		{Postgres, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{Postgres, "SELECT 1", "SELECT 1"},
	}
	for _, tt := range tests {
		if got := tt.dialect.rebind(tt.in); got != tt.want {
			t.Errorf("%s rebind(%q) = %q, want %q", tt.dialect, tt.in, got, tt.want)
		}
	}
}

func TestLockSuffix(t *testing.T) {
	if SQLite.lockSuffix() != "" {
		t.Error("sqlite should not lock rows explicitly")
	}
	if Postgres.lockSuffix() != " FOR UPDATE" {
		t.Errorf("unexpected postgres suffix %q", Postgres.lockSuffix())
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})) {
		t.Error("expected pq 23505 to be a unique violation")
	}
	if isUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("foreign key violation is not a unique violation")
	}
	if isUniqueViolation(errors.New("boom")) {
		t.Error("plain error is not a unique violation")
	}
}

func TestNotFoundMapping(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.GetBudget(ctx, 99)
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteAccount(ctx, 99); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting missing account, got %v", err)
	}
	if _, err := repo.ListAccountTransactions(ctx, 99); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound listing missing account, got %v", err)
	}
}
