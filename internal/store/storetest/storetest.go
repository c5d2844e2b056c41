// Package storetest holds behaviour checks shared by every store.Store implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledger/internal/core"
	"ledger/internal/store"
)

// Run exercises s against the ordering, default-zero, cascade and conflict
// rules of the store ports. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("accounts", func(t *testing.T) { testAccounts(t, newStore(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("aggregates", func(t *testing.T) { testAggregates(t, newStore(t)) })
	t.Run("budgets", func(t *testing.T) { testBudgets(t, newStore(t)) })
	t.Run("cascade", func(t *testing.T) { testCascade(t, newStore(t)) })
	t.Run("exports", func(t *testing.T) { testExports(t, newStore(t)) })
}

func mustUser(t *testing.T, s store.Store, first, last, email string) core.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), core.User{FirstName: first, LastName: last, Email: email})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func mustAccount(t *testing.T, s store.Store, userID int64, name string, typ core.AccountType, initial core.Money) core.Account {
	t.Helper()
	a, err := s.CreateAccount(context.Background(), core.NewAccount(userID, name, typ, initial))
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

func mustRecord(t *testing.T, s store.Store, accountID int64, amount core.Money, typ core.TransactionType, cat core.Category, date core.Date) core.Transaction {
	t.Helper()
	tx, _, err := s.RecordTransaction(context.Background(), accountID, core.Transaction{
		Description: string(cat),
		Amount:      amount,
		Type:        typ,
		Category:    cat,
		Date:        date,
	})
	if err != nil {
		t.Fatalf("record transaction: %v", err)
	}
	return tx
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "Ada", "Lovelace", "ada@example.com")
	if u.ID == 0 || u.CreatedAt.IsZero() {
		t.Fatalf("expected generated id and timestamp, got %+v", u)
	}

	if _, err := s.CreateUser(ctx, core.User{FirstName: "Other", LastName: "Ada", Email: "ada@example.com"}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("duplicate email: expected conflict, got %v", err)
	}

	got, err := s.GetUser(ctx, u.ID)
	if err != nil || got.Email != u.Email {
		t.Fatalf("get user: %+v %v", got, err)
	}
	if _, err := s.GetUser(ctx, u.ID+1000); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing user: expected not found, got %v", err)
	}

	byEmail, err := s.FindUserByEmail(ctx, "ada@example.com")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("find by email: %+v %v", byEmail, err)
	}
	if _, err := s.FindUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := s.CreateUser(ctx, core.User{FirstName: "Other", LastName: "Ada", Email: "Ada@Example.com"}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("email differing only in case: expected conflict, got %v", err)
	}
	byUpper, err := s.FindUserByEmail(ctx, " ADA@EXAMPLE.COM ")
	if err != nil || byUpper.ID != u.ID {
		t.Fatalf("find by email ignoring case: %+v %v", byUpper, err)
	}

	exists, err := s.EmailExists(ctx, "ADA@example.com")
	if err != nil || !exists {
		t.Fatalf("email exists: %v %v", exists, err)
	}
	exists, err = s.EmailExists(ctx, "nobody@example.com")
	if err != nil || exists {
		t.Fatalf("email should not exist: %v %v", exists, err)
	}

	byName, err := s.FindUserByName(ctx, "ADA", "lovelace")
	if err != nil || byName.ID != u.ID {
		t.Fatalf("find by name: %+v %v", byName, err)
	}
	if _, err := s.FindUserByName(ctx, "Grace", "Hopper"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func testAccounts(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "Ada", "Lovelace", "ada@example.com")
	other := mustUser(t, s, "Grace", "Hopper", "grace@example.com")

	mustAccount(t, s, u.ID, "Savings", core.Savings, core.NewMoney(300, 0))
	mustAccount(t, s, u.ID, "Checking", core.Checking, core.NewMoney(1000, 0))
	mustAccount(t, s, u.ID, "Amex", core.CreditCard, core.NewMoney(50, 0))
	mustAccount(t, s, other.ID, "Elsewhere", core.Checking, core.NewMoney(9999, 0))

	if _, err := s.CreateAccount(ctx, core.NewAccount(u.ID+1000, "Ghost", core.Checking, core.NewMoney(1, 0))); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("account for missing owner: expected not found, got %v", err)
	}

	all, err := s.ListAccounts(ctx, u.ID)
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	if names := accountNames(all); !equal(names, []string{"Amex", "Checking", "Savings"}) {
		t.Fatalf("unexpected order %v", names)
	}

	checking, err := s.ListAccountsByType(ctx, u.ID, core.Checking)
	if err != nil || len(checking) != 1 || checking[0].Name != "Checking" {
		t.Fatalf("by type: %v %v", accountNames(checking), err)
	}

	above, err := s.ListAccountsAbove(ctx, u.ID, core.NewMoney(50, 0))
	if err != nil {
		t.Fatalf("above threshold: %v", err)
	}
	if names := accountNames(above); !equal(names, []string{"Checking", "Savings"}) {
		t.Fatalf("unexpected threshold result %v", names)
	}

	total, err := s.TotalBalance(ctx, u.ID)
	if err != nil || total != core.NewMoney(1350, 0) {
		t.Fatalf("total balance: %s %v", total, err)
	}
	empty := mustUser(t, s, "Alan", "Turing", "alan@example.com")
	total, err = s.TotalBalance(ctx, empty.ID)
	if err != nil || !total.IsZero() {
		t.Fatalf("empty total should be zero: %s %v", total, err)
	}

	if _, err := s.GetAccount(ctx, 424242); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func testTransactions(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "Ada", "Lovelace", "ada@example.com")
	checking := mustAccount(t, s, u.ID, "Checking", core.Checking, core.NewMoney(1000, 0))
	savings := mustAccount(t, s, u.ID, "Savings", core.Savings, core.NewMoney(100, 0))

	tx, acct, err := s.RecordTransaction(ctx, checking.ID, core.Transaction{
		Description: "groceries",
		Amount:      core.NewMoney(200, 0),
		Type:        core.Expense,
		Category:    core.Groceries,
		Date:        core.NewDate(2024, 3, 5),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if tx.ID == 0 || tx.AccountID != checking.ID || tx.CreatedAt.IsZero() {
		t.Fatalf("unexpected stored transaction %+v", tx)
	}
	if acct.CurrentBalance != core.NewMoney(800, 0) {
		t.Fatalf("expected 800.00, got %s", acct.CurrentBalance)
	}
	_, acct, err = s.RecordTransaction(ctx, checking.ID, core.Transaction{
		Description: "refund",
		Amount:      core.NewMoney(50, 0),
		Type:        core.Income,
		Category:    core.OtherIncome,
		Date:        core.NewDate(2024, 3, 6),
	})
	if err != nil || acct.CurrentBalance != core.NewMoney(850, 0) {
		t.Fatalf("expected 850.00, got %s (%v)", acct.CurrentBalance, err)
	}
	reloaded, err := s.GetAccount(ctx, checking.ID)
	if err != nil || reloaded.CurrentBalance != core.NewMoney(850, 0) || reloaded.InitialBalance != core.NewMoney(1000, 0) {
		t.Fatalf("reloaded account %+v %v", reloaded, err)
	}

	if _, _, err := s.RecordTransaction(ctx, 424242, core.Transaction{
		Description: "x", Amount: core.NewMoney(1, 0), Type: core.Income, Category: core.Salary, Date: core.NewDate(2024, 1, 1),
	}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing account: expected not found, got %v", err)
	}

	// Same-day entries: later creation comes first.
	first := mustRecord(t, s, savings.ID, core.NewMoney(1, 0), core.Expense, core.DiningOut, core.NewDate(2024, 3, 6))
	time.Sleep(2 * time.Millisecond)
	second := mustRecord(t, s, savings.ID, core.NewMoney(2, 0), core.Expense, core.DiningOut, core.NewDate(2024, 3, 6))
	older := mustRecord(t, s, savings.ID, core.NewMoney(3, 0), core.Expense, core.DiningOut, core.NewDate(2024, 2, 1))

	list, err := s.ListAccountTransactions(ctx, savings.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if ids := txIDs(list); !equalIDs(ids, []int64{second.ID, first.ID, older.ID}) {
		t.Fatalf("unexpected account order %v", ids)
	}

	recent, err := s.RecentTransactions(ctx, u.ID, 0)
	if err != nil || len(recent) != 5 {
		t.Fatalf("recent: %d %v", len(recent), err)
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].Date.After(recent[i-1].Date.Time) {
			t.Fatalf("recent not ordered by date desc: %v", txIDs(recent))
		}
	}
	if recent[0].ID != second.ID {
		t.Fatalf("expected newest same-day entry first, got %d", recent[0].ID)
	}
	limited, err := s.RecentTransactions(ctx, u.ID, 2)
	if err != nil || len(limited) != 2 {
		t.Fatalf("limited recent: %d %v", len(limited), err)
	}

	byCat, err := s.ListTransactionsByCategory(ctx, core.DiningOut, core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 6))
	if err != nil || len(byCat) != 2 {
		t.Fatalf("by category: %d %v", len(byCat), err)
	}
}

func testAggregates(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "Ada", "Lovelace", "ada@example.com")
	other := mustUser(t, s, "Grace", "Hopper", "grace@example.com")
	a := mustAccount(t, s, u.ID, "Checking", core.Checking, core.NewMoney(1000, 0))
	b := mustAccount(t, s, u.ID, "Card", core.CreditCard, core.NewMoney(10, 0))
	o := mustAccount(t, s, other.ID, "Checking", core.Checking, core.NewMoney(1000, 0))

	march := core.NewYearMonth(2024, 3)
	spent, err := s.SpendByCategory(ctx, u.ID, core.Groceries, march)
	if err != nil || !spent.IsZero() {
		t.Fatalf("no transactions should sum to zero: %s %v", spent, err)
	}

	mustRecord(t, s, a.ID, core.NewMoney(200, 0), core.Expense, core.Groceries, core.NewDate(2024, 3, 5))
	mustRecord(t, s, b.ID, core.NewMoney(30, 50), core.Expense, core.Groceries, core.NewDate(2024, 3, 31))
	mustRecord(t, s, a.ID, core.NewMoney(99, 0), core.Expense, core.Groceries, core.NewDate(2024, 4, 1))
	mustRecord(t, s, a.ID, core.NewMoney(12, 0), core.Expense, core.Travel, core.NewDate(2024, 3, 10))
	mustRecord(t, s, a.ID, core.NewMoney(3000, 0), core.Income, core.Salary, core.NewDate(2024, 3, 1))
	mustRecord(t, s, o.ID, core.NewMoney(77, 0), core.Expense, core.Groceries, core.NewDate(2024, 3, 5))

	spent, err = s.SpendByCategory(ctx, u.ID, core.Groceries, march)
	if err != nil || spent != core.NewMoney(230, 50) {
		t.Fatalf("spend by category: %s %v", spent, err)
	}

	from, to := core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 31)
	income, err := s.TotalIncome(ctx, u.ID, from, to)
	if err != nil || income != core.NewMoney(3000, 0) {
		t.Fatalf("income: %s %v", income, err)
	}
	expense, err := s.TotalExpense(ctx, u.ID, from, to)
	if err != nil || expense != core.NewMoney(242, 50) {
		t.Fatalf("expense: %s %v", expense, err)
	}
	expense, err = s.TotalExpense(ctx, u.ID, core.NewDate(2023, 1, 1), core.NewDate(2023, 12, 31))
	if err != nil || !expense.IsZero() {
		t.Fatalf("empty period should be zero: %s %v", expense, err)
	}
}

func testBudgets(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "Ada", "Lovelace", "ada@example.com")
	march, april := core.NewYearMonth(2024, 3), core.NewYearMonth(2024, 4)

	create := func(c core.Category, ym core.YearMonth) (core.Budget, error) {
		return s.CreateBudget(ctx, core.Budget{UserID: u.ID, Category: c, Amount: core.NewMoney(100, 0), Month: ym})
	}
	if _, err := create(core.Travel, march); err != nil {
		t.Fatalf("create: %v", err)
	}
	groceries, err := create(core.Groceries, march)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := create(core.Groceries, april); err != nil {
		t.Fatalf("same category other month: %v", err)
	}
	if _, err := create(core.Groceries, march); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("duplicate key: expected conflict, got %v", err)
	}

	list, err := s.ListBudgets(ctx, u.ID, march)
	if err != nil || len(list) != 2 || list[0].Category != core.Groceries || list[1].Category != core.Travel {
		t.Fatalf("list budgets: %+v %v", list, err)
	}

	all, err := s.ListAllBudgets(ctx, u.ID)
	if err != nil || len(all) != 3 || all[0].Month != april || all[1].Category != core.Groceries || all[2].Category != core.Travel {
		t.Fatalf("list all budgets: %+v %v", all, err)
	}

	found, err := s.FindBudget(ctx, u.ID, core.Groceries, march)
	if err != nil || found.ID != groceries.ID || found.Amount != core.NewMoney(100, 0) {
		t.Fatalf("find budget: %+v %v", found, err)
	}
	if _, err := s.FindBudget(ctx, u.ID, core.Shopping, march); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.GetBudget(ctx, groceries.ID); err != nil {
		t.Fatalf("get budget: %v", err)
	}

	exists, err := s.BudgetExists(ctx, u.ID, core.Groceries, march)
	if err != nil || !exists {
		t.Fatalf("budget exists: %v %v", exists, err)
	}
	exists, err = s.BudgetExists(ctx, u.ID, core.Shopping, march)
	if err != nil || exists {
		t.Fatalf("budget should not exist: %v %v", exists, err)
	}
}

func testCascade(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "Ada", "Lovelace", "ada@example.com")
	keep := mustUser(t, s, "Grace", "Hopper", "grace@example.com")
	a := mustAccount(t, s, u.ID, "Checking", core.Checking, core.NewMoney(1000, 0))
	b := mustAccount(t, s, u.ID, "Savings", core.Savings, core.NewMoney(1000, 0))
	k := mustAccount(t, s, keep.ID, "Checking", core.Checking, core.NewMoney(1000, 0))
	mustRecord(t, s, a.ID, core.NewMoney(5, 0), core.Expense, core.Groceries, core.NewDate(2024, 3, 5))
	mustRecord(t, s, b.ID, core.NewMoney(5, 0), core.Expense, core.Groceries, core.NewDate(2024, 3, 5))
	mustRecord(t, s, k.ID, core.NewMoney(5, 0), core.Expense, core.Groceries, core.NewDate(2024, 3, 5))
	if _, err := s.CreateBudget(ctx, core.Budget{UserID: u.ID, Category: core.Groceries, Amount: core.NewMoney(1, 0), Month: core.NewYearMonth(2024, 3)}); err != nil {
		t.Fatalf("create budget: %v", err)
	}

	if err := s.DeleteAccount(ctx, b.ID); err != nil {
		t.Fatalf("delete account: %v", err)
	}
	if _, err := s.GetAccount(ctx, b.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("deleted account still present: %v", err)
	}
	recent, _ := s.RecentTransactions(ctx, u.ID, 0)
	if len(recent) != 1 {
		t.Fatalf("account transactions not cascaded: %d left", len(recent))
	}

	if err := s.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := s.GetUser(ctx, u.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("deleted user still present: %v", err)
	}
	if _, err := s.GetAccount(ctx, a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("user accounts not cascaded: %v", err)
	}
	if exists, _ := s.BudgetExists(ctx, u.ID, core.Groceries, core.NewYearMonth(2024, 3)); exists {
		t.Fatal("user budgets not cascaded")
	}
	byCat, _ := s.ListTransactionsByCategory(ctx, core.Groceries, core.NewDate(2024, 1, 1), core.NewDate(2024, 12, 31))
	if len(byCat) != 1 || byCat[0].AccountID != k.ID {
		t.Fatalf("expected only the other user's transaction, got %+v", byCat)
	}
	if exists, _ := s.EmailExists(ctx, "ada@example.com"); exists {
		t.Fatal("email still registered after delete")
	}
	if err := s.DeleteUser(ctx, u.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: expected not found, got %v", err)
	}
}

func testExports(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "Ada", "Lovelace", "ada@example.com")
	a := mustAccount(t, s, u.ID, "Checking", core.Checking, core.NewMoney(1000, 0))
	b := mustAccount(t, s, u.ID, "Savings", core.Savings, core.NewMoney(1000, 0))
	t1 := mustRecord(t, s, a.ID, core.NewMoney(5, 0), core.Expense, core.Groceries, core.NewDate(2024, 3, 5))
	t2 := mustRecord(t, s, a.ID, core.NewMoney(6, 0), core.Expense, core.Groceries, core.NewDate(2024, 3, 1))
	t3 := mustRecord(t, s, b.ID, core.NewMoney(7, 0), core.Income, core.Salary, core.NewDate(2024, 3, 2))

	pending, err := s.PendingExports(ctx, 0)
	if err != nil || !equalIDs(txIDs(pending), []int64{t1.ID, t2.ID, t3.ID}) {
		t.Fatalf("pending exports: %v %v", txIDs(pending), err)
	}
	if limited, _ := s.PendingExports(ctx, 2); !equalIDs(txIDs(limited), []int64{t1.ID, t2.ID}) {
		t.Fatalf("limited pending exports: %v", txIDs(limited))
	}

	if err := s.MarkTransactionExported(ctx, t1.ID, "2024 Transactions!A2:H2"); err != nil {
		t.Fatalf("mark exported: %v", err)
	}
	if err := s.MarkTransactionExported(ctx, t1.ID, "2024 Transactions!A9:H9"); err != nil {
		t.Fatalf("second mark must be a no-op: %v", err)
	}
	if ok, err := s.IsTransactionExported(ctx, t1.ID); err != nil || !ok {
		t.Fatalf("t1 exported: %v %v", ok, err)
	}
	if ok, _ := s.IsTransactionExported(ctx, t2.ID); ok {
		t.Fatal("t2 was never exported")
	}
	if err := s.MarkTransactionExported(ctx, t3.ID+1000, "x"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing transaction: expected not found, got %v", err)
	}

	pending, _ = s.PendingExports(ctx, 0)
	if !equalIDs(txIDs(pending), []int64{t2.ID, t3.ID}) {
		t.Fatalf("pending after mark: %v", txIDs(pending))
	}

	if err := s.DeleteAccount(ctx, b.ID); err != nil {
		t.Fatalf("delete account: %v", err)
	}
	pending, _ = s.PendingExports(ctx, 0)
	if !equalIDs(txIDs(pending), []int64{t2.ID}) {
		t.Fatalf("deleted transactions must leave the pending list: %v", txIDs(pending))
	}
}

func accountNames(as []core.Account) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.Name
	}
	return out
}

func txIDs(ts []core.Transaction) []int64 {
	out := make([]int64, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
