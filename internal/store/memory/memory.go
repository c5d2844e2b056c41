// Package memory is an in-process store. Entities live in per-kind maps keyed
// by generated IDs; ownership is expressed through foreign-key fields and
// cascades are explicit.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"ledger/internal/core"
	"ledger/internal/store"
)

var _ store.Store = (*Store)(nil)

type budgetKey struct {
	userID   int64
	category core.Category
	month    core.YearMonth
}

type Store struct {
	mu     sync.Mutex
	nextID int64

	users        map[int64]core.User
	accounts     map[int64]*core.Account
	transactions map[int64]core.Transaction
	budgets      map[int64]core.Budget
	budgetKeys   map[budgetKey]int64
	emails       map[string]int64
	exports      map[int64]string

	now func() time.Time
}

func New() *Store {
	return &Store{
		users:        make(map[int64]core.User),
		accounts:     make(map[int64]*core.Account),
		transactions: make(map[int64]core.Transaction),
		budgets:      make(map[int64]core.Budget),
		budgetKeys:   make(map[budgetKey]int64),
		emails:       make(map[string]int64),
		exports:      make(map[int64]string),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// timestamp returns a creation time strictly after the previous one so that
// creation order is preserved even within one clock tick.
func (s *Store) timestamp(prev time.Time) time.Time {
	t := s.now()
	if !t.After(prev) {
		t = prev.Add(time.Nanosecond)
	}
	return t
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Users

func (s *Store) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeEmail(u.Email)
	if _, ok := s.emails[key]; ok {
		return core.User{}, fmt.Errorf("email %s already registered: %w", u.Email, core.ErrConflict)
	}
	u.ID = s.id()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	s.users[u.ID] = u
	s.emails[key] = u.ID

	slog.InfoContext(ctx, "User saved to memory store", "user_id", u.ID)
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	return u, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.emails[normalizeEmail(email)]
	if !ok {
		return core.User{}, fmt.Errorf("user with email %s: %w", email, core.ErrNotFound)
	}
	return s.users[id], nil
}

func (s *Store) EmailExists(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.emails[normalizeEmail(email)]
	return ok, nil
}

func (s *Store) FindUserByName(_ context.Context, firstName, lastName string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found []core.User
	for _, u := range s.users {
		if strings.EqualFold(u.FirstName, firstName) && strings.EqualFold(u.LastName, lastName) {
			found = append(found, u)
		}
	}
	if len(found) == 0 {
		return core.User{}, fmt.Errorf("user %s %s: %w", firstName, lastName, core.ErrNotFound)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	return found[0], nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	for accountID, a := range s.accounts {
		if a.UserID == id {
			s.deleteAccountLocked(accountID)
		}
	}
	for budgetID, b := range s.budgets {
		if b.UserID == id {
			delete(s.budgets, budgetID)
			delete(s.budgetKeys, budgetKey{b.UserID, b.Category, b.Month})
		}
	}
	delete(s.emails, normalizeEmail(u.Email))
	delete(s.users, id)

	slog.InfoContext(ctx, "User deleted from memory store", "user_id", id)
	return nil
}

// Accounts

func (s *Store) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[a.UserID]; !ok {
		return core.Account{}, fmt.Errorf("owner %d: %w", a.UserID, core.ErrNotFound)
	}
	a.ID = s.id()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	a.Transactions = nil
	stored := a
	s.accounts[a.ID] = &stored

	slog.InfoContext(ctx, "Account saved to memory store", "account_id", a.ID, "user_id", a.UserID)
	return a, nil
}

func (s *Store) GetAccount(_ context.Context, id int64) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	return snapshot(a), nil
}

// snapshot copies an account so callers never alias the stored slice.
func snapshot(a *core.Account) core.Account {
	out := *a
	out.Transactions = append([]core.Transaction(nil), a.Transactions...)
	return out
}

func (s *Store) listAccounts(userID int64, keep func(*core.Account) bool) []core.Account {
	var out []core.Account
	for _, a := range s.accounts {
		if a.UserID == userID && keep(a) {
			out = append(out, snapshot(a))
		}
	}
	return out
}

func (s *Store) ListAccounts(_ context.Context, userID int64) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.listAccounts(userID, func(*core.Account) bool { return true })
	sortByName(out)
	return out, nil
}

func (s *Store) ListAccountsByType(_ context.Context, userID int64, t core.AccountType) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.listAccounts(userID, func(a *core.Account) bool { return a.Type == t })
	sortByName(out)
	return out, nil
}

func (s *Store) ListAccountsAbove(_ context.Context, userID int64, threshold core.Money) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.listAccounts(userID, func(a *core.Account) bool { return a.CurrentBalance.Cmp(threshold) > 0 })
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].CurrentBalance.Cmp(out[j].CurrentBalance); c != 0 {
			return c > 0
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func sortByName(accounts []core.Account) {
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].Name != accounts[j].Name {
			return accounts[i].Name < accounts[j].Name
		}
		return accounts[i].ID < accounts[j].ID
	})
}

func (s *Store) TotalBalance(_ context.Context, userID int64) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total core.Money
	for _, a := range s.accounts {
		if a.UserID == userID {
			total = total.Add(a.CurrentBalance)
		}
	}
	return total, nil
}

func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	s.deleteAccountLocked(id)
	slog.InfoContext(ctx, "Account deleted from memory store", "account_id", id)
	return nil
}

func (s *Store) deleteAccountLocked(id int64) {
	for _, t := range s.accounts[id].Transactions {
		delete(s.transactions, t.ID)
		delete(s.exports, t.ID)
	}
	delete(s.accounts, id)
}

// Transactions

func (s *Store) RecordTransaction(ctx context.Context, accountID int64, t core.Transaction) (core.Transaction, core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return core.Transaction{}, core.Account{}, fmt.Errorf("account %d: %w", accountID, core.ErrNotFound)
	}
	t.ID = s.id()
	var prev time.Time
	if n := len(a.Transactions); n > 0 {
		prev = a.Transactions[n-1].CreatedAt
	}
	if t.CreatedAt.IsZero() || !t.CreatedAt.After(prev) {
		t.CreatedAt = s.timestamp(prev)
	}
	t = a.AddTransaction(t)
	s.transactions[t.ID] = t

	slog.InfoContext(ctx, "Transaction saved to memory store",
		"transaction_id", t.ID,
		"account_id", accountID,
		"amount", t.Amount.String(),
		"type", t.Type,
		"balance", a.CurrentBalance.String())

	return t, snapshot(a), nil
}

func (s *Store) ListAccountTransactions(_ context.Context, accountID int64) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", accountID, core.ErrNotFound)
	}
	out := append([]core.Transaction(nil), a.Transactions...)
	sortRecent(out)
	return out, nil
}

func (s *Store) ListTransactionsByCategory(_ context.Context, c core.Category, from, to core.Date) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.Category == c && inRange(t.Date, from, to) {
			out = append(out, t)
		}
	}
	sortRecent(out)
	return out, nil
}

func (s *Store) RecentTransactions(_ context.Context, userID int64, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a.Transactions...)
		}
	}
	sortRecent(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// sortRecent orders by date desc, creation time desc, ID desc.
func sortRecent(ts []core.Transaction) {
	sort.Slice(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func inRange(d, from, to core.Date) bool {
	return !d.Before(from.Time) && !d.After(to.Time)
}

// Aggregates

func (s *Store) sum(userID int64, keep func(core.Transaction) bool) core.Money {
	var total core.Money
	for _, a := range s.accounts {
		if a.UserID != userID {
			continue
		}
		for _, t := range a.Transactions {
			if keep(t) {
				total = total.Add(t.Amount)
			}
		}
	}
	return total
}

func (s *Store) SpendByCategory(_ context.Context, userID int64, c core.Category, ym core.YearMonth) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sum(userID, func(t core.Transaction) bool {
		return t.Type == core.Expense && t.Category == c && ym.Contains(t.Date)
	}), nil
}

func (s *Store) TotalIncome(_ context.Context, userID int64, from, to core.Date) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sum(userID, func(t core.Transaction) bool {
		return t.Type == core.Income && inRange(t.Date, from, to)
	}), nil
}

func (s *Store) TotalExpense(_ context.Context, userID int64, from, to core.Date) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sum(userID, func(t core.Transaction) bool {
		return t.Type == core.Expense && inRange(t.Date, from, to)
	}), nil
}

// Exports

func (s *Store) MarkTransactionExported(ctx context.Context, id int64, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[id]; !ok {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if _, ok := s.exports[id]; ok {
		return nil
	}
	s.exports[id] = ref
	slog.InfoContext(ctx, "Transaction marked as exported in memory store", "transaction_id", id, "sheets_ref", ref)
	return nil
}

func (s *Store) IsTransactionExported(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.exports[id]
	return ok, nil
}

func (s *Store) PendingExports(_ context.Context, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for id, t := range s.transactions {
		if _, ok := s.exports[id]; !ok {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Budgets

func (s *Store) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[b.UserID]; !ok {
		return core.Budget{}, fmt.Errorf("owner %d: %w", b.UserID, core.ErrNotFound)
	}
	key := budgetKey{b.UserID, b.Category, b.Month}
	if _, ok := s.budgetKeys[key]; ok {
		return core.Budget{}, fmt.Errorf("budget for %s in %s: %w", b.Category, b.Month, core.ErrConflict)
	}
	b.ID = s.id()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now()
	}
	s.budgets[b.ID] = b
	s.budgetKeys[key] = b.ID

	slog.InfoContext(ctx, "Budget saved to memory store",
		"budget_id", b.ID, "user_id", b.UserID, "category", b.Category, "month", b.Month.String())
	return b, nil
}

func (s *Store) GetBudget(_ context.Context, id int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, fmt.Errorf("budget %d: %w", id, core.ErrNotFound)
	}
	return b, nil
}

func (s *Store) ListBudgets(_ context.Context, userID int64, ym core.YearMonth) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.UserID == userID && b.Month == ym {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *Store) ListAllBudgets(_ context.Context, userID int64) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[j].Month.Before(out[i].Month)
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

func (s *Store) FindBudget(_ context.Context, userID int64, c core.Category, ym core.YearMonth) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.budgetKeys[budgetKey{userID, c, ym}]
	if !ok {
		return core.Budget{}, fmt.Errorf("budget for %s in %s: %w", c, ym, core.ErrNotFound)
	}
	return s.budgets[id], nil
}

func (s *Store) BudgetExists(_ context.Context, userID int64, c core.Category, ym core.YearMonth) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.budgetKeys[budgetKey{userID, c, ym}]
	return ok, nil
}
