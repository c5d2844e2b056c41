package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/store"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var _ store.Store = (*SQLRepository)(nil)

// SQLRepository is the relational store.Store backed by SQLite or PostgreSQL.
type SQLRepository struct {
	db      *sql.DB
	queries *Queries
	dialect Dialect
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations
	if err := RunMigrations(SQLite, dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; a read inside a write transaction reuses the same conn.
	db.SetMaxOpenConns(1)

	return open(db, SQLite)
}

func NewPostgresRepository(databaseURL string) (*SQLRepository, error) {
	if err := RunMigrations(Postgres, databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return open(db, Postgres)
}

// SQLiteRepository is kept as the name of the SQLite flavoured repository.
type SQLiteRepository = SQLRepository

func open(db *sql.DB, d Dialect) (*SQLRepository, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &SQLRepository{
		db:      db,
		queries: New(db, d),
		dialect: d,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// inTx runs fn inside one database transaction, rolling back on error.
func (r *SQLRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Users

func (r *SQLRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now()
	}
	u.Email = strings.TrimSpace(u.Email)
	id, err := r.queries.CreateUser(ctx, u)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, fmt.Errorf("email %s already registered: %w", u.Email, core.ErrConflict)
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	u.ID = id

	slog.InfoContext(ctx, "User saved", "user_id", id, "dialect", r.dialect)
	return u, nil
}

func (r *SQLRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := r.queries.GetUser(ctx, id)
	if err != nil {
		return core.User{}, notFound(err, fmt.Sprintf("user %d", id))
	}
	return u, nil
}

func (r *SQLRepository) FindUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := r.queries.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return core.User{}, notFound(err, "user with email "+email)
	}
	return u, nil
}

func (r *SQLRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	n, err := r.queries.CountUsersByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return false, fmt.Errorf("count users by email: %w", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) FindUserByName(ctx context.Context, firstName, lastName string) (core.User, error) {
	u, err := r.queries.GetUserByName(ctx, firstName, lastName)
	if err != nil {
		return core.User{}, notFound(err, fmt.Sprintf("user %s %s", firstName, lastName))
	}
	return u, nil
}

func (r *SQLRepository) DeleteUser(ctx context.Context, id int64) error {
	err := r.inTx(ctx, func(q *Queries) error {
		if err := q.DeleteUserTransactions(ctx, id); err != nil {
			return fmt.Errorf("delete user transactions: %w", err)
		}
		if err := q.DeleteUserAccounts(ctx, id); err != nil {
			return fmt.Errorf("delete user accounts: %w", err)
		}
		if err := q.DeleteUserBudgets(ctx, id); err != nil {
			return fmt.Errorf("delete user budgets: %w", err)
		}
		n, err := q.DeleteUser(ctx, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("user %d: %w", id, core.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "User deleted", "user_id", id)
	return nil
}

// Accounts

func (r *SQLRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if _, err := r.GetUser(ctx, a.UserID); err != nil {
		return core.Account{}, fmt.Errorf("owner: %w", err)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.now()
	}
	id, err := r.queries.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	a.ID = id
	a.Transactions = nil

	slog.InfoContext(ctx, "Account saved", "account_id", id, "user_id", a.UserID)
	return a, nil
}

func (r *SQLRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	a, err := r.queries.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, notFound(err, fmt.Sprintf("account %d", id))
	}
	return a, nil
}

func (r *SQLRepository) ListAccounts(ctx context.Context, userID int64) ([]core.Account, error) {
	out, err := r.queries.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) ListAccountsByType(ctx context.Context, userID int64, t core.AccountType) ([]core.Account, error) {
	out, err := r.queries.ListAccountsByType(ctx, userID, t)
	if err != nil {
		return nil, fmt.Errorf("list accounts by type: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) ListAccountsAbove(ctx context.Context, userID int64, threshold core.Money) ([]core.Account, error) {
	out, err := r.queries.ListAccountsAbove(ctx, userID, threshold.Cents)
	if err != nil {
		return nil, fmt.Errorf("list accounts above threshold: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) TotalBalance(ctx context.Context, userID int64) (core.Money, error) {
	total, err := r.queries.SumAccountBalances(ctx, userID)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum account balances: %w", err)
	}
	return core.Money{Cents: total}, nil
}

func (r *SQLRepository) DeleteAccount(ctx context.Context, id int64) error {
	err := r.inTx(ctx, func(q *Queries) error {
		if err := q.DeleteAccountTransactions(ctx, id); err != nil {
			return fmt.Errorf("delete account transactions: %w", err)
		}
		n, err := q.DeleteAccount(ctx, id)
		if err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("account %d: %w", id, core.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Account deleted", "account_id", id)
	return nil
}

// Transactions

// RecordTransaction inserts t and writes the account's new balance in one
// database transaction, so a stored transaction is never observable without
// its balance update.
func (r *SQLRepository) RecordTransaction(ctx context.Context, accountID int64, t core.Transaction) (core.Transaction, core.Account, error) {
	var acct core.Account
	err := r.inTx(ctx, func(q *Queries) error {
		var err error
		acct, err = q.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return notFound(err, fmt.Sprintf("account %d", accountID))
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = r.now()
		}
		t = acct.AddTransaction(t)

		id, err := q.CreateTransaction(ctx, t)
		if err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		t.ID = id
		acct.Transactions[len(acct.Transactions)-1].ID = id

		if err := q.UpdateAccountBalance(ctx, accountID, acct.CurrentBalance.Cents); err != nil {
			return fmt.Errorf("update account balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, core.Account{}, err
	}

	fields := applog.NewFields().
		WithComponent(applog.ComponentStorage).
		WithOperation(applog.OpRecord).
		WithTransaction(accountID, t.ID, string(t.Type), string(t.Category), t.Amount.String())
	slog.InfoContext(ctx, "Transaction saved", append(fields.ToSlice(), "balance", acct.CurrentBalance.String())...)

	// Only the new transaction was loaded; do not pretend it is the full history.
	acct.Transactions = nil
	return t, acct, nil
}

func (r *SQLRepository) ListAccountTransactions(ctx context.Context, accountID int64) ([]core.Transaction, error) {
	if _, err := r.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	out, err := r.queries.ListAccountTransactions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list account transactions: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) ListTransactionsByCategory(ctx context.Context, c core.Category, from, to core.Date) ([]core.Transaction, error) {
	out, err := r.queries.ListTransactionsByCategory(ctx, c, from, to)
	if err != nil {
		return nil, fmt.Errorf("list transactions by category: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) RecentTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	out, err := r.queries.ListRecentTransactions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent transactions: %w", err)
	}
	return out, nil
}

// Aggregates

func (r *SQLRepository) SpendByCategory(ctx context.Context, userID int64, c core.Category, ym core.YearMonth) (core.Money, error) {
	total, err := r.queries.SumTransactions(ctx, userID, core.Expense, &c, ym.FirstDay(), ym.LastDay())
	if err != nil {
		return core.Money{}, fmt.Errorf("sum spending by category: %w", err)
	}
	return core.Money{Cents: total}, nil
}

func (r *SQLRepository) TotalIncome(ctx context.Context, userID int64, from, to core.Date) (core.Money, error) {
	total, err := r.queries.SumTransactions(ctx, userID, core.Income, nil, from, to)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum income: %w", err)
	}
	return core.Money{Cents: total}, nil
}

func (r *SQLRepository) TotalExpense(ctx context.Context, userID int64, from, to core.Date) (core.Money, error) {
	total, err := r.queries.SumTransactions(ctx, userID, core.Expense, nil, from, to)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.Money{Cents: total}, nil
}

// Exports

func (r *SQLRepository) MarkTransactionExported(ctx context.Context, id int64, ref string) error {
	err := r.inTx(ctx, func(q *Queries) error {
		n, err := q.CountTransactions(ctx, id)
		if err != nil {
			return fmt.Errorf("count transactions: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
		}
		if err := q.InsertTransactionExport(ctx, id, ref, r.now()); err != nil {
			return fmt.Errorf("mark transaction exported: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction marked as exported", applog.FieldTxID, id, applog.FieldSheetsRef, ref)
	return nil
}

func (r *SQLRepository) IsTransactionExported(ctx context.Context, id int64) (bool, error) {
	n, err := r.queries.CountTransactionExports(ctx, id)
	if err != nil {
		return false, fmt.Errorf("count transaction exports: %w", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) PendingExports(ctx context.Context, limit int) ([]core.Transaction, error) {
	out, err := r.queries.ListPendingExports(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending exports: %w", err)
	}
	return out, nil
}

// Budgets

func (r *SQLRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if _, err := r.GetUser(ctx, b.UserID); err != nil {
		return core.Budget{}, fmt.Errorf("owner: %w", err)
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = r.now()
	}
	id, err := r.queries.CreateBudget(ctx, b)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Budget{}, fmt.Errorf("budget for %s in %s: %w", b.Category, b.Month, core.ErrConflict)
		}
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	b.ID = id

	slog.InfoContext(ctx, "Budget saved",
		"budget_id", id, "user_id", b.UserID, "category", b.Category, "month", b.Month.String())
	return b, nil
}

func (r *SQLRepository) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	b, err := r.queries.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, notFound(err, fmt.Sprintf("budget %d", id))
	}
	return b, nil
}

func (r *SQLRepository) ListBudgets(ctx context.Context, userID int64, ym core.YearMonth) ([]core.Budget, error) {
	out, err := r.queries.ListBudgetsByMonth(ctx, userID, ym)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) ListAllBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	out, err := r.queries.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list all budgets: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) FindBudget(ctx context.Context, userID int64, c core.Category, ym core.YearMonth) (core.Budget, error) {
	b, err := r.queries.GetBudgetByKey(ctx, userID, c, ym)
	if err != nil {
		return core.Budget{}, notFound(err, fmt.Sprintf("budget for %s in %s", c, ym))
	}
	return b, nil
}

func (r *SQLRepository) BudgetExists(ctx context.Context, userID int64, c core.Category, ym core.YearMonth) (bool, error) {
	n, err := r.queries.CountBudgetsByKey(ctx, userID, c, ym)
	if err != nil {
		return false, fmt.Errorf("count budgets: %w", err)
	}
	return n > 0, nil
}
