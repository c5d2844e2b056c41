package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ledger/internal/core"
)

// timeLayout is fixed width so that created_at sorts lexicographically.
const timeLayout = "2006-01-02 15:04:05.000000000"

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the parameterized statements of the ledger schema.
type Queries struct {
	db      DBTX
	dialect Dialect
}

func New(db DBTX, d Dialect) *Queries {
	return &Queries{db: db, dialect: d}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, dialect: q.dialect}
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.db.ExecContext(ctx, q.dialect.rebind(query), args...)
}

func (q *Queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, q.dialect.rebind(query), args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, q.dialect.rebind(query), args...)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.ParseInLocation(timeLayout, s, time.UTC)
}

type scanner interface {
	Scan(dest ...any) error
}

// Users

const userColumns = `id, first_name, last_name, email, created_at`

func scanUser(row scanner) (core.User, error) {
	var (
		u       core.User
		created string
	)
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &created); err != nil {
		return core.User{}, err
	}
	t, err := parseTime(created)
	if err != nil {
		return core.User{}, fmt.Errorf("parse user created_at: %w", err)
	}
	u.CreatedAt = t
	return u, nil
}

func (q *Queries) CreateUser(ctx context.Context, u core.User) (int64, error) {
	var id int64
	err := q.queryRow(ctx,
		`INSERT INTO users (first_name, last_name, email, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		u.FirstName, u.LastName, u.Email, formatTime(u.CreatedAt),
	).Scan(&id)
	return id, err
}

func (q *Queries) GetUser(ctx context.Context, id int64) (core.User, error) {
	return scanUser(q.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return scanUser(q.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER(?)`, email))
}

func (q *Queries) CountUsersByEmail(ctx context.Context, email string) (int64, error) {
	var n int64
	err := q.queryRow(ctx, `SELECT COUNT(*) FROM users WHERE LOWER(email) = LOWER(?)`, email).Scan(&n)
	return n, err
}

func (q *Queries) GetUserByName(ctx context.Context, firstName, lastName string) (core.User, error) {
	return scanUser(q.queryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE LOWER(first_name) = LOWER(?) AND LOWER(last_name) = LOWER(?)
		 ORDER BY id LIMIT 1`,
		firstName, lastName))
}

func (q *Queries) DeleteUser(ctx context.Context, id int64) (int64, error) {
	res, err := q.exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteUserTransactions(ctx context.Context, userID int64) error {
	_, err := q.exec(ctx,
		`DELETE FROM transactions WHERE account_id IN (SELECT id FROM accounts WHERE user_id = ?)`, userID)
	return err
}

func (q *Queries) DeleteUserAccounts(ctx context.Context, userID int64) error {
	_, err := q.exec(ctx, `DELETE FROM accounts WHERE user_id = ?`, userID)
	return err
}

func (q *Queries) DeleteUserBudgets(ctx context.Context, userID int64) error {
	_, err := q.exec(ctx, `DELETE FROM budgets WHERE user_id = ?`, userID)
	return err
}

// Accounts

const accountColumns = `id, user_id, account_name, account_type, initial_balance_cents, current_balance_cents, created_at`

func scanAccount(row scanner) (core.Account, error) {
	var (
		a       core.Account
		typ     string
		created string
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &typ, &a.InitialBalance.Cents, &a.CurrentBalance.Cents, &created); err != nil {
		return core.Account{}, err
	}
	t, err := parseTime(created)
	if err != nil {
		return core.Account{}, fmt.Errorf("parse account created_at: %w", err)
	}
	a.Type = core.AccountType(typ)
	a.CreatedAt = t
	return a, nil
}

func scanAccounts(rows *sql.Rows, err error) ([]core.Account, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (q *Queries) CreateAccount(ctx context.Context, a core.Account) (int64, error) {
	var id int64
	err := q.queryRow(ctx,
		`INSERT INTO accounts (user_id, account_name, account_type, initial_balance_cents, current_balance_cents, created_at)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		a.UserID, a.Name, string(a.Type), a.InitialBalance.Cents, a.CurrentBalance.Cents, formatTime(a.CreatedAt),
	).Scan(&id)
	return id, err
}

func (q *Queries) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	return scanAccount(q.queryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
}

// GetAccountForUpdate loads the account and, where the dialect supports it,
// locks the row until the surrounding transaction ends.
func (q *Queries) GetAccountForUpdate(ctx context.Context, id int64) (core.Account, error) {
	return scanAccount(q.queryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`+q.dialect.lockSuffix(), id))
}

func (q *Queries) ListAccounts(ctx context.Context, userID int64) ([]core.Account, error) {
	return scanAccounts(q.query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY account_name ASC, id ASC`, userID))
}

func (q *Queries) ListAccountsByType(ctx context.Context, userID int64, t core.AccountType) ([]core.Account, error) {
	return scanAccounts(q.query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? AND account_type = ?
		 ORDER BY account_name ASC, id ASC`, userID, string(t)))
}

func (q *Queries) ListAccountsAbove(ctx context.Context, userID int64, thresholdCents int64) ([]core.Account, error) {
	return scanAccounts(q.query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? AND current_balance_cents > ?
		 ORDER BY current_balance_cents DESC, id ASC`, userID, thresholdCents))
}

func (q *Queries) SumAccountBalances(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := q.queryRow(ctx,
		`SELECT COALESCE(SUM(current_balance_cents), 0) FROM accounts WHERE user_id = ?`, userID).Scan(&total)
	return total, err
}

func (q *Queries) UpdateAccountBalance(ctx context.Context, id, balanceCents int64) error {
	_, err := q.exec(ctx, `UPDATE accounts SET current_balance_cents = ? WHERE id = ?`, balanceCents, id)
	return err
}

func (q *Queries) DeleteAccountTransactions(ctx context.Context, accountID int64) error {
	_, err := q.exec(ctx, `DELETE FROM transactions WHERE account_id = ?`, accountID)
	return err
}

func (q *Queries) DeleteAccount(ctx context.Context, id int64) (int64, error) {
	res, err := q.exec(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Transactions

const transactionColumns = `t.id, t.account_id, t.description, t.amount_cents, t.transaction_type, t.category, t.transaction_date, t.created_at`

const recentOrder = ` ORDER BY t.transaction_date DESC, t.created_at DESC, t.id DESC`

func scanTransaction(row scanner) (core.Transaction, error) {
	var (
		t             core.Transaction
		typ, cat      string
		date, created string
	)
	if err := row.Scan(&t.ID, &t.AccountID, &t.Description, &t.Amount.Cents, &typ, &cat, &date, &created); err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction_date: %w", err)
	}
	c, err := parseTime(created)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction created_at: %w", err)
	}
	t.Type = core.TransactionType(typ)
	t.Category = core.Category(cat)
	t.Date = d
	t.CreatedAt = c
	return t, nil
}

func scanTransactions(rows *sql.Rows, err error) ([]core.Transaction, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	var id int64
	err := q.queryRow(ctx,
		`INSERT INTO transactions (account_id, description, amount_cents, transaction_type, category, transaction_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		t.AccountID, t.Description, t.Amount.Cents, string(t.Type), string(t.Category), t.Date.String(), formatTime(t.CreatedAt),
	).Scan(&id)
	return id, err
}

func (q *Queries) ListAccountTransactions(ctx context.Context, accountID int64) ([]core.Transaction, error) {
	return scanTransactions(q.query(ctx,
		`SELECT `+transactionColumns+` FROM transactions t WHERE t.account_id = ?`+recentOrder, accountID))
}

func (q *Queries) ListTransactionsByCategory(ctx context.Context, c core.Category, from, to core.Date) ([]core.Transaction, error) {
	return scanTransactions(q.query(ctx,
		`SELECT `+transactionColumns+` FROM transactions t
		 WHERE t.category = ? AND t.transaction_date BETWEEN ? AND ?`+recentOrder,
		string(c), from.String(), to.String()))
}

func (q *Queries) ListRecentTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions t
		 JOIN accounts a ON a.id = t.account_id
		 WHERE a.user_id = ?` + recentOrder
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return scanTransactions(q.query(ctx, query, args...))
}

func (q *Queries) SumTransactions(ctx context.Context, userID int64, typ core.TransactionType, category *core.Category, from, to core.Date) (int64, error) {
	query := `SELECT COALESCE(SUM(t.amount_cents), 0) FROM transactions t
		 JOIN accounts a ON a.id = t.account_id
		 WHERE a.user_id = ? AND t.transaction_type = ? AND t.transaction_date BETWEEN ? AND ?`
	args := []any{userID, string(typ), from.String(), to.String()}
	if category != nil {
		query += ` AND t.category = ?`
		args = append(args, string(*category))
	}
	var total int64
	err := q.queryRow(ctx, query, args...).Scan(&total)
	return total, err
}

// Exports

func (q *Queries) CountTransactions(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := q.queryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE id = ?`, id).Scan(&n)
	return n, err
}

// InsertTransactionExport keeps the existing row when the transaction was
// already marked.
func (q *Queries) InsertTransactionExport(ctx context.Context, id int64, ref string, at time.Time) error {
	_, err := q.exec(ctx,
		`INSERT INTO transaction_exports (transaction_id, sheets_ref, exported_at) VALUES (?, ?, ?)
		 ON CONFLICT (transaction_id) DO NOTHING`,
		id, ref, formatTime(at))
	return err
}

func (q *Queries) CountTransactionExports(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := q.queryRow(ctx, `SELECT COUNT(*) FROM transaction_exports WHERE transaction_id = ?`, id).Scan(&n)
	return n, err
}

func (q *Queries) ListPendingExports(ctx context.Context, limit int) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions t
		 LEFT JOIN transaction_exports e ON e.transaction_id = t.id
		 WHERE e.transaction_id IS NULL
		 ORDER BY t.id ASC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return scanTransactions(q.query(ctx, query, args...))
}

// Budgets

const budgetColumns = `id, user_id, category, budget_amount_cents, budget_year, budget_month, created_at`

func scanBudget(row scanner) (core.Budget, error) {
	var (
		b            core.Budget
		cat, created string
		year, month  int
	)
	if err := row.Scan(&b.ID, &b.UserID, &cat, &b.Amount.Cents, &year, &month, &created); err != nil {
		return core.Budget{}, err
	}
	t, err := parseTime(created)
	if err != nil {
		return core.Budget{}, fmt.Errorf("parse budget created_at: %w", err)
	}
	b.Category = core.Category(cat)
	b.Month = core.NewYearMonth(year, month)
	b.CreatedAt = t
	return b, nil
}

func scanBudgets(rows *sql.Rows, err error) ([]core.Budget, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (q *Queries) CreateBudget(ctx context.Context, b core.Budget) (int64, error) {
	var id int64
	err := q.queryRow(ctx,
		`INSERT INTO budgets (user_id, category, budget_amount_cents, budget_year, budget_month, created_at)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		b.UserID, string(b.Category), b.Amount.Cents, b.Month.Year, int(b.Month.Month), formatTime(b.CreatedAt),
	).Scan(&id)
	return id, err
}

func (q *Queries) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	return scanBudget(q.queryRow(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id))
}

func (q *Queries) ListBudgetsByMonth(ctx context.Context, userID int64, ym core.YearMonth) ([]core.Budget, error) {
	return scanBudgets(q.query(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? AND budget_year = ? AND budget_month = ?
		 ORDER BY category ASC`, userID, ym.Year, int(ym.Month)))
}

func (q *Queries) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	return scanBudgets(q.query(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ?
		 ORDER BY budget_year DESC, budget_month DESC, category ASC`, userID))
}

func (q *Queries) GetBudgetByKey(ctx context.Context, userID int64, c core.Category, ym core.YearMonth) (core.Budget, error) {
	return scanBudget(q.queryRow(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? AND category = ? AND budget_year = ? AND budget_month = ?`,
		userID, string(c), ym.Year, int(ym.Month)))
}

func (q *Queries) CountBudgetsByKey(ctx context.Context, userID int64, c core.Category, ym core.YearMonth) (int64, error) {
	var n int64
	err := q.queryRow(ctx,
		`SELECT COUNT(*) FROM budgets WHERE user_id = ? AND category = ? AND budget_year = ? AND budget_month = ?`,
		userID, string(c), ym.Year, int(ym.Month)).Scan(&n)
	return n, err
}

// notFound maps sql.ErrNoRows onto core.ErrNotFound and leaves other errors intact.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}
